// Package wizard implements the generic multi-step configuration wizard
// used for models, parameters, devices and rules.
//
// A Definition describes a wizard statically: its fields, its steps, the
// fields each step requires, discriminant-conditional field sets, an
// optional lower/upper limit pair and repeatable item lists. A Session
// holds one in-progress run of a Definition:
//
//	s := wizard.NewSession(def)
//	s.SetField("brand", "TCAM")
//	if _, err := s.Next(); err != nil {
//	    // navigation refused, nothing changed
//	}
//
// # Navigation
//
// Moving forward is allowed by one step at a time and only when the current
// step validates. Back never discards values. Values change only through
// SetField, item edits, a discriminant switch (which clears the fields
// exclusive to the previous branch) or Reset.
//
// # Lifecycle
//
//	Step[0..N-1] --BeginSubmit--> Submitting --Succeed--> Success --Reset--> Step[0]
//	                                         \--Fail----> Failed  --Dismiss--> Step[N-1]
//
// Summarize projects the value tree for the review step without modifying
// it.
package wizard
