// Package submit executes a submission plan: an ordered sequence of
// dependent backend calls derived from a finished wizard.
//
// A Plan has root steps (for example "create model") followed by
// independent items (for example one per parameter). Steps run strictly
// one after another; later steps read IDs produced by earlier ones from the
// run's Scope.
//
// # Failure policy
//
//   - Critical: the run aborts with StatusException and a *FatalError.
//   - Required: the item is counted as failed, its remaining steps are
//     skipped, and the run continues with the next item.
//   - Optional: the failure is logged and the item continues.
//
// Nothing is rolled back. Progress percentages are cosmetic:
//
//	Base + RootWeight*k/len(Root)              root step k
//	Base + RootWeight + i*per + j*per/len(S)   item i step j, per = ItemWeight/len(Items)
package submit
