// Package tui implements the interactive terminal wizards of gwcfg.
//
// Two Bubble Tea models live here:
//   - WizardModel: walks a wizard.Session step by step, validates on Next,
//     shows the review summary and submits the plan with live progress
//   - GatewayPickerModel: scans the network for gateways over mDNS or takes
//     a typed URL
//
// Every screen renders through RenderApplicationContainer, which draws the
// header (application, gateway, edition, operator), the content and a help
// footer built with bubbles/help.
//
// # Editing
//
// The current step is flattened into rows: top-level fields, then for each
// list its items (a heading row plus the item's visible fields) and an add
// action. Enter opens a text or number field for typing; left and right
// cycle select options. Choosing a device's model reloads its parameter
// links from the gateway.
//
// # Submission
//
// Submitting calls flows.Prepare and streams the plan with submit.Stream.
// Each snapshot arrives as a message, so the view never blocks:
//
//	m := tui.NewWizardModel(ctx, session, client, tui.HeaderInfo{Gateway: target.BaseURL})
//	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
//	if res, ok := final.(tui.WizardModel).Outcome(); ok { ... }
//
// A failed submission keeps every value; dismissing it returns to the review
// step. After a success the wizard can be reset for another entry.
package tui
