// Package ui provides non-interactive terminal components for the gwcfg CLI.
//
// The components render once and exit; the interactive wizard lives in
// internal/wizard/tui.
//
//   - Header: command banner showing the command and target gateway
//   - Progress: progress bar and step list built from submission snapshots
//   - Result: success, warning and failure boxes with troubleshooting tips
//   - RenderSummary / RenderTable: review boxes and list tables
//
// SubmissionRunner strings them together for answer-file submissions:
//
//	runner := ui.NewSubmissionRunner(ui.NewHeader("Add Device", "gwcfg add device",
//	    ui.Param{Key: "Gateway", Value: target.BaseURL}), os.Stdout)
//
//	res, err := runner.Run(plan, func(observe func(submit.Result)) (submit.Result, error) {
//	    res := submit.Run(ctx, plan, observe)
//	    flows.Finish(session, res)
//	    return res, nil
//	})
//
// # Logging Integration
//
// zap logging is silent unless --log-level or GWCFG_LOG_LEVEL is set, so
// the curated output here is displayed cleanly.
package ui
