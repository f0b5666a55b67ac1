// Package logging provides structured logging for gwcfg.
//
// This package wraps a process-global zap logger with convenience functions
// for the log lines the console emits: backend requests, submission steps,
// per-item failures and fixture server traffic.
//
// # Silent by default
//
// The logger is a no-op unless a level is supplied through --log-level or
// the GWCFG_LOG_LEVEL environment variable. Output goes to stderr so that
// table and JSON output on stdout stays machine readable.
//
// # Usage
//
//	if err := logging.Initialize(""); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	logging.Info("Gateway selected",
//	    zap.String("gateway", name),
//	    zap.String("base_url", url),
//	)
//
// # Domain helpers
//
//	logging.LogRequest(method, path, requestID, status, elapsed)
//	logging.LogSubmissionStep(plan, item, step, status, percent)
//	logging.LogItemFailure(plan, item, step, err)
//	logging.LogFatalStep(plan, step, err)
package logging
