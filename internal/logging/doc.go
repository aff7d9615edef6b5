// Package logging provides structured logging for framegrab.
//
// Every framegrab invocation is short-lived, but a recording spans several of
// them (start, pause, stop). Logs are therefore appended as JSON lines to a
// single file in the state directory so one recording can be followed across
// processes by its session ID.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(stateDir, "info", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithSession(session.ID).WithOperation("stop")
//	log.Info("recorder exited", "pid", pid, "forced", forced)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"recorder exited","session_id":"...","operation":"stop","pid":4242,"forced":false}
//
// # Log Rotation
//
// framegrab.log is rotated by size into framegrab.log.1 (newest) through
// framegrab.log.N as set by [RotationConfig], gzipping backups when Compress
// is set.
//
// # Reading History
//
// [ReadEntries], [FilterLogs] and [WriteEntries] back the "framegrab logs"
// command:
//
//	entries, err := logging.ReadEntries(logger.Path())
//	entries = logging.FilterLogs(entries, logging.LogFilter{Level: "WARN", SessionID: id})
//	logging.WriteEntries(os.Stdout, entries, "text")
//
// # Testing
//
// Use [NopLogger] to discard output.
package logging
