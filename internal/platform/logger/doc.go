// Package logger builds the application's log/slog logger and carries
// request-scoped loggers through context.Context.
//
// Output is JSON on stdout. When running under CI the handler also stamps
// every record with CI metadata so failing runs are easier to trace.
package logger
