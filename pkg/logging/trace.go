package logging

import "log/slog"

// EnableTrace turns on per-sample logs. Off by default; a heading stream at 10 Hz is noisy.
var EnableTrace = false

// Trace logs a message at DEBUG level, but only if EnableTrace is true.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
