package application

import "log/slog"

// Module is the attribute value every poll-ledger log line carries.
const Module = "polling-core/poll-ledger"

// ResolveLogger guarantees a non-nil logger for application and worker code
// paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LayerLogger resolves the logger and pre-binds the module and layer
// attributes, so call sites only add event-specific fields.
func LayerLogger(logger *slog.Logger, layer string) *slog.Logger {
	return ResolveLogger(logger).With("module", Module, "layer", layer)
}
