package main

import "log/slog"

// slogSystemLog adapts collab.SystemLog onto log/slog, per SPEC_FULL's
// ambient-logging note: the host-facing binaries use structured slog
// while the embedded target wires a println-backed shim instead.
type slogSystemLog struct {
	logger *slog.Logger
}

func (s *slogSystemLog) LogHardwareError(reason string) {
	s.logger.Error("hardware error", "reason", reason)
}

func (s *slogSystemLog) LogEvent(phrase string) {
	s.logger.Info("event", "phrase", phrase)
}
