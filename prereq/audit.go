package prereq

import "time"

// AuditEntry records one completed evaluation: which requirement ran,
// against whom, and what came back.
type AuditEntry struct {
	Requirement Requirement
	Provider    string
	Result      *CheckResult
	Timestamp   time.Time
}

// AuditSink receives one entry per evaluation. Sinks are optional and
// advisory: the engine logs Record errors and returns the result
// regardless, so a sink must never be relied on for correctness.
// Implementations must tolerate concurrent Record calls.
type AuditSink interface {
	Record(entry AuditEntry) error
}
