package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/liamcoop/prereq/prereq"
)

// PostgresAuditSink writes one row per evaluation to the check_audit
// table: the requirement document, who it was checked against, and the
// full result tree. Sink failures are the engine's to log; this type
// just reports them.
type PostgresAuditSink struct {
	db *sql.DB
}

// NewPostgresAuditSink creates an audit sink over db.
func NewPostgresAuditSink(db *sql.DB) *PostgresAuditSink {
	return &PostgresAuditSink{db: db}
}

// Record stores one audit entry.
func (s *PostgresAuditSink) Record(entry prereq.AuditEntry) error {
	doc, err := prereq.Marshal(entry.Requirement)
	if err != nil {
		return fmt.Errorf("failed to encode requirement: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO check_audit (requirement, provider, passed, result, checked_at)
		VALUES ($1, $2, $3, $4, $5)
	`, doc, entry.Provider, entry.Result.Passed, result, entry.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to insert audit row: %w", err)
	}
	return nil
}

var _ prereq.AuditSink = (*PostgresAuditSink)(nil)
