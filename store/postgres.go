package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/liamcoop/prereq/prereq"
	_ "github.com/lib/pq"
)

// PostgresStore implements RequirementStore backed by PostgreSQL. The
// requirement tree is stored as its wire-format JSON document and
// decoded through the strict codec on every read, so rows corrupted
// out-of-band surface as InvalidRequirement at load time.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed RequirementStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts a new requirement into the database.
func (s *PostgresStore) Add(req *StoredRequirement) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM requirements WHERE id = $1)
	`, req.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check requirement existence: %w", err)
	}
	if exists {
		return fmt.Errorf("requirement with ID %s already exists", req.ID)
	}

	doc, err := prereq.Marshal(req.Requirement)
	if err != nil {
		return fmt.Errorf("failed to encode requirement: %w", err)
	}

	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO requirements (id, name, document, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.Name, doc, req.Active, req.CreatedAt, req.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert requirement: %w", err)
	}

	return nil
}

// Get retrieves a requirement by ID.
func (s *PostgresStore) Get(id string) (*StoredRequirement, error) {
	var req StoredRequirement
	var doc []byte
	err := s.db.QueryRow(`
		SELECT id, name, document, active, created_at, updated_at
		FROM requirements
		WHERE id = $1
	`, id).Scan(
		&req.ID,
		&req.Name,
		&doc,
		&req.Active,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("requirement %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}

	req.Requirement, err = prereq.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode requirement %s: %w", id, err)
	}

	return &req, nil
}

// ListActive returns all active requirements, oldest first.
func (s *PostgresStore) ListActive() ([]*StoredRequirement, error) {
	rows, err := s.db.Query(`
		SELECT id, name, document, active, created_at, updated_at
		FROM requirements
		WHERE active = true
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active requirements: %w", err)
	}
	defer rows.Close()

	var reqs []*StoredRequirement
	for rows.Next() {
		var req StoredRequirement
		var doc []byte
		if err := rows.Scan(&req.ID, &req.Name, &doc, &req.Active,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		req.Requirement, err = prereq.Unmarshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode requirement %s: %w", req.ID, err)
		}
		reqs = append(reqs, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirements: %w", err)
	}

	return reqs, nil
}

// Update modifies an existing requirement.
func (s *PostgresStore) Update(req *StoredRequirement) error {
	doc, err := prereq.Marshal(req.Requirement)
	if err != nil {
		return fmt.Errorf("failed to encode requirement: %w", err)
	}

	req.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE requirements
		SET name = $1, document = $2, active = $3, updated_at = $4
		WHERE id = $5
	`, req.Name, doc, req.Active, req.UpdatedAt, req.ID)

	if err != nil {
		return fmt.Errorf("failed to update requirement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("requirement %s not found", req.ID)
	}

	return nil
}

// Delete removes a requirement from the database.
func (s *PostgresStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM requirements
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete requirement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("requirement %s not found", id)
	}

	return nil
}
