// Package store persists requirement trees as wire-format documents.
// The checking engine knows nothing about it; the server composes the
// two. Documents go through the strict codec on the way in and out, so
// a requirement that loads successfully can never fail structurally
// during a check.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/liamcoop/prereq/prereq"
)

// StoredRequirement is a named, versionable requirement document.
type StoredRequirement struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Requirement prereq.Requirement `json:"-"`
	Active      bool               `json:"active"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// RequirementStore manages requirement persistence and retrieval.
type RequirementStore interface {
	// Add a new requirement
	Add(req *StoredRequirement) error

	// Get a requirement by ID
	Get(id string) (*StoredRequirement, error)

	// List all active requirements
	ListActive() ([]*StoredRequirement, error)

	// Update an existing requirement
	Update(req *StoredRequirement) error

	// Delete a requirement
	Delete(id string) error
}

// InMemoryStore implements RequirementStore using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryStore struct {
	reqs map[string]*StoredRequirement
	mu   sync.RWMutex
}

// NewInMemoryStore creates a new in-memory requirement store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reqs: make(map[string]*StoredRequirement),
	}
}

// Add adds a new requirement to the store, setting both timestamps.
func (s *InMemoryStore) Add(req *StoredRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reqs[req.ID]; exists {
		return fmt.Errorf("requirement with ID %s already exists", req.ID)
	}

	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.reqs[req.ID] = req
	return nil
}

// Get retrieves a requirement by ID.
func (s *InMemoryStore) Get(id string) (*StoredRequirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.reqs[id]
	if !exists {
		return nil, fmt.Errorf("requirement with ID %s not found", id)
	}
	return req, nil
}

// ListActive returns all active requirements.
func (s *InMemoryStore) ListActive() ([]*StoredRequirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*StoredRequirement
	for _, req := range s.reqs {
		if req.Active {
			active = append(active, req)
		}
	}
	return active, nil
}

// Update updates an existing requirement, preserving CreatedAt.
func (s *InMemoryStore) Update(req *StoredRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.reqs[req.ID]
	if !exists {
		return fmt.Errorf("requirement with ID %s not found", req.ID)
	}

	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now()
	s.reqs[req.ID] = req
	return nil
}

// Delete removes a requirement from the store.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reqs[id]; !exists {
		return fmt.Errorf("requirement with ID %s not found", id)
	}

	delete(s.reqs, id)
	return nil
}
