package main

import (
	"encoding/json"
	"time"

	"github.com/liamcoop/prereq/character"
	"github.com/liamcoop/prereq/prereq"
)

// API request and response models

// CreateRequirementRequest is the request body for creating a stored
// requirement. Requirement is the wire-format document.
type CreateRequirementRequest struct {
	Name        string          `json:"name"`
	Requirement json.RawMessage `json:"requirement"`
	Active      bool            `json:"active"`
}

// UpdateRequirementRequest is the request body for updating a stored
// requirement.
type UpdateRequirementRequest struct {
	Name        string          `json:"name"`
	Requirement json.RawMessage `json:"requirement"`
	Active      bool            `json:"active"`
}

// RequirementResponse represents a stored requirement in API responses.
type RequirementResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Requirement json.RawMessage `json:"requirement"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RequirementsListResponse is the response for listing requirements.
type RequirementsListResponse struct {
	Requirements []RequirementResponse `json:"requirements"`
}

// CheckRequest is the request body for an inline check: a requirement
// document plus the character's current facts.
type CheckRequest struct {
	Requirement json.RawMessage  `json:"requirement"`
	Character   *character.Sheet `json:"character"`
}

// CheckResponse carries the full result tree plus the flattened
// failure reasons.
type CheckResponse struct {
	Result         *prereq.CheckResult `json:"result"`
	FailureReasons []string            `json:"failureReasons,omitempty"`
}

// EvaluateRequest is the request body for checking stored requirements
// against a character. Requirements is optional; when empty, all
// active requirements are evaluated.
type EvaluateRequest struct {
	Character    *character.Sheet `json:"character"`
	Requirements []string         `json:"requirements,omitempty"`
}

// EvaluateResponse maps requirement ID to its result; entries that
// failed to evaluate appear under errors instead.
type EvaluateResponse struct {
	Results        map[string]*prereq.CheckResult `json:"results"`
	Errors         map[string]string              `json:"errors,omitempty"`
	EvaluationTime string                         `json:"evaluationTime"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
