package handlers

import (
	"time"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RefreshResponse is the JSON summary the scheduler endpoint returns.
type RefreshResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
