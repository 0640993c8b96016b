package storage

import "time"

// Verification is a stored audit record of one /verify/ call.
// The submitted code itself is never stored, only its hash.
type Verification struct {
	ID            string     `json:"id" db:"id"`
	CodeHash      string     `json:"code_hash" db:"code_hash"`
	CodeBytes     int        `json:"code_bytes" db:"code_bytes"`
	Outcome       string     `json:"outcome" db:"outcome"` // ok, hint, diagnostic, repeat, recommendation, checker_error, unknown
	CheckerStatus int        `json:"checker_status" db:"checker_status"`
	Message       string     `json:"message,omitempty" db:"message"`
	DurationMS    int64      `json:"duration_ms" db:"duration_ms"`
	RequestID     string     `json:"request_id,omitempty" db:"request_id"`
	RequestIP     string     `json:"request_ip" db:"request_ip"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// VerificationFilter provides criteria for querying verifications.
type VerificationFilter struct {
	Outcome  string
	CodeHash string
	Limit    int
	Offset   int
}
