package api

// VerifyRequest is the JSON form of a /verify/ submission. The same field may also
// arrive as a query parameter or a form value named "v".
type VerifyRequest struct {
	V *string `json:"v"` // nil when the field is absent
}

// LearnResponse is returned by /learnhammer/.
type LearnResponse struct {
	About []string `json:"about"`
}

// ErrorResponse is returned for API errors. Verification failures are not API
// errors: they come back as 200 with a relay result body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Database   bool   `json:"database"`
	CheckerURL string `json:"checker_url"`
	Failures   int    `json:"seen_failures"`
	Uptime     string `json:"uptime"`
}
