package relay

import "encoding/json"

// Outcome classifies a verification for metrics and the audit trail.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeCheckerError   Outcome = "checker_error"  // transport or parse failure
	OutcomeRepeat         Outcome = "repeat"         // diagnostic already seen
	OutcomeHint           Outcome = "hint"           // translated into canned hints
	OutcomeDiagnostic     Outcome = "diagnostic"     // augmented log passed through
	OutcomeRecommendation Outcome = "recommendation" // checker sent output instead of a log
	OutcomeUnknown        Outcome = "unknown"        // failure status with nothing to show
)

// Result is what the relay hands back to callers. It serializes to exactly one of
// {"status": "ok"}, {"error": "..."} or {"recommendation": "..."}.
type Result struct {
	Outcome Outcome
	Text    string // error or recommendation text, empty for OutcomeOK

	CheckerStatus int    // remote status, -1 when the checker never answered
	CodeHash      string // sha256 of the submission
}

func okResult() Result {
	return Result{Outcome: OutcomeOK, CheckerStatus: 0}
}

func errorResult(outcome Outcome, status int, text string) Result {
	return Result{Outcome: outcome, Text: text, CheckerStatus: status}
}

// OK reports whether the proof was accepted.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Key returns the JSON key the result is published under.
func (r Result) Key() string {
	switch r.Outcome {
	case OutcomeOK:
		return "status"
	case OutcomeRecommendation:
		return "recommendation"
	default:
		return "error"
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Outcome == OutcomeOK {
		return json.Marshal(map[string]string{"status": "ok"})
	}
	return json.Marshal(map[string]string{r.Key(): r.Text})
}
