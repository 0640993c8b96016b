package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hammer-relay/internal/checker"
	"hammer-relay/internal/monitor"
)

// Relay forwards proof code to the checker and turns its verdict into a
// short answer, adding CoqHammer hints where it recognizes the failure.
type Relay struct {
	checker  checker.Checker
	failures *FailureSet
	metrics  *monitor.Metrics
	tracer   *monitor.Tracer
}

func New(c checker.Checker, failures *FailureSet, metrics *monitor.Metrics, tracer *monitor.Tracer) *Relay {
	if failures == nil {
		failures = NewFailureSet()
	}
	if tracer == nil {
		tracer = monitor.NewTracer()
	}
	return &Relay{
		checker:  c,
		failures: failures,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Failures exposes the set of diagnostics already returned.
func (r *Relay) Failures() *FailureSet {
	return r.failures
}

// Verify checks code and translates the outcome. It never returns an error:
// checker failures become error results like any other.
func (r *Relay) Verify(ctx context.Context, code string) Result {
	hash := CodeHash(code)
	ctx, span := r.tracer.StartSpan(ctx, "verify",
		monitor.AttrCodeHash.String(hash),
		monitor.AttrCodeBytes.Int(len(code)),
	)
	defer span.End()

	log.Debug().Str("code_hash", hash).Int("bytes", len(code)).Msg("verifying submission")

	start := time.Now()
	res, err := r.checker.Check(ctx, code)
	r.metrics.CheckerLatency.Observe(time.Since(start).Seconds())

	var result Result
	if err != nil {
		span.RecordError(err)
		r.metrics.RecordCheckerError(checker.Kind(err))
		log.Warn().Err(err).Str("code_hash", hash).Msg("proof checker call failed")

		msg := err.Error()
		if usesSauto(code) {
			msg += sautoFailureHint
		}
		result = errorResult(OutcomeCheckerError, -1, msg)
	} else {
		span.SetAttributes(monitor.AttrCheckerStatus.Int(res.Status))
		result = r.translate(code, res)
	}

	result.CodeHash = hash
	span.SetAttributes(monitor.AttrOutcome.String(string(result.Outcome)))
	return result
}

func (r *Relay) translate(code string, res *checker.Result) Result {
	switch {
	case res.Status == 0:
		return okResult()

	case res.Log != "":
		augmented := Annotate(res.Log, code)

		if r.failures.Add(augmented) {
			return errorResult(OutcomeRepeat, res.Status, repeatMessage)
		}
		r.metrics.SeenFailures.Set(float64(r.failures.Len()))

		if hints, ok := matchHints(augmented); ok {
			return errorResult(OutcomeHint, res.Status, hints)
		}
		if usesSauto(code) {
			return errorResult(OutcomeDiagnostic, res.Status, augmented+sautoCaseworkHint)
		}
		return errorResult(OutcomeDiagnostic, res.Status, augmented)

	case res.HasOutput:
		return Result{Outcome: OutcomeRecommendation, Text: res.Output, CheckerStatus: res.Status}

	default:
		return errorResult(OutcomeUnknown, res.Status,
			fmt.Sprintf("proof checker returned status %d with no log or output", res.Status))
	}
}

// CodeHash identifies a submission without storing it.
func CodeHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
