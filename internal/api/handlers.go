package api

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hammer-relay/internal/monitor"
	"hammer-relay/internal/relay"
	"hammer-relay/internal/storage"
)

const maxMultipartMemory = 1 << 20

type Handlers struct {
	relay       *relay.Relay
	primer      *relay.Primer
	db          *storage.DB
	auditWriter *storage.AuditWriter
	metrics     *monitor.Metrics
}

func NewHandlers(rl *relay.Relay, primer *relay.Primer, db *storage.DB, auditWriter *storage.AuditWriter, metrics *monitor.Metrics) *Handlers {
	return &Handlers{
		relay:       rl,
		primer:      primer,
		db:          db,
		auditWriter: auditWriter,
		metrics:     metrics,
	}
}

func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

// HandleVerify relays a proof to the checker. Whatever the checker says, the
// response is 200: callers tell failures apart by the body's key.
func (h *Handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	code, ok, err := submittedCode(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "request body too large", "PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, r)
			return
		}
		writeError(w, "invalid request: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	if !ok {
		writeError(w, "field v is required", "MISSING_FIELD", http.StatusUnprocessableEntity, r)
		return
	}

	h.metrics.CodeSizeBytes.Observe(float64(len(code)))
	h.metrics.ActiveVerifications.Inc()
	defer h.metrics.ActiveVerifications.Dec()

	start := time.Now()
	result := h.relay.Verify(r.Context(), code)
	duration := time.Since(start)

	h.metrics.RecordVerification(string(result.Outcome), duration.Seconds())

	log.Info().
		Str("request_id", RequestIDFromContext(r.Context())).
		Str("code_hash", result.CodeHash).
		Str("outcome", string(result.Outcome)).
		Int("checker_status", result.CheckerStatus).
		Dur("duration", duration).
		Msg("verification completed")

	h.logAudit(result, len(code), start, r)

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleLearn(w http.ResponseWriter, r *http.Request) {
	lines, err := h.primer.Lines()
	if err != nil {
		log.Error().Err(err).Str("path", h.primer.Path()).Msg("reading primer failed")
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, "primer resource not found", "RESOURCE_NOT_FOUND", http.StatusInternalServerError, r)
			return
		}
		writeError(w, "reading primer failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, LearnResponse{About: lines})
}

func (h *Handlers) HandleGetVerification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "verification ID required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	// ids are UUIDs; anything else cannot exist and would fail the cast in Postgres
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, "verification not found", "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	v, err := h.db.GetVerification(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, "verification not found", "NOT_FOUND", http.StatusNotFound, r)
			return
		}
		log.Error().Err(err).Str("verification_id", id).Msg("loading verification failed")
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) HandleListVerifications(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	q := r.URL.Query()
	filter := storage.VerificationFilter{
		Outcome:  q.Get("outcome"),
		CodeHash: q.Get("code_hash"),
		Limit:    100,
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, "limit must be an integer", "INVALID_REQUEST", http.StatusBadRequest, r)
			return
		}
		filter.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, "offset must be a non-negative integer", "INVALID_REQUEST", http.StatusBadRequest, r)
			return
		}
		filter.Offset = n
	}

	vs, err := h.db.ListVerifications(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("listing verifications failed")
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, vs)
}

func (h *Handlers) logAudit(result relay.Result, codeBytes int, start time.Time, r *http.Request) {
	if h.auditWriter == nil {
		return
	}

	completedAt := time.Now()
	h.auditWriter.Log(&storage.Verification{
		CodeHash:      result.CodeHash,
		CodeBytes:     codeBytes,
		Outcome:       string(result.Outcome),
		CheckerStatus: result.CheckerStatus,
		Message:       result.Text,
		DurationMS:    completedAt.Sub(start).Milliseconds(),
		RequestID:     RequestIDFromContext(r.Context()),
		RequestIP:     r.RemoteAddr,
		CreatedAt:     start,
		CompletedAt:   &completedAt,
	})
}

// submittedCode finds the "v" field in the query string, a form body or a JSON
// body, in that order. ok is false when no source carries it; an empty value
// still counts as present.
func submittedCode(r *http.Request) (code string, ok bool, err error) {
	if q := r.URL.Query(); q.Has("v") {
		return q.Get("v"), true, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return "", false, nil
			}
			return "", false, err
		}
		if req.V == nil {
			return "", false, nil
		}
		return *req.V, true, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", false, err
		}
		if r.PostForm.Has("v") {
			return r.PostForm.Get("v"), true, nil
		}

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return "", false, err
		}
		if vals := r.MultipartForm.Value["v"]; len(vals) > 0 {
			return vals[0], true, nil
		}
	}

	return "", false, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
