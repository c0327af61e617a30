package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/msgwebhook/internal/log"
	"github.com/mattjoyce/msgwebhook/internal/message"
	"github.com/mattjoyce/msgwebhook/internal/metrics"
	"github.com/mattjoyce/msgwebhook/internal/store"
)

// Handler ingests signed message deliveries: read body, verify the
// signature, validate, insert. The first failing stage decides the
// response.
type Handler struct {
	config  Config
	store   MessageStore
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a webhook handler, applying defaults to config.
func NewHandler(config Config, store MessageStore, rec Recorder, logger *slog.Logger) *Handler {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Handler{
		config:  config,
		store:   store,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

// outcome is what a stage decided. result is empty when no webhook
// result metric applies.
type outcome struct {
	status int
	body   any
	result metrics.Result
	extra  []any
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	out := h.process(w, r)

	latency := float64(h.now().Sub(start).Microseconds()) / 1000
	h.metrics.RecordHTTPRequest(h.config.Path, out.status)
	if out.result != "" {
		h.metrics.RecordWebhookResult(out.result)
	}
	h.metrics.RecordLatency(latency)
	log.Request(r.Context(), h.logger, log.RequestLine{
		RequestID: requestID,
		Method:    r.Method,
		Path:      h.config.Path,
		Status:    out.status,
		LatencyMS: latency,
		Extra:     out.extra,
	})

	h.respondJSON(w, out.status, out.body)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) outcome {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodySize))
	if err != nil {
		return outcome{
			status: http.StatusBadRequest,
			body:   ErrorResponse{Detail: "Could not read request body"},
			extra:  []any{"result", "error", "reason", "read_body"},
		}
	}

	signature := r.Header.Get(h.config.SignatureHeader)
	if !VerifySignature(h.config.Secret, body, signature) {
		extra := []any{"result", string(metrics.ResultInvalidSignature)}
		switch {
		case h.config.Secret == "":
			extra = append(extra, "reason", "secret_not_configured")
		case signature == "":
			extra = append(extra, "reason", "signature_missing")
		}
		return outcome{
			status: http.StatusUnauthorized,
			body:   ErrorResponse{Detail: "invalid signature"},
			result: metrics.ResultInvalidSignature,
			extra:  extra,
		}
	}

	msg, err := message.Validate(body)
	if err != nil {
		return outcome{
			status: http.StatusUnprocessableEntity,
			body:   ErrorResponse{Detail: err.Error()},
			result: metrics.ResultValidationError,
			extra:  []any{"result", string(metrics.ResultValidationError), "error", err.Error()},
		}
	}

	res, err := h.store.Insert(r.Context(), msg)
	if err != nil {
		return outcome{
			status: http.StatusInternalServerError,
			body:   ErrorResponse{Detail: "Internal server error"},
			result: metrics.ResultError,
			extra:  []any{"result", string(metrics.ResultError), "message_id", msg.ID, "error", err.Error()},
		}
	}

	result, dup := metrics.ResultCreated, false
	if res == store.Duplicate {
		result, dup = metrics.ResultDuplicate, true
	}
	return outcome{
		status: http.StatusOK,
		body:   StatusResponse{Status: "ok"},
		result: result,
		extra:  []any{"message_id", msg.ID, "dup", dup, "result", string(result)},
	}
}

// respondJSON sends a JSON response.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Debug("write webhook response", "error", err)
	}
}
