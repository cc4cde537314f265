package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/bridge"
	"github.com/viant/steer/service/store"
	"github.com/viant/steer/tracing"
)

const (
	headerETag    = "ETag"
	headerIfMatch = "If-Match"
	headerUserID  = "X-User-ID"

	actionFeedback = "feedback"
	actionApprove  = "approve"
)

// DefaultFeedbackTimeout bounds how long a feedback call blocks awaiting the
// workflow's next plan revision before degrading to a retryable error.
const DefaultFeedbackTimeout = 60 * time.Second

// Handler implements the review protocol surface:
//
//	GET  /api/v1/tasks/{task}/review
//	POST /api/v1/tasks/{task}/review
type Handler struct {
	store           store.Service
	bridge          bridge.Service
	feedbackTimeout time.Duration
	mux             *http.ServeMux
}

// Option customizes the handler.
type Option func(*Handler)

// WithFeedbackTimeout bounds the synchronous feedback wait.
func WithFeedbackTimeout(timeout time.Duration) Option {
	return func(h *Handler) { h.feedbackTimeout = timeout }
}

// New creates the review protocol handler.
func New(reviewStore store.Service, signalBridge bridge.Service, options ...Option) *Handler {
	h := &Handler{
		store:           reviewStore,
		bridge:          signalBridge,
		feedbackTimeout: DefaultFeedbackTimeout,
	}
	for _, option := range options {
		option(h)
	}
	h.mux = http.NewServeMux()
	h.mux.HandleFunc("GET /api/v1/tasks/{task}/review", h.handleGet)
	h.mux.HandleFunc("POST /api/v1/tasks/{task}/review", h.handlePost)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// reviewResponse is the GET snapshot shape.
type reviewResponse struct {
	Status      review.Status `json:"status"`
	Round       int           `json:"round"`
	Version     uint64        `json:"version"`
	CurrentPlan string        `json:"current_plan"`
	Rounds      []*roundView  `json:"rounds"`
}

type roundView struct {
	RoundNumber   int       `json:"round_number"`
	Message       string    `json:"message"`
	VersionBefore uint64    `json:"version_before"`
	VersionAfter  uint64    `json:"version_after"`
	Timestamp     time.Time `json:"timestamp"`
}

// planResponse is the feedback round-trip shape.
type planResponse struct {
	Plan planView `json:"plan"`
}

type planView struct {
	Message string        `json:"message"`
	Round   int           `json:"round"`
	Version uint64        `json:"version"`
	Intent  review.Intent `json:"intent"`
}

type mutationRequest struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "review.get", "SERVER")
	span.WithAttributes(map[string]string{"task.id": r.PathValue("task"), "user.id": r.Header.Get(headerUserID)})
	defer span.OnDone()

	taskID := r.PathValue("task")
	record, err := h.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			// Polling clients learn the review has not started yet; a bare
			// 404 would be indistinguishable from a wrong task id.
			h.writeJSON(w, span, http.StatusOK, &reviewResponse{Status: review.StatusNone, Rounds: []*roundView{}})
			return
		}
		h.writeError(w, span, http.StatusInternalServerError, err)
		return
	}
	etag := strconv.FormatUint(record.Version, 10)
	if match := strings.Trim(r.Header.Get("If-None-Match"), `"`); match != "" && match == etag {
		w.Header().Set(headerETag, etag)
		w.WriteHeader(http.StatusNotModified)
		span.SetStatusFromHTTPCode(http.StatusNotModified)
		return
	}
	response := &reviewResponse{
		Status:      record.Status,
		Round:       record.Round,
		Version:     record.Version,
		CurrentPlan: record.CurrentPlan,
		Rounds:      make([]*roundView, 0, len(record.Rounds)),
	}
	for _, round := range record.Rounds {
		response.Rounds = append(response.Rounds, &roundView{
			RoundNumber:   round.Number,
			Message:       round.Message,
			VersionBefore: round.VersionBefore,
			VersionAfter:  round.VersionAfter,
			Timestamp:     round.Timestamp,
		})
	}
	w.Header().Set(headerETag, etag)
	h.writeJSON(w, span, http.StatusOK, response)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "review.mutate", "SERVER")
	span.WithAttributes(map[string]string{"task.id": r.PathValue("task"), "user.id": r.Header.Get(headerUserID)})
	defer span.OnDone()

	taskID := r.PathValue("task")
	request := &mutationRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, span, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	expectedVersion, err := parseIfMatch(r.Header.Get(headerIfMatch))
	if err != nil {
		h.writeError(w, span, http.StatusBadRequest, err)
		return
	}
	switch request.Action {
	case actionFeedback:
		h.applyFeedback(ctx, w, span, taskID, request.Message, expectedVersion)
	case actionApprove:
		h.applyApproval(ctx, w, span, taskID, expectedVersion)
	default:
		h.writeError(w, span, http.StatusBadRequest, errors.New("unsupported action"))
	}
}

func (h *Handler) applyFeedback(ctx context.Context, w http.ResponseWriter, span *tracing.Span, taskID, message string, expectedVersion uint64) {
	if message == "" {
		h.writeError(w, span, http.StatusBadRequest, errors.New("feedback message is required"))
		return
	}
	if err := h.store.ApplyFeedback(ctx, taskID, message, expectedVersion); err != nil {
		h.writeTaxonomyError(w, span, err)
		return
	}
	if err := h.bridge.SignalFeedback(ctx, taskID, message); err != nil {
		// Release the in-flight guard so a retry is not rejected as a
		// conflict once the workflow is reachable again.
		_ = h.store.ClearPending(ctx, taskID)
		h.writeTaxonomyError(w, span, err)
		return
	}
	record, err := h.bridge.AwaitNextPublish(ctx, taskID, expectedVersion, h.feedbackTimeout)
	if err != nil {
		// The eventual update is not lost - a later GET reflects it once the
		// workflow callback lands.
		h.writeTaxonomyError(w, span, err)
		return
	}
	w.Header().Set(headerETag, strconv.FormatUint(record.Version, 10))
	h.writeJSON(w, span, http.StatusOK, &planResponse{Plan: planView{
		Message: record.CurrentPlan,
		Round:   record.Round,
		Version: record.Version,
		Intent:  record.CurrentIntent,
	}})
}

func (h *Handler) applyApproval(ctx context.Context, w http.ResponseWriter, span *tracing.Span, taskID string, expectedVersion uint64) {
	record, err := h.store.ApplyApproval(ctx, taskID, expectedVersion)
	if err != nil {
		h.writeTaxonomyError(w, span, err)
		return
	}
	if err = h.bridge.SignalApproval(ctx, taskID); err != nil {
		h.writeTaxonomyError(w, span, err)
		return
	}
	w.Header().Set(headerETag, strconv.FormatUint(record.Version, 10))
	h.writeJSON(w, span, http.StatusOK, map[string]string{"status": string(review.StatusApproved)})
}

// writeTaxonomyError maps the review error taxonomy onto HTTP codes: client
// errors are final, 5xx are retryable.
func (h *Handler) writeTaxonomyError(w http.ResponseWriter, span *tracing.Span, err error) {
	switch {
	case errors.Is(err, review.ErrNotFound):
		h.writeError(w, span, http.StatusNotFound, err)
	case errors.Is(err, review.ErrInvalidState):
		h.writeError(w, span, http.StatusBadRequest, err)
	case errors.Is(err, review.ErrVersionConflict):
		h.writeError(w, span, http.StatusConflict, err)
	case errors.Is(err, review.ErrWorkflowUnavailable):
		h.writeError(w, span, http.StatusServiceUnavailable, err)
	case errors.Is(err, review.ErrTimeout):
		h.writeError(w, span, http.StatusGatewayTimeout, err)
	default:
		h.writeError(w, span, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, span *tracing.Span, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
	span.SetStatusFromHTTPCode(code)
}

func (h *Handler) writeError(w http.ResponseWriter, span *tracing.Span, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(&errorResponse{Error: err.Error()})
	span.SetStatusFromHTTPCode(code)
}

func parseIfMatch(value string) (uint64, error) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return 0, errors.New("If-Match header is required")
	}
	version, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("If-Match header must carry the current version")
	}
	return version, nil
}
