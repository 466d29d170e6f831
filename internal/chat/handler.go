package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/moviebox/ragchat/internal/api"
	"github.com/moviebox/ragchat/internal/metrics"
	inats "github.com/moviebox/ragchat/internal/nats"
)

// MaxBodyBytes caps the size of a posted transcript.
const MaxBodyBytes = 1 << 20

// InternalErrorBody is the only body sent for internal failures.
const InternalErrorBody = "Internal Server Error"

const eventPublishTimeout = 5 * time.Second

// Responder answers a validated transcript.
type Responder interface {
	Respond(ctx context.Context, t Transcript) (*Reply, error)
}

// EventPublisher receives one event per answered or failed chat request.
type EventPublisher interface {
	PublishChatEvent(ctx context.Context, event inats.ChatEvent) error
}

type Handler struct {
	responder Responder
	validator *Validator
	profile   ProfileInfo
	events    EventPublisher
}

// NewHandler creates the chat endpoint. events may be nil.
func NewHandler(responder Responder, validator *Validator, profile ProfileInfo, events EventPublisher) *Handler {
	return &Handler{
		responder: responder,
		validator: validator,
		profile:   profile,
		events:    events,
	}
}

// Chat handles POST /api/chat. The body is a JSON array of messages and the
// reply is the assistant's text as text/plain.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := chimw.GetReqID(r.Context())

	var transcript Transcript
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&transcript); err != nil {
		h.fail(w, r, start, len(transcript), fmt.Errorf("decoding transcript: %w", err))
		return
	}

	if err := h.validator.Validate(transcript); err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		slog.Info("rejected chat request", "request_id", requestID, "reason", err)
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.responder.Respond(r.Context(), transcript)
	if err != nil {
		h.fail(w, r, start, len(transcript), err)
		return
	}

	writeText(w, http.StatusOK, reply.Text)
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("flushing chat response", "request_id", requestID, "error", err)
	}

	metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	slog.Info("answered chat request",
		"request_id", requestID,
		"messages", len(transcript),
		"sources", reply.SourceIDs,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	h.publish(r, inats.ChatEvent{
		RequestID:    requestID,
		Profile:      h.profile.Name,
		Status:       inats.StatusCompleted,
		MessageCount: len(transcript),
		SourceIDs:    reply.SourceIDs,
		DurationMs:   time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
}

// Profile handles GET /api/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.profile)
}

// fail logs the cause and answers with the fixed internal error body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, start time.Time, messages int, err error) {
	requestID := chimw.GetReqID(r.Context())
	metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	slog.Error("chat request failed", "request_id", requestID, "error", err)

	writeText(w, http.StatusInternalServerError, InternalErrorBody)

	h.publish(r, inats.ChatEvent{
		RequestID:    requestID,
		Profile:      h.profile.Name,
		Status:       inats.StatusFailed,
		MessageCount: messages,
		Error:        err.Error(),
		DurationMs:   time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
}

func (h *Handler) publish(r *http.Request, event inats.ChatEvent) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), eventPublishTimeout)
	defer cancel()

	if err := h.events.PublishChatEvent(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		slog.Warn("publishing chat event", "request_id", event.RequestID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
