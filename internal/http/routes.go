package httpapp

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/xcc-relay/internal/http/dto"
	"github.com/cesargomez89/xcc-relay/internal/webhook"
)

// Webhook handles CI event deliveries: verify, classify, mutate the ledger,
// sweep stale rows, fan out wake pushes. Sweep and push failures never fail
// the delivery; Apple's webhook retry policy is too coarse to lean on.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.WithDelivery(uuid.NewString())

	rawBody, err := io.ReadAll(r.Body)
	if err != nil || len(rawBody) == 0 {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "empty payload"})
		return
	}

	if h.WebhookSecret != "" {
		header := r.Header.Get(webhook.SignatureHeader)
		if !webhook.VerifySignature(rawBody, h.WebhookSecret, header) {
			log.Warn("Rejected webhook with invalid signature")
			h.writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid signature"})
			return
		}
	}

	event, err := webhook.Parse(rawBody)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json payload"})
		return
	}
	if !event.Complete() {
		h.writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: "missing event fields"})
		return
	}

	log = log.WithBuild(event.BuildID, event.AppID)

	var state string
	switch event.Classify() {
	case webhook.ClassStarted:
		if err := h.DB.RecordStarted(r.Context(), event.BuildID, event.AppID, event.WorkflowID); err != nil {
			log.Error("Failed to record started build", "error", err)
			h.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "persistence failure"})
			return
		}
		state = "running"
	case webhook.ClassFinished:
		if err := h.DB.RecordFinished(r.Context(), event.BuildID); err != nil {
			log.Error("Failed to record finished build", "error", err)
			h.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "persistence failure"})
			return
		}
		state = "completed"
	default:
		// 200 rather than 204 so the ignored marker can ride in the body.
		h.writeJSON(w, http.StatusOK, dto.IgnoredResponse{OK: true, Event: event.Type, Ignored: true})
		return
	}

	if err := h.DB.SweepStale(r.Context()); err != nil {
		log.Warn("Stale sweep failed", "error", err)
	}

	stats := h.Dispatcher.Dispatch(r.Context(), event.AppID, event.Type)
	log.Info("Processed webhook", "event", event.Type, "state", state,
		"push_attempted", stats.Attempted, "push_sent", stats.Sent)

	h.writeJSON(w, http.StatusOK, dto.WebhookResponse{
		OK:    true,
		Event: event.Type,
		State: state,
		Push:  &stats,
	})
}

// RegisterDevice upserts a device subscription and opportunistically sweeps
// subscriptions that have gone 30 days without a refresh.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json payload"})
		return
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: dto.ToResponse(errs)})
		return
	}

	if err := h.DB.UpsertSubscription(r.Context(), req.DeviceToken, req.AppID, req.AppBundleID); err != nil {
		h.Logger.Error("Failed to upsert subscription", "app_id", req.AppID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "persistence failure"})
		return
	}

	if err := h.DB.SweepInactiveSubscriptions(r.Context()); err != nil {
		h.Logger.Warn("Subscription sweep failed", "error", err)
	}

	h.writeJSON(w, http.StatusOK, dto.OKResponse{OK: true})
}

// Status reports the running-build count for one app, or globally when no
// appId is given.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.URL.Query().Get("appId"))

	status, err := h.DB.CountRunning(r.Context(), appID)
	if err != nil {
		h.Logger.Error("Failed to count running builds", "app_id", appID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "query failed"})
		return
	}

	var singleStartedAt *string
	if status.SingleStartedAt != nil {
		formatted := status.SingleStartedAt.UTC().Format(time.RFC3339)
		singleStartedAt = &formatted
	}

	h.writeJSON(w, http.StatusOK, dto.StatusResponse{
		BuildsRunning:        status.Running(),
		RunningCount:         status.RunningCount,
		SingleBuildStartedAt: singleStartedAt,
		CheckedAt:            time.Now().UTC().Format(time.RFC3339),
	})
}

// Health pings the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "database unreachable"})
		return
	}
	h.writeJSON(w, http.StatusOK, dto.OKResponse{OK: true})
}
