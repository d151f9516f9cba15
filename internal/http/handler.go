package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/xcc-relay/internal/logger"
	"github.com/cesargomez89/xcc-relay/internal/push"
	"github.com/cesargomez89/xcc-relay/internal/store"
)

type Handler struct {
	DB         *store.DB
	Dispatcher *push.Dispatcher
	// WebhookSecret enables signature verification; empty means open mode.
	WebhookSecret string
	Logger        *logger.Logger
}

func NewHandler(db *store.DB, dispatcher *push.Dispatcher, webhookSecret string, log *logger.Logger) *Handler {
	return &Handler{
		DB:            db,
		Dispatcher:    dispatcher,
		WebhookSecret: webhookSecret,
		Logger:        log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.Webhook)
	r.Post("/register", h.RegisterDevice)
	r.Get("/status", h.Status)
	r.Get("/healthz", h.Health)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}
