package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/limpio-app/limpio/internal/credentials"
	"github.com/limpio-app/limpio/internal/platform/httpx"
	"github.com/limpio-app/limpio/internal/shared"
)

// Handler exposes calendar sync endpoints.
type Handler struct {
	logger *slog.Logger
	bridge *Bridge
}

// NewHandler constructs a calendar Handler.
func NewHandler(logger *slog.Logger, bridge *Bridge) *Handler {
	return &Handler{logger: logger, bridge: bridge}
}

// MountRoutes attaches sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/push", h.push)
	r.Post("/pull", h.pull)
	r.Post("/import", h.importEvents)
	r.Post("/sync", h.sync)
	r.Get("/records", h.records)
}

// MountWebhook attaches the unauthenticated notification endpoint.
func (h *Handler) MountWebhook(r chi.Router) {
	r.Post("/webhook", h.webhook)
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.bridge.PushAll)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.bridge.PullUpdates)
}

func (h *Handler) importEvents(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.bridge.Import)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.bridge.TwoWaySync)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, accountID int64) (SyncReport, error)) {
	report, err := fn(r.Context(), shared.AccountIDFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	recs, err := h.bridge.Records(r.Context(), shared.AccountIDFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if recs == nil {
		recs = []SyncRecord{}
	}
	httpx.JSON(w, http.StatusOK, recs)
}

// webhook acknowledges provider push notifications. Channel watches are
// not registered yet, so the payload is only logged.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("calendar webhook",
		slog.String("channel_id", r.Header.Get("X-Goog-Channel-ID")),
		slog.String("resource_state", r.Header.Get("X-Goog-Resource-State")))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credentials.ErrNoCredential):
		httpx.Problem(w, http.StatusConflict, "Calendar Not Connected", "connect a Google account before syncing")
	default:
		h.logger.Error("calendar sync", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Sync Failed", err.Error())
	}
}
