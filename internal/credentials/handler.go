package credentials

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/limpio-app/limpio/internal/platform/httpx"
	"github.com/limpio-app/limpio/internal/shared"
)

// Handler exposes the OAuth connect flow and grant management.
type Handler struct {
	logger *slog.Logger
	vault  *Vault
}

// NewHandler constructs a credentials Handler.
func NewHandler(logger *slog.Logger, vault *Vault) *Handler {
	return &Handler{logger: logger, vault: vault}
}

// MountRoutes attaches the OAuth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/connect", h.connect)
	r.Get("/callback", h.callback)
	r.Get("/status", h.status)
	r.Delete("/", h.revoke)
}

// connect replies with the provider consent URL. The session id doubles
// as the CSRF state, verified on callback.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	url := h.vault.OAuthConfig().AuthCodeURL(sess.ID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	if q.Get("state") != sess.ID {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "oauth state mismatch")
		return
	}
	code := q.Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing authorization code")
		return
	}

	token, err := h.vault.OAuthConfig().Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Provider Error", "token exchange failed")
		return
	}

	accountID := shared.AccountIDFromContext(r.Context())
	if err := h.vault.Save(r.Context(), accountID, ProviderGoogle, token); err != nil {
		h.logger.Error("save credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	cred, err := h.vault.Status(r.Context(), shared.AccountIDFromContext(r.Context()), ProviderGoogle)
	if errors.Is(err, ErrNoCredential) {
		httpx.JSON(w, http.StatusOK, map[string]any{"connected": false})
		return
	}
	if err != nil {
		h.logger.Error("credential status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"provider":  cred.Provider,
		"expiry":    cred.Expiry.Format(time.RFC3339),
	})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	err := h.vault.Revoke(r.Context(), shared.AccountIDFromContext(r.Context()), ProviderGoogle)
	if errors.Is(err, ErrNoCredential) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err != nil {
		h.logger.Error("revoke credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
