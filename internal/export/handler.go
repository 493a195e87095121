package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/platform/httpx"
	"github.com/limpio-app/limpio/internal/quotes"
	"github.com/limpio-app/limpio/internal/shared"
)

// Handler exposes PDF export endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an export Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotes/{id}", h.quotePDF)
	r.Get("/invoices/{id}", h.invoicePDF)
	r.Post("/invoices/batch", h.invoiceBatch)
}

func (h *Handler) quotePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	pdf, name, err := h.service.QuotePDF(r.Context(), shared.AccountIDFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	servePDF(w, name, pdf)
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	pdf, name, err := h.service.InvoicePDF(r.Context(), shared.AccountIDFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	servePDF(w, name, pdf)
}

type batchRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) invoiceBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || len(req.IDs) == 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	archive, err := h.service.InvoiceBatchZip(r.Context(), shared.AccountIDFromContext(r.Context()), req.IDs)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="facturas.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func servePDF(w http.ResponseWriter, name string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quotes.ErrNotFound), errors.Is(err, invoices.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("export handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Export Failed", err.Error())
	}
}
