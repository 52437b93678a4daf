package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DukeRupert/proforma/internal/auth"
	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/service"
)

// BrandingHandler manages the letterhead logo.
//
// Routes handled:
// - POST /settings/logo        -> UploadLogo
// - POST /settings/logo/delete -> RemoveLogo
// - GET  /brand/logo           -> ServeLogo
type BrandingHandler struct {
	branding service.BrandingService
	logger   *slog.Logger
}

// NewBrandingHandler creates a new BrandingHandler.
func NewBrandingHandler(branding service.BrandingService, logger *slog.Logger) *BrandingHandler {
	return &BrandingHandler{
		branding: branding,
		logger:   logger,
	}
}

// UploadLogo stores the uploaded "logo" file.
func (h *BrandingHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("logo")
	if err != nil {
		h.back(w, r, "error", "Please choose an image to upload.")
		return
	}
	defer file.Close()

	if err := h.branding.UploadLogo(r.Context(), file); err != nil {
		code := domain.ErrorCode(err)
		logError(h.logger, r, err, code, domain.ErrorOp(err), ErrorCodeToHTTPStatus(code))
		h.back(w, r, "error", domain.ErrorMessage(err))
		return
	}

	h.logger.Info("logo updated")
	h.back(w, r, "success", "Logo updated. It will appear on new documents.")
}

// RemoveLogo deletes the stored logo.
func (h *BrandingHandler) RemoveLogo(w http.ResponseWriter, r *http.Request) {
	if err := h.branding.RemoveLogo(r.Context()); err != nil {
		code := domain.ErrorCode(err)
		logError(h.logger, r, err, code, domain.ErrorOp(err), ErrorCodeToHTTPStatus(code))
		h.back(w, r, "error", domain.ErrorMessage(err))
		return
	}
	h.back(w, r, "info", "Logo removed.")
}

// ServeLogo returns the stored logo as PNG.
func (h *BrandingHandler) ServeLogo(w http.ResponseWriter, r *http.Request) {
	logo, err := h.branding.Logo(r.Context())
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if logo == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(logo)))
	w.Header().Set("Cache-Control", "private, no-cache")
	_, _ = w.Write(logo)
}

// RegisterRoutes registers the branding routes behind requireSession.
func (h *BrandingHandler) RegisterRoutes(mux *http.ServeMux, requireSession func(http.Handler) http.Handler) {
	mux.Handle("POST /settings/logo", requireSession(http.HandlerFunc(h.UploadLogo)))
	mux.Handle("POST /settings/logo/delete", requireSession(http.HandlerFunc(h.RemoveLogo)))
	mux.Handle("GET /brand/logo", requireSession(http.HandlerFunc(h.ServeLogo)))
}

// back leaves a notice in the caller's workspace and returns to the editor.
func (h *BrandingHandler) back(w http.ResponseWriter, r *http.Request, kind, msg string) {
	if ws := auth.GetWorkspace(r); ws != nil {
		ws.Notify(kind, msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
