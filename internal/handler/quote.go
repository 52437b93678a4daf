package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/proforma/internal/auth"
	"github.com/DukeRupert/proforma/internal/csrf"
	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/DukeRupert/proforma/internal/session"
)

// MaxSendRequestBytes bounds the JSON body of POST /api/send-email, which
// may carry a base64 PDF.
const MaxSendRequestBytes = 25 << 20

// =============================================================================
// Handler Configuration
// =============================================================================

// QuoteHandler serves the quote editor and its delivery endpoints.
//
// Every editing command redirects back to the editor (post/redirect/get)
// and leaves a one-shot notice in the workspace.
//
// Routes handled:
// - GET  /                    -> Show
// - POST /items               -> AddItem
// - POST /items/{id}/delete   -> RemoveItem
// - POST /mode                -> SetMode
// - POST /client              -> UpdateClient
// - POST /reset               -> Reset
// - GET  /quote.pdf           -> Download (PDF)
// - GET  /quote.xlsx          -> Download (XLSX)
// - POST /send                -> Send
// - GET  /share/whatsapp      -> ShareWhatsApp
// - POST /api/send-email      -> SendEmailAPI
type QuoteHandler struct {
	quotes         service.QuoteService
	branding       service.BrandingService
	renderer       TemplateRenderer
	business       service.Business
	mailConfigured bool
	logger         *slog.Logger
	now            func() time.Time
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(
	quotes service.QuoteService,
	branding service.BrandingService,
	renderer TemplateRenderer,
	business service.Business,
	mailConfigured bool,
	logger *slog.Logger,
) *QuoteHandler {
	return &QuoteHandler{
		quotes:         quotes,
		branding:       branding,
		renderer:       renderer,
		business:       business,
		mailConfigured: mailConfigured,
		logger:         logger,
		now:            time.Now,
	}
}

// =============================================================================
// Template Data Types
// =============================================================================

// QuotePageData is passed to the quote editor template.
type QuotePageData struct {
	CurrentPath    string
	CSRFToken      string
	Username       string
	Business       service.Business
	Quote          domain.Snapshot
	Draft          domain.LineItemDraft
	Errors         map[string]string
	Flash          *Flash
	HasLogo        bool
	MailConfigured bool
	Busy           bool
}

// =============================================================================
// GET / - Quote Editor
// =============================================================================

// Show renders the quote editor.
func (h *QuoteHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, nil)
}

func (h *QuoteHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, errs map[string]string) {
	sess := auth.GetSession(r.Context())
	ws := sess.Workspace
	view := ws.View(h.now())

	data := QuotePageData{
		CurrentPath:    r.URL.Path,
		CSRFToken:      csrf.Token(r.Context()),
		Username:       sess.Username,
		Business:       h.business,
		Quote:          view.Snapshot,
		Draft:          view.Draft,
		Errors:         errs,
		Flash:          flashFromNotice(view.Notice),
		HasLogo:        h.hasLogo(r),
		MailConfigured: h.mailConfigured,
		Busy:           ws.Busy(),
	}
	h.renderer.RenderHTTPStatus(w, status, "quote", data)
}

func (h *QuoteHandler) hasLogo(r *http.Request) bool {
	if h.branding == nil {
		return false
	}
	logo, err := h.branding.Logo(r.Context())
	if err != nil {
		h.logger.Warn("failed to load logo", "error", err)
		return false
	}
	return logo != nil
}

// =============================================================================
// Editing Commands
// =============================================================================

// AddItem appends the submitted line item. A missing item name re-renders
// the editor with the draft kept and the field error shown.
func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, ws, domain.Invalid("quote.add_item", "Invalid form submission."))
		return
	}

	draft := domain.LineItemDraft{
		ItemName: r.PostFormValue("item_name"),
		Size:     r.PostFormValue("size"),
		Area:     r.PostFormValue("area"),
		Rate:     r.PostFormValue("rate"),
		Finish:   r.PostFormValue("finish"),
		Remarks:  r.PostFormValue("remarks"),
	}

	item, err := h.quotes.AddItem(r.Context(), ws, draft)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			h.renderPage(w, r, http.StatusBadRequest, ve.Fields)
			return
		}
		h.fail(w, r, ws, err)
		return
	}

	h.done(w, r, ws, "success", "Added "+item.ItemName+".")
}

// RemoveItem deletes a line item by id.
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	if err := h.quotes.RemoveItem(r.Context(), ws, r.PathValue("id")); err != nil {
		h.fail(w, r, ws, err)
		return
	}
	h.done(w, r, ws, "", "")
}

// SetMode switches between rate-only and full-calculation mode.
func (h *QuoteHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	rateOnly, err := strconv.ParseBool(r.PostFormValue("rate_only"))
	if err != nil {
		h.fail(w, r, ws, domain.Invalid("quote.set_mode", "Invalid mode."))
		return
	}

	if err := h.quotes.SetMode(r.Context(), ws, rateOnly); err != nil {
		h.fail(w, r, ws, err)
		return
	}

	msg := "Showing totals for every item."
	if rateOnly {
		msg = "Showing rates only. Totals are hidden."
	}
	h.done(w, r, ws, "info", msg)
}

// UpdateClient saves the client details.
func (h *QuoteHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	client := domain.ClientDetails{
		Name:  r.PostFormValue("client_name"),
		Phone: r.PostFormValue("client_phone"),
		Email: r.PostFormValue("client_email"),
	}

	if err := h.quotes.UpdateClient(r.Context(), ws, client); err != nil {
		h.fail(w, r, ws, err)
		return
	}
	h.done(w, r, ws, "success", "Client details saved.")
}

// Reset clears the quote.
func (h *QuoteHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	if err := h.quotes.Reset(r.Context(), ws); err != nil {
		h.fail(w, r, ws, err)
		return
	}
	h.done(w, r, ws, "info", "Started a new quote.")
}

// =============================================================================
// Delivery
// =============================================================================

// Download returns a handler that exports the quote in format as an
// attachment.
func (h *QuoteHandler) Download(format report.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r)
		export, err := h.quotes.Export(r.Context(), ws, format)
		if err != nil {
			h.fail(w, r, ws, err)
			return
		}

		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(export.Data)
	}
}

// Send emails the quote PDF to the client.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	to, err := h.quotes.Send(r.Context(), ws)
	if err != nil {
		h.fail(w, r, ws, err)
		return
	}

	h.done(w, r, ws, "success", "Proforma invoice sent to "+to+".")
}

// ShareWhatsApp redirects to the WhatsApp share link. The phone query
// parameter overrides the client's number.
func (h *QuoteHandler) ShareWhatsApp(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r)
	link, err := h.quotes.ShareLink(r.Context(), ws, r.URL.Query().Get("phone"))
	if err != nil {
		h.fail(w, r, ws, err)
		return
	}
	http.Redirect(w, r, link, http.StatusSeeOther)
}

// SendEmailAPI is the JSON endpoint for sending a quote built outside the
// workspace. It answers {"success":true} or a JSONResult error.
func (h *QuoteHandler) SendEmailAPI(w http.ResponseWriter, r *http.Request) {
	const op = "api.send_email"

	r.Body = http.MaxBytesReader(w, r.Body, MaxSendRequestBytes)

	var req service.SendRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "Request body is too large"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}

	if err := h.quotes.SendRequest(r.Context(), req); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ValidationErrorResponse(w, r, h.logger, err)
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, JSONResult{Success: true})
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the quote routes. requireSession guards every
// route; limitDelivery additionally throttles the outbound ones.
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux, requireSession, limitDelivery func(http.Handler) http.Handler) {
	guard := func(fn http.HandlerFunc) http.Handler {
		return requireSession(fn)
	}
	outbound := func(fn http.HandlerFunc) http.Handler {
		return requireSession(limitDelivery(fn))
	}

	mux.Handle("GET /{$}", guard(h.Show))
	mux.Handle("POST /items", guard(h.AddItem))
	mux.Handle("POST /items/{id}/delete", guard(h.RemoveItem))
	mux.Handle("POST /mode", guard(h.SetMode))
	mux.Handle("POST /client", guard(h.UpdateClient))
	mux.Handle("POST /reset", guard(h.Reset))
	mux.Handle("GET /quote.pdf", guard(h.Download(report.FormatPDF)))
	mux.Handle("GET /quote.xlsx", guard(h.Download(report.FormatXLSX)))
	mux.Handle("POST /send", outbound(h.Send))
	mux.Handle("GET /share/whatsapp", outbound(h.ShareWhatsApp))
	mux.Handle("POST /api/send-email", outbound(h.SendEmailAPI))
}

// =============================================================================
// Helpers
// =============================================================================

// done finishes a successful command: it leaves the notice (if any) and
// redirects to the editor.
func (h *QuoteHandler) done(w http.ResponseWriter, r *http.Request, ws *session.Workspace, kind, msg string) {
	if msg != "" {
		ws.Notify(kind, msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail reports err. JSON clients get an error body; browsers are sent back
// to the editor with the message as an error notice.
func (h *QuoteHandler) fail(w http.ResponseWriter, r *http.Request, ws *session.Workspace, err error) {
	if acceptsJSON(r) {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	code := domain.ErrorCode(err)
	logError(h.logger, r, err, code, domain.ErrorOp(err), ErrorCodeToHTTPStatus(code))
	ws.Notify("error", domain.ErrorMessage(err))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func flashFromNotice(n *session.Notice) *Flash {
	if n == nil {
		return nil
	}
	return &Flash{Type: n.Kind, Message: n.Message}
}

// fieldErrors returns the per-field messages of a validation error, or nil.
func fieldErrors(err error) map[string]string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
