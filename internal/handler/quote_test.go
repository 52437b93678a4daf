package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/proforma/internal/auth"
	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/email"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/DukeRupert/proforma/internal/session"
)

// =============================================================================
// Helpers
// =============================================================================

func newTestQuoteHandler(quotes *mockQuoteService, branding *mockBrandingService) (*QuoteHandler, *recordingRenderer) {
	renderer := &recordingRenderer{}
	h := NewQuoteHandler(quotes, branding, renderer, service.Business{Name: "Our Own Marble House"}, true, testLogger())
	return h, renderer
}

// withSession attaches a fresh session to req.
func withSession(req *http.Request) (*http.Request, *session.Workspace) {
	ws := session.NewWorkspace()
	sess := &session.Session{Username: "admin", Workspace: ws}
	return req.WithContext(auth.SetSession(req.Context(), sess)), ws
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func passThrough(next http.Handler) http.Handler { return next }

// =============================================================================
// Show
// =============================================================================

func TestQuoteHandler_Show(t *testing.T) {
	branding := &mockBrandingService{LogoFunc: func(ctx context.Context) ([]byte, error) {
		return []byte("png"), nil
	}}
	h, renderer := newTestQuoteHandler(&mockQuoteService{}, branding)

	req, ws := withSession(httptest.NewRequest(http.MethodGet, "/", nil))
	ws.Notify("success", "Client details saved.")
	rec := httptest.NewRecorder()
	h.Show(rec, req)

	require.Equal(t, "quote", renderer.name)
	assert.Equal(t, http.StatusOK, rec.Code)

	data, ok := renderer.data.(QuotePageData)
	require.True(t, ok)
	assert.Equal(t, "admin", data.Username)
	assert.Equal(t, "Our Own Marble House", data.Business.Name)
	assert.True(t, data.HasLogo)
	assert.True(t, data.MailConfigured)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "success", data.Flash.Type)
	assert.Equal(t, "₹0.00", data.Quote.GrandTotal)
}

// =============================================================================
// Editing Commands
// =============================================================================

func TestQuoteHandler_AddItem(t *testing.T) {
	var got domain.LineItemDraft
	quotes := &mockQuoteService{AddItemFunc: func(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error) {
		got = draft
		return domain.LineItem{ID: "1", ItemName: draft.ItemName}, nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, ws := withSession(formRequest(http.MethodPost, "/items", url.Values{
		"item_name": {"Italian Marble"},
		"size":      {"24x24"},
		"area":      {"100"},
		"rate":      {"250"},
		"remarks":   {"Polished"},
	}))
	rec := httptest.NewRecorder()
	h.AddItem(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, domain.LineItemDraft{ItemName: "Italian Marble", Size: "24x24", Area: "100", Rate: "250", Remarks: "Polished"}, got)

	notice := ws.View(h.now()).Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Added Italian Marble.", notice.Message)
}

func TestQuoteHandler_AddItem_ValidationError(t *testing.T) {
	quotes := &mockQuoteService{AddItemFunc: func(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error) {
		return domain.LineItem{}, domain.NewValidationError("quote.add_item", "item_name", "item name required")
	}}
	h, renderer := newTestQuoteHandler(quotes, nil)

	req, _ := withSession(formRequest(http.MethodPost, "/items", url.Values{"rate": {"10"}}))
	rec := httptest.NewRecorder()
	h.AddItem(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "quote", renderer.name)
	data := renderer.data.(QuotePageData)
	assert.Equal(t, "item name required", data.Errors["item_name"])
}

func TestQuoteHandler_RemoveItem_UsesPathID(t *testing.T) {
	var removed string
	quotes := &mockQuoteService{RemoveItemFunc: func(ctx context.Context, ws *session.Workspace, id string) error {
		removed = id
		return nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, passThrough, passThrough)

	req, _ := withSession(formRequest(http.MethodPost, "/items/abc-123/delete", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "abc-123", removed)
}

func TestQuoteHandler_SetMode(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantCalled bool
		wantKind   string
	}{
		{"rate only", "true", true, "info"},
		{"full", "false", true, "info"},
		{"invalid", "maybe", false, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			quotes := &mockQuoteService{SetModeFunc: func(ctx context.Context, ws *session.Workspace, rateOnly bool) error {
				called = true
				assert.Equal(t, tt.value == "true", rateOnly)
				return nil
			}}
			h, _ := newTestQuoteHandler(quotes, nil)

			req, ws := withSession(formRequest(http.MethodPost, "/mode", url.Values{"rate_only": {tt.value}}))
			rec := httptest.NewRecorder()
			h.SetMode(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			notice := ws.View(h.now()).Notice
			require.NotNil(t, notice)
			assert.Equal(t, tt.wantKind, notice.Kind)
		})
	}
}

func TestQuoteHandler_Reset(t *testing.T) {
	called := false
	quotes := &mockQuoteService{ResetFunc: func(ctx context.Context, ws *session.Workspace) error {
		called = true
		return nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, ws := withSession(formRequest(http.MethodPost, "/reset", url.Values{}))
	rec := httptest.NewRecorder()
	h.Reset(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, called)
	notice := ws.View(h.now()).Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Started a new quote.", notice.Message)
}

func TestQuoteHandler_UpdateClient(t *testing.T) {
	var got domain.ClientDetails
	quotes := &mockQuoteService{UpdateClientFunc: func(ctx context.Context, ws *session.Workspace, client domain.ClientDetails) error {
		got = client
		return nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, _ := withSession(formRequest(http.MethodPost, "/client", url.Values{
		"client_name":  {"Asha"},
		"client_phone": {"+91 98765 43210"},
		"client_email": {"asha@example.com"},
	}))
	rec := httptest.NewRecorder()
	h.UpdateClient(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, domain.ClientDetails{Name: "Asha", Phone: "+91 98765 43210", Email: "asha@example.com"}, got)
}

// =============================================================================
// Delivery
// =============================================================================

func TestQuoteHandler_Download(t *testing.T) {
	quotes := &mockQuoteService{ExportFunc: func(ctx context.Context, ws *session.Workspace, format report.Format) (*service.Export, error) {
		require.Equal(t, report.FormatPDF, format)
		return &service.Export{
			Filename:    "Asha Proforma Invoice.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.3"),
		}, nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/quote.pdf", nil))
	rec := httptest.NewRecorder()
	h.Download(report.FormatPDF)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Asha Proforma Invoice.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestQuoteHandler_Download_Conflict(t *testing.T) {
	quotes := &mockQuoteService{ExportFunc: func(ctx context.Context, ws *session.Workspace, format report.Format) (*service.Export, error) {
		return nil, domain.Conflict("quote.export", "Another export or send is already in progress.")
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	t.Run("browser", func(t *testing.T) {
		req, ws := withSession(httptest.NewRequest(http.MethodGet, "/quote.pdf", nil))
		rec := httptest.NewRecorder()
		h.Download(report.FormatPDF)(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		notice := ws.View(h.now()).Notice
		require.NotNil(t, notice)
		assert.Equal(t, "error", notice.Kind)
		assert.Equal(t, "Another export or send is already in progress.", notice.Message)
	})

	t.Run("json", func(t *testing.T) {
		req, _ := withSession(httptest.NewRequest(http.MethodGet, "/quote.pdf", nil))
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.Download(report.FormatPDF)(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var body JSONResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, domain.ECONFLICT, body.Code)
	})
}

func TestQuoteHandler_Send(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
		wantMsg  string
	}{
		{"sent", nil, "success", "Proforma invoice sent to asha@example.com."},
		{"transport failure", domain.Errorf(domain.ETRANSPORT, "quote.send", "%s", email.FailureTimeout.Message()), "error", "Connection timed out. Please try again."},
		{"not configured", domain.Config("quote.send", "Email service not configured"), "error", "Email service not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := &mockQuoteService{SendFunc: func(ctx context.Context, ws *session.Workspace) (string, error) {
				if tt.err != nil {
					return "", tt.err
				}
				return "asha@example.com", nil
			}}
			h, _ := newTestQuoteHandler(quotes, nil)

			req, ws := withSession(formRequest(http.MethodPost, "/send", nil))
			rec := httptest.NewRecorder()
			h.Send(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			notice := ws.View(h.now()).Notice
			require.NotNil(t, notice)
			assert.Equal(t, tt.wantKind, notice.Kind)
			assert.Contains(t, notice.Message, tt.wantMsg)
		})
	}
}

func TestQuoteHandler_Send_NamesDeliveredAddress(t *testing.T) {
	quotes := &mockQuoteService{SendFunc: func(ctx context.Context, ws *session.Workspace) (string, error) {
		// The client details change while the mail is in flight.
		_ = ws.Update(func(q *domain.Quote, _ *domain.LineItemDraft) error {
			q.Client.Email = "someone-else@example.com"
			return nil
		})
		return "asha@example.com", nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, ws := withSession(formRequest(http.MethodPost, "/send", nil))
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	notice := ws.View(h.now()).Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Proforma invoice sent to asha@example.com.", notice.Message)
}

func TestQuoteHandler_ShareWhatsApp(t *testing.T) {
	var gotPhone string
	quotes := &mockQuoteService{ShareLinkFunc: func(ctx context.Context, ws *session.Workspace, phone string) (string, error) {
		gotPhone = phone
		return "https://wa.me/919876543210?text=hi", nil
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/share/whatsapp?phone=%2B91+98765+43210", nil))
	rec := httptest.NewRecorder()
	h.ShareWhatsApp(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://wa.me/919876543210?text=hi", rec.Header().Get("Location"))
	assert.Equal(t, "+91 98765 43210", gotPhone)
}

func TestQuoteHandler_ShareWhatsApp_MissingPhone(t *testing.T) {
	quotes := &mockQuoteService{ShareLinkFunc: func(ctx context.Context, ws *session.Workspace, phone string) (string, error) {
		return "", domain.NewValidationError("share.whatsapp", "phone", "Please enter a phone number")
	}}
	h, _ := newTestQuoteHandler(quotes, nil)

	req, ws := withSession(httptest.NewRequest(http.MethodGet, "/share/whatsapp", nil))
	rec := httptest.NewRecorder()
	h.ShareWhatsApp(rec, req)

	assert.Equal(t, "/", rec.Header().Get("Location"))
	notice := ws.View(h.now()).Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Please enter a phone number", notice.Message)
}

// =============================================================================
// POST /api/send-email
// =============================================================================

func TestQuoteHandler_SendEmailAPI(t *testing.T) {
	validBody := `{
		"clientDetails": {"name": "Asha", "phone": "9876543210", "email": "asha@example.com"},
		"items": [{"itemName": "Granite", "size": "2x2", "area": "10", "rate": "50", "total": "500.00", "remarks": ""}],
		"rateOnlyMode": false,
		"grandTotalText": "₹500.00",
		"documentBytesBase64": ""
	}`

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{"success", validBody, nil, http.StatusOK, "", ""},
		{"malformed json", `{"clientDetails":`, nil, http.StatusBadRequest, domain.EINVALID, "Invalid request body"},
		{"missing email", validBody, domain.NewValidationError("api", "email", "Please enter an email address"), http.StatusBadRequest, domain.EINVALID, "Please enter an email address"},
		{"not configured", validBody, domain.Config("api", "Email service not configured"), http.StatusInternalServerError, domain.ECONFIG, "Email service not configured"},
		{"auth failure", validBody, domain.Errorf(domain.ETRANSPORT, "api", "%s", email.FailureAuth.Message()), http.StatusBadGateway, domain.ETRANSPORT, "Invalid email credentials. Please check the configuration."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.SendRequest
			quotes := &mockQuoteService{SendRequestFunc: func(ctx context.Context, req service.SendRequest) error {
				got = req
				return tt.err
			}}
			h, _ := newTestQuoteHandler(quotes, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req, _ = withSession(req)
			rec := httptest.NewRecorder()
			h.SendEmailAPI(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body JSONResult
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus == http.StatusOK, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantError, body.Error)

			if tt.name == "success" {
				assert.Equal(t, "asha@example.com", got.ClientDetails.Email)
				require.Len(t, got.Items, 1)
				assert.Equal(t, "Granite", got.Items[0].ItemName)
				assert.Equal(t, "₹500.00", got.GrandTotalText)
			}
		})
	}
}
