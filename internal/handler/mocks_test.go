package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/DukeRupert/proforma/internal/session"
)

// =============================================================================
// Renderer
// =============================================================================

// recordingRenderer captures the last render instead of executing templates.
type recordingRenderer struct {
	name   string
	status int
	data   interface{}
}

func (r *recordingRenderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	r.RenderHTTPStatus(w, http.StatusOK, name, data)
}

func (r *recordingRenderer) RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	r.name, r.status, r.data = name, status, data
	w.WriteHeader(status)
}

// =============================================================================
// Services
// =============================================================================

type mockQuoteService struct {
	AddItemFunc      func(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error)
	RemoveItemFunc   func(ctx context.Context, ws *session.Workspace, id string) error
	SetModeFunc      func(ctx context.Context, ws *session.Workspace, rateOnly bool) error
	UpdateClientFunc func(ctx context.Context, ws *session.Workspace, client domain.ClientDetails) error
	ResetFunc        func(ctx context.Context, ws *session.Workspace) error
	ExportFunc       func(ctx context.Context, ws *session.Workspace, format report.Format) (*service.Export, error)
	SendFunc         func(ctx context.Context, ws *session.Workspace) (string, error)
	SendRequestFunc  func(ctx context.Context, req service.SendRequest) error
	ShareLinkFunc    func(ctx context.Context, ws *session.Workspace, phone string) (string, error)
}

func (m *mockQuoteService) AddItem(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error) {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, ws, draft)
	}
	return domain.LineItem{}, nil
}

func (m *mockQuoteService) RemoveItem(ctx context.Context, ws *session.Workspace, id string) error {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, ws, id)
	}
	return nil
}

func (m *mockQuoteService) SetMode(ctx context.Context, ws *session.Workspace, rateOnly bool) error {
	if m.SetModeFunc != nil {
		return m.SetModeFunc(ctx, ws, rateOnly)
	}
	return nil
}

func (m *mockQuoteService) UpdateClient(ctx context.Context, ws *session.Workspace, client domain.ClientDetails) error {
	if m.UpdateClientFunc != nil {
		return m.UpdateClientFunc(ctx, ws, client)
	}
	return nil
}

func (m *mockQuoteService) Reset(ctx context.Context, ws *session.Workspace) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, ws)
	}
	return nil
}

func (m *mockQuoteService) Export(ctx context.Context, ws *session.Workspace, format report.Format) (*service.Export, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, ws, format)
	}
	return &service.Export{}, nil
}

func (m *mockQuoteService) Send(ctx context.Context, ws *session.Workspace) (string, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, ws)
	}
	return "", nil
}

func (m *mockQuoteService) SendRequest(ctx context.Context, req service.SendRequest) error {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, req)
	}
	return nil
}

func (m *mockQuoteService) ShareLink(ctx context.Context, ws *session.Workspace, phone string) (string, error) {
	if m.ShareLinkFunc != nil {
		return m.ShareLinkFunc(ctx, ws, phone)
	}
	return "", nil
}

type mockAuthService struct {
	LoginFunc   func(ctx context.Context, username, password string) (string, error)
	LogoutFunc  func(ctx context.Context, token string)
	SessionFunc func(ctx context.Context, token string) (*session.Session, bool)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, token)
	}
}

func (m *mockAuthService) Session(ctx context.Context, token string) (*session.Session, bool) {
	if m.SessionFunc != nil {
		return m.SessionFunc(ctx, token)
	}
	return nil, false
}

type mockBrandingService struct {
	UploadLogoFunc func(ctx context.Context, data io.Reader) error
	LogoFunc       func(ctx context.Context) ([]byte, error)
	RemoveLogoFunc func(ctx context.Context) error
}

func (m *mockBrandingService) UploadLogo(ctx context.Context, data io.Reader) error {
	if m.UploadLogoFunc != nil {
		return m.UploadLogoFunc(ctx, data)
	}
	return nil
}

func (m *mockBrandingService) Logo(ctx context.Context) ([]byte, error) {
	if m.LogoFunc != nil {
		return m.LogoFunc(ctx)
	}
	return nil, nil
}

func (m *mockBrandingService) RemoveLogo(ctx context.Context) error {
	if m.RemoveLogoFunc != nil {
		return m.RemoveLogoFunc(ctx)
	}
	return nil
}

type mockLimiter struct {
	resets int
}

func (m *mockLimiter) ResetLogin(r *http.Request) {
	m.resets++
}

var (
	_ service.QuoteService    = (*mockQuoteService)(nil)
	_ service.AuthService     = (*mockAuthService)(nil)
	_ service.BrandingService = (*mockBrandingService)(nil)
	_ LoginLimiter            = (*mockLimiter)(nil)
	_ TemplateRenderer        = (*recordingRenderer)(nil)
)
