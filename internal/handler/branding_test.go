package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/proforma/internal/domain"
)

func multipartLogo(t *testing.T, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logo", "logo.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/settings/logo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBrandingHandler_UploadLogo(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
		wantMsg  string
	}{
		{"stored", nil, "success", "Logo updated. It will appear on new documents."},
		{"too large", domain.Errorf(domain.ETOOLARGE, "branding.upload_logo", "Logo must be 5 MB or smaller."), "error", "Logo must be 5 MB or smaller."},
		{"not an image", domain.NewValidationError("branding.upload_logo", "logo", "Logo could not be read as an image."), "error", "Logo could not be read as an image."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uploaded []byte
			svc := &mockBrandingService{UploadLogoFunc: func(ctx context.Context, data io.Reader) error {
				uploaded, _ = io.ReadAll(data)
				return tt.err
			}}
			h := NewBrandingHandler(svc, testLogger())

			req, ws := withSession(multipartLogo(t, []byte("png-bytes")))
			rec := httptest.NewRecorder()
			h.UploadLogo(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "png-bytes", string(uploaded))
			notice := ws.View(time.Now()).Notice
			require.NotNil(t, notice)
			assert.Equal(t, tt.wantKind, notice.Kind)
			assert.Equal(t, tt.wantMsg, notice.Message)
		})
	}
}

func TestBrandingHandler_UploadLogo_NoFile(t *testing.T) {
	h := NewBrandingHandler(&mockBrandingService{}, testLogger())

	req, ws := withSession(formRequest(http.MethodPost, "/settings/logo", nil))
	rec := httptest.NewRecorder()
	h.UploadLogo(rec, req)

	notice := ws.View(time.Now()).Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Please choose an image to upload.", notice.Message)
}

func TestBrandingHandler_ServeLogo(t *testing.T) {
	tests := []struct {
		name       string
		logo       []byte
		err        error
		wantStatus int
	}{
		{"stored", []byte("png"), nil, http.StatusOK},
		{"none", nil, nil, http.StatusNotFound},
		{"storage failure", nil, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBrandingService{LogoFunc: func(ctx context.Context) ([]byte, error) {
				return tt.logo, tt.err
			}}
			h := NewBrandingHandler(svc, testLogger())

			req, _ := withSession(httptest.NewRequest(http.MethodGet, "/brand/logo", nil))
			rec := httptest.NewRecorder()
			h.ServeLogo(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
				assert.Equal(t, "png", rec.Body.String())
			}
		})
	}
}

func TestBrandingHandler_RemoveLogo(t *testing.T) {
	removed := false
	h := NewBrandingHandler(&mockBrandingService{RemoveLogoFunc: func(ctx context.Context) error {
		removed = true
		return nil
	}}, testLogger())

	req, _ := withSession(formRequest(http.MethodPost, "/settings/logo/delete", nil))
	rec := httptest.NewRecorder()
	h.RemoveLogo(rec, req)

	assert.True(t, removed)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
