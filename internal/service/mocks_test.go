package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/DukeRupert/proforma/internal/email"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Mock Relay
// =============================================================================

type mockRelay struct {
	mu         sync.Mutex
	configured bool
	SendFunc   func(ctx context.Context, msg email.Message) error
	sent       []email.Message
}

func (m *mockRelay) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

func (m *mockRelay) Configured() bool {
	return m.configured
}

func (m *mockRelay) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

// =============================================================================
// Mock Generator
// =============================================================================

type mockGenerator struct {
	format       report.Format
	GenerateFunc func(ctx context.Context, doc *report.Document, w io.Writer) (int64, error)
	docs         []*report.Document
}

func (m *mockGenerator) Generate(ctx context.Context, doc *report.Document, w io.Writer) (int64, error) {
	m.docs = append(m.docs, doc)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, doc, w)
	}
	n, err := io.WriteString(w, "%"+string(m.format))
	return int64(n), err
}

func (m *mockGenerator) Format() report.Format {
	return m.format
}

// =============================================================================
// Mock Branding
// =============================================================================

type mockBranding struct {
	UploadLogoFunc func(ctx context.Context, data io.Reader) error
	LogoFunc       func(ctx context.Context) ([]byte, error)
	RemoveLogoFunc func(ctx context.Context) error
}

func (m *mockBranding) UploadLogo(ctx context.Context, data io.Reader) error {
	if m.UploadLogoFunc != nil {
		return m.UploadLogoFunc(ctx, data)
	}
	return errors.New("UploadLogoFunc not implemented")
}

func (m *mockBranding) Logo(ctx context.Context) ([]byte, error) {
	if m.LogoFunc != nil {
		return m.LogoFunc(ctx)
	}
	return nil, nil
}

func (m *mockBranding) RemoveLogo(ctx context.Context) error {
	if m.RemoveLogoFunc != nil {
		return m.RemoveLogoFunc(ctx)
	}
	return nil
}

// =============================================================================
// Mock Storage
// =============================================================================

type mockStorage struct {
	PutFunc    func(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error
	GetFunc    func(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, data, opts)
	}
	return errors.New("PutFunc not implemented")
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, storage.ObjectInfo{}, &storage.StorageError{Op: "Get", Key: key, Err: storage.ErrNotFound}
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}
