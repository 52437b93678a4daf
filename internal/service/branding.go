// Package service contains the business logic of the proforma application.
//
// This file implements the branding service, which keeps the letterhead logo
// in blob storage.
package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// BrandingService manages the logo printed on every document.
type BrandingService interface {
	// UploadLogo validates, normalizes and stores a new logo, replacing any
	// existing one. Returns domain.EINVALID for unsupported or undecodable
	// images and domain.ETOOLARGE for oversized uploads.
	UploadLogo(ctx context.Context, data io.Reader) error

	// Logo returns the stored PNG, or nil if none has been uploaded.
	Logo(ctx context.Context) ([]byte, error)

	// RemoveLogo deletes the stored logo.
	RemoveLogo(ctx context.Context) error
}

// =============================================================================
// Implementation
// =============================================================================

type brandingService struct {
	storage   storage.Storage
	processor LogoProcessor
	logger    *slog.Logger
}

// NewBrandingService creates a new BrandingService.
func NewBrandingService(store storage.Storage, processor LogoProcessor, logger *slog.Logger) BrandingService {
	return &brandingService{
		storage:   store,
		processor: processor,
		logger:    logger,
	}
}

func (s *brandingService) UploadLogo(ctx context.Context, data io.Reader) error {
	const op = "branding.upload_logo"

	raw, err := io.ReadAll(io.LimitReader(data, LogoMaxUploadBytes+1))
	if err != nil {
		return domain.Internal(err, op, "failed to read upload")
	}
	if len(raw) > LogoMaxUploadBytes {
		return &domain.Error{Code: domain.ETOOLARGE, Op: op, Message: "Logo must be 5 MB or smaller."}
	}

	contentType := http.DetectContentType(raw)
	if !storage.IsAllowedImageType(contentType) {
		return domain.NewValidationError(op, "logo", "Logo must be a PNG, JPEG or GIF image.")
	}

	png, width, height, err := s.processor.Normalize(bytes.NewReader(raw), LogoMaxWidth, LogoMaxHeight)
	if err != nil {
		return domain.NewValidationError(op, "logo", "Logo could not be read as an image.")
	}

	err = s.storage.Put(ctx, storage.LogoKey, bytes.NewReader(png), storage.PutOptions{
		ContentType: "image/png",
		Overwrite:   true,
		MaxSize:     LogoMaxUploadBytes,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			return domain.Wrap(err, domain.ETOOLARGE, op, "Logo must be 5 MB or smaller.")
		}
		return domain.Internal(err, op, "failed to store logo")
	}

	s.logger.Info("logo updated",
		"original_width", width,
		"original_height", height,
		"stored_bytes", len(png),
	)
	return nil
}

func (s *brandingService) Logo(ctx context.Context) ([]byte, error) {
	const op = "branding.logo"

	rc, _, err := s.storage.Get(ctx, storage.LogoKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to load logo")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read logo")
	}
	return data, nil
}

func (s *brandingService) RemoveLogo(ctx context.Context) error {
	const op = "branding.remove_logo"

	if err := s.storage.Delete(ctx, storage.LogoKey); err != nil {
		return domain.Internal(err, op, "failed to delete logo")
	}
	s.logger.Info("logo removed")
	return nil
}

var _ BrandingService = (*brandingService)(nil)
