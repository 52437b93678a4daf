// Package service contains the business logic of the proforma application.
//
// This file implements logo normalization for the document letterhead.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// LogoMaxWidth and LogoMaxHeight bound the stored letterhead logo.
	LogoMaxWidth  = 600
	LogoMaxHeight = 200

	// LogoMaxUploadBytes caps the size of an uploaded logo.
	LogoMaxUploadBytes = 5 << 20
)

// =============================================================================
// Interface Definition
// =============================================================================

// LogoProcessor turns an uploaded image into the letterhead logo.
type LogoProcessor interface {
	// Normalize decodes data, fits it within maxWidth x maxHeight keeping the
	// aspect ratio, and re-encodes it as PNG. Returns the PNG bytes and the
	// original width and height.
	Normalize(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

// =============================================================================
// Implementation
// =============================================================================

// imagingProcessor implements LogoProcessor using the imaging library.
type imagingProcessor struct{}

// NewImagingProcessor creates a new logo processor using the imaging library.
func NewImagingProcessor() LogoProcessor {
	return &imagingProcessor{}
}

// Normalize always produces PNG so transparency survives and the PDF
// generator only has to embed one image type. Images already inside the
// bounds are not upscaled.
func (p *imagingProcessor) Normalize(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	out := img
	if width > maxWidth || height > maxHeight {
		out = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode logo: %w", err)
	}

	return buf.Bytes(), width, height, nil
}
