// Package service contains the business logic of the proforma application.
//
// This file implements the quote service: the commands that edit a
// workspace's quote and the three delivery paths (document export, email,
// and WhatsApp share link).
package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/email"
	"github.com/DukeRupert/proforma/internal/metrics"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/session"
	"github.com/DukeRupert/proforma/internal/share"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuoteService edits a workspace's quote and delivers it.
type QuoteService interface {
	// AddItem appends the draft as a new line item. On validation failure the
	// submitted values stay in the workspace draft so the form can show them.
	AddItem(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error)

	// RemoveItem deletes a line item. Unknown ids are ignored.
	RemoveItem(ctx context.Context, ws *session.Workspace, id string) error

	// SetMode switches between rate-only and full-calculation mode.
	SetMode(ctx context.Context, ws *session.Workspace, rateOnly bool) error

	// UpdateClient replaces the client details.
	UpdateClient(ctx context.Context, ws *session.Workspace, client domain.ClientDetails) error

	// Reset empties the quote.
	Reset(ctx context.Context, ws *session.Workspace) error

	// Export renders the quote in the given format.
	// Returns domain.ECONFLICT if another export or send is in flight and
	// domain.ERENDER if rendering fails.
	Export(ctx context.Context, ws *session.Workspace, format report.Format) (*Export, error)

	// Send emails the quote as a PDF to the client's email address and
	// returns the address it was sent to.
	// Returns domain.EINVALID when the address is missing, domain.ECONFIG when
	// the mail relay has no credentials, domain.ERENDER when the PDF cannot
	// be produced, and domain.ETRANSPORT when delivery fails.
	Send(ctx context.Context, ws *session.Workspace) (string, error)

	// SendRequest emails a quote submitted through the JSON API, with the
	// same error contract as Send.
	SendRequest(ctx context.Context, req SendRequest) error

	// ShareLink builds the WhatsApp link for the quote. An empty phone uses
	// the client's phone. Returns domain.EINVALID when no number is given.
	ShareLink(ctx context.Context, ws *session.Workspace, phone string) (string, error)
}

// Export is a rendered document ready to download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Business identifies the seller on documents and in email signatures.
type Business struct {
	Name         string
	Headquarters string
	Showroom     string
	Address      string // postal address in the email signature
	Phone        string
	Email        string
}

// Letterhead returns the document header for b.
func (b Business) Letterhead() report.Business {
	return report.Business{
		Name:         b.Name,
		Headquarters: b.Headquarters,
		Showroom:     b.Showroom,
		Phone:        b.Phone,
		Email:        b.Email,
	}
}

// Sender returns the email signature for b.
func (b Business) Sender() email.Sender {
	return email.Sender{
		Name:    b.Name,
		Address: b.Address,
		Phone:   b.Phone,
		Email:   b.Email,
	}
}

// =============================================================================
// Implementation
// =============================================================================

type quoteService struct {
	generators map[report.Format]report.Generator
	relay      email.Relay
	composer   *email.Composer
	branding   BrandingService
	business   Business
	logger     *slog.Logger
	now        func() time.Time
}

// NewQuoteService creates a new QuoteService. branding may be nil, in which
// case documents are rendered without a logo.
func NewQuoteService(
	generators []report.Generator,
	relay email.Relay,
	composer *email.Composer,
	branding BrandingService,
	business Business,
	logger *slog.Logger,
) QuoteService {
	byFormat := make(map[report.Format]report.Generator, len(generators))
	for _, g := range generators {
		byFormat[g.Format()] = g
	}
	return &quoteService{
		generators: byFormat,
		relay:      relay,
		composer:   composer,
		branding:   branding,
		business:   business,
		logger:     logger,
		now:        time.Now,
	}
}

// =============================================================================
// Commands
// =============================================================================

func (s *quoteService) AddItem(ctx context.Context, ws *session.Workspace, draft domain.LineItemDraft) (domain.LineItem, error) {
	var (
		item     domain.LineItem
		rateOnly bool
	)
	err := ws.Update(func(q *domain.Quote, d *domain.LineItemDraft) error {
		*d = draft
		rateOnly = q.RateOnly()
		var err error
		item, err = q.AddItem(d)
		return err
	})
	if err != nil {
		return domain.LineItem{}, err
	}

	metrics.ItemsAdded.WithLabelValues(metrics.ModeLabel(rateOnly)).Inc()
	s.logger.Debug("line item added", "item_id", item.ID, "total", item.Total)
	return item, nil
}

func (s *quoteService) RemoveItem(ctx context.Context, ws *session.Workspace, id string) error {
	return ws.Update(func(q *domain.Quote, _ *domain.LineItemDraft) error {
		q.RemoveItem(id)
		return nil
	})
}

func (s *quoteService) SetMode(ctx context.Context, ws *session.Workspace, rateOnly bool) error {
	err := ws.Update(func(q *domain.Quote, _ *domain.LineItemDraft) error {
		q.SetMode(rateOnly)
		return nil
	})
	if err == nil {
		metrics.ModeSwitches.WithLabelValues(metrics.ModeLabel(rateOnly)).Inc()
	}
	return err
}

func (s *quoteService) UpdateClient(ctx context.Context, ws *session.Workspace, client domain.ClientDetails) error {
	return ws.Update(func(q *domain.Quote, _ *domain.LineItemDraft) error {
		q.Client = client.Normalize()
		return nil
	})
}

func (s *quoteService) Reset(ctx context.Context, ws *session.Workspace) error {
	return ws.Update(func(q *domain.Quote, d *domain.LineItemDraft) error {
		q.Reset()
		*d = domain.LineItemDraft{}
		return nil
	})
}

// =============================================================================
// Delivery
// =============================================================================

func (s *quoteService) Export(ctx context.Context, ws *session.Workspace, format report.Format) (*Export, error) {
	const op = "quote.export"

	release, ok := ws.Begin()
	if !ok {
		return nil, domain.Conflict(op, "Another export or send is already in progress.")
	}
	defer release()

	snap := ws.Snapshot(s.now())
	data, err := s.render(ctx, op, snap, format)
	if err != nil {
		return nil, err
	}

	return &Export{
		Filename:    snap.DownloadFilename(format.Extension()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func (s *quoteService) Send(ctx context.Context, ws *session.Workspace) (string, error) {
	const op = "quote.send"

	release, ok := ws.Begin()
	if !ok {
		return "", domain.Conflict(op, "Another export or send is already in progress.")
	}
	defer release()

	snap := ws.Snapshot(s.now())
	if err := validateRecipient(op, snap.Client.Email); err != nil {
		metrics.EmailFailed("invalid")
		return "", err
	}
	if !s.relay.Configured() {
		metrics.EmailFailed("config")
		return "", domain.Config(op, "Email service not configured")
	}

	pdf, err := s.render(ctx, op, snap, report.FormatPDF)
	if err != nil {
		metrics.EmailFailed("render")
		return "", err
	}

	if err := s.deliver(ctx, op, snap, pdf); err != nil {
		return "", err
	}
	return snap.Client.Email, nil
}

func (s *quoteService) SendRequest(ctx context.Context, req SendRequest) error {
	const op = "quote.send_request"

	req.normalize()
	if err := req.validate(op); err != nil {
		metrics.EmailFailed("invalid")
		return err
	}
	if !s.relay.Configured() {
		metrics.EmailFailed("config")
		return domain.Config(op, "Email service not configured")
	}

	snap, err := req.snapshot(s.now())
	if err != nil {
		metrics.EmailFailed("invalid")
		return err
	}
	if req.GrandTotalText != "" && req.GrandTotalText != snap.GrandTotal {
		s.logger.Warn("submitted grand total differs from recomputed total",
			"submitted", req.GrandTotalText,
			"computed", snap.GrandTotal,
		)
	}

	pdf, err := req.document()
	if err != nil {
		metrics.EmailFailed("invalid")
		return domain.NewValidationError(op, "documentBytesBase64", "Attached document is not valid base64")
	}
	if pdf == nil {
		pdf, err = s.render(ctx, op, snap, report.FormatPDF)
		if err != nil {
			metrics.EmailFailed("render")
			return err
		}
	}

	return s.deliver(ctx, op, snap, pdf)
}

func (s *quoteService) ShareLink(ctx context.Context, ws *session.Workspace, phone string) (string, error) {
	snap := ws.Snapshot(s.now())
	if strings.TrimSpace(phone) == "" {
		phone = snap.Client.Phone
	}

	link, err := share.WhatsAppURL(phone, snap.Client.Name, snap.GrandTotal, s.business.Name)
	if err != nil {
		return "", err
	}
	metrics.ShareLinksBuilt.Inc()
	return link, nil
}

// render produces the document bytes for snap. Rendering failures are
// reported as domain.ERENDER.
func (s *quoteService) render(ctx context.Context, op string, snap domain.Snapshot, format report.Format) ([]byte, error) {
	gen, ok := s.generators[format]
	if !ok {
		return nil, domain.Invalid(op, "Unsupported document format: "+string(format))
	}

	doc := &report.Document{
		Snapshot: snap,
		Business: s.business.Letterhead(),
		Logo:     s.logo(ctx),
	}

	start := time.Now()
	var buf bytes.Buffer
	if _, err := gen.Generate(ctx, doc, &buf); err != nil {
		metrics.DocumentFailed(string(format))
		s.logger.Error("failed to render document",
			"op", op,
			"format", format,
			"items", len(snap.Items),
			"error", err,
		)
		return nil, domain.Render(err, op)
	}
	metrics.DocumentRendered(string(format), time.Since(start))

	return buf.Bytes(), nil
}

// logo returns the letterhead logo, or nil when there is none or it cannot
// be loaded. A missing logo never blocks a document.
func (s *quoteService) logo(ctx context.Context) []byte {
	if s.branding == nil {
		return nil
	}
	logo, err := s.branding.Logo(ctx)
	if err != nil {
		s.logger.Warn("rendering without logo", "error", err)
		return nil
	}
	return logo
}

// deliver composes the proforma email around pdf and hands it to the relay.
func (s *quoteService) deliver(ctx context.Context, op string, snap domain.Snapshot, pdf []byte) error {
	msg, err := s.composer.Proforma(snap.Client.Email, email.ProformaData{
		ClientName: snap.Client.Name,
		Filename:   snap.AttachmentFilename(),
		PDF:        pdf,
		Sender:     s.business.Sender(),
	})
	if err != nil {
		metrics.EmailFailed("render")
		return domain.Internal(err, op, "failed to compose email")
	}

	start := time.Now()
	if err := s.relay.Send(ctx, msg); err != nil {
		return transportError(op, err)
	}
	metrics.EmailDelivered(time.Since(start))

	return nil
}

// transportError maps relay failures onto domain errors, keeping the
// transport message verbatim.
func transportError(op string, err error) error {
	if errors.Is(err, email.ErrNotConfigured) {
		metrics.EmailFailed("config")
		return domain.Config(op, "Email service not configured")
	}

	te := email.Classify(err)
	metrics.EmailFailed(string(te.Kind))
	return &domain.Error{
		Code:    domain.ETRANSPORT,
		Op:      op,
		Message: te.Error(),
		Err:     te,
	}
}

var _ QuoteService = (*quoteService)(nil)
