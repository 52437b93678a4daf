package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/DukeRupert/proforma/internal/report"
	"gopkg.in/yaml.v3"
)

// DefaultBusinessName is printed when the quote file names no business.
const DefaultBusinessName = "Our Own Marble House"

// QuoteFile is the YAML description of a quote rendered offline.
//
//	business:
//	  name: Our Own Marble House
//	client:
//	  name: Asha Rao
//	  phone: "+91 98765 43210"
//	rate_only: false
//	issued_at: 2026-03-05
//	items:
//	  - item_name: Italian Marble
//	    size: 10x10
//	    area: "100"
//	    rate: "250"
type QuoteFile struct {
	Business BusinessFile           `yaml:"business"`
	Client   domain.ClientDetails   `yaml:"client"`
	RateOnly bool                   `yaml:"rate_only"`
	IssuedAt string                 `yaml:"issued_at"` // YYYY-MM-DD, defaults to today
	Items    []domain.LineItemDraft `yaml:"items"`
}

// BusinessFile is the letterhead section of a quote file.
type BusinessFile struct {
	Name         string `yaml:"name"`
	Headquarters string `yaml:"headquarters"`
	Showroom     string `yaml:"showroom"`
	Phone        string `yaml:"phone"`
	Email        string `yaml:"email"`
}

// Letterhead returns the document header, falling back to
// DefaultBusinessName.
func (b BusinessFile) Letterhead() report.Business {
	name := b.Name
	if name == "" {
		name = DefaultBusinessName
	}
	return report.Business{
		Name:         name,
		Headquarters: b.Headquarters,
		Showroom:     b.Showroom,
		Phone:        b.Phone,
		Email:        b.Email,
	}
}

// LoadQuoteFile decodes a quote file. Unknown keys are rejected so typos
// don't silently drop data.
func LoadQuoteFile(r io.Reader) (*QuoteFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f QuoteFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("quote file is empty")
		}
		return nil, fmt.Errorf("failed to parse quote file: %w", err)
	}
	return &f, nil
}

// Snapshot replays the file through a Quote and snapshots it at the file's
// issue date, or now when none is given.
func (f *QuoteFile) Snapshot(now time.Time) (domain.Snapshot, error) {
	issued := now
	if f.IssuedAt != "" {
		t, err := time.ParseInLocation("2006-01-02", f.IssuedAt, now.Location())
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("issued_at must be YYYY-MM-DD: %w", err)
		}
		issued = t
	}

	q := domain.NewQuote()
	q.Client = f.Client.Normalize()
	for i, item := range f.Items {
		draft := item
		if _, err := q.AddItem(&draft); err != nil {
			return domain.Snapshot{}, fmt.Errorf("item %d: %s", i+1, domain.ErrorMessage(err))
		}
	}
	q.SetMode(f.RateOnly)

	return q.Snapshot(issued), nil
}
