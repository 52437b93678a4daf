package service

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/go-playground/validator/v10"
)

// SendRequest is the body of POST /api/send-email.
type SendRequest struct {
	ClientDetails SendClient    `json:"clientDetails"`
	Items         []RequestItem `json:"items" validate:"max=500"`
	RateOnlyMode  bool          `json:"rateOnlyMode"`

	// GrandTotalText is what the client displayed. The total is always
	// recomputed from the items; this is only logged on mismatch.
	GrandTotalText string `json:"grandTotalText"`

	// DocumentBase64 is an already rendered PDF. When empty the PDF is
	// rendered from the items.
	DocumentBase64 string `json:"documentBytesBase64" validate:"omitempty,base64"`
}

// SendClient carries the recipient of a SendRequest.
type SendClient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"required,email"`
}

// RequestItem is one line item in a SendRequest. Total is accepted for
// compatibility but recomputed.
type RequestItem struct {
	domain.LineItemDraft
	Total string `json:"total,omitempty"`
}

var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessages maps "<json field>.<tag>" to the message shown to the user.
var fieldMessages = map[string]string{
	"email.required":             "Please enter an email address",
	"email.email":                "Please enter a valid email address",
	"items.max":                  "Too many line items",
	"documentBytesBase64.base64": "Attached document is not valid base64",
}

func (r *SendRequest) normalize() {
	r.ClientDetails.Name = strings.TrimSpace(r.ClientDetails.Name)
	r.ClientDetails.Phone = strings.TrimSpace(r.ClientDetails.Phone)
	r.ClientDetails.Email = strings.TrimSpace(r.ClientDetails.Email)
	r.DocumentBase64 = strings.TrimSpace(r.DocumentBase64)
}

// validate checks the request, reporting the recipient first.
func (r *SendRequest) validate(op string) error {
	if err := validateRecipient(op, r.ClientDetails.Email); err != nil {
		return err
	}

	err := requestValidator.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err, op, "failed to validate request")
	}

	var ve *domain.ValidationError
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value for " + fe.Field()
		}
		if ve == nil {
			ve = domain.NewValidationError(op, fe.Field(), msg)
			continue
		}
		domain.AddFieldError(ve, fe.Field(), msg)
	}
	return ve
}

// snapshot rebuilds the quote from the request items through the same
// commands the workspace uses.
func (r *SendRequest) snapshot(now time.Time) (domain.Snapshot, error) {
	q := domain.NewQuote()
	q.Client = domain.ClientDetails{
		Name:  r.ClientDetails.Name,
		Phone: r.ClientDetails.Phone,
		Email: r.ClientDetails.Email,
	}
	q.SetMode(r.RateOnlyMode)

	for _, item := range r.Items {
		draft := item.LineItemDraft
		if _, err := q.AddItem(&draft); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return q.Snapshot(now), nil
}

// document decodes DocumentBase64, returning nil when it is empty.
func (r *SendRequest) document() ([]byte, error) {
	if r.DocumentBase64 == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(r.DocumentBase64)
}

// validateRecipient checks an outgoing email address.
func validateRecipient(op, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.NewValidationError(op, "email", fieldMessages["email.required"])
	}
	if err := requestValidator.Var(address, "email"); err != nil {
		return domain.NewValidationError(op, "email", fieldMessages["email.email"])
	}
	return nil
}
