package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender describes the business that signs outgoing quotations.
type Sender struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// ProformaData is everything the proforma email needs.
type ProformaData struct {
	ClientName string
	Filename   string
	PDF        []byte
	Sender     Sender
}

// Composer builds the proforma email from its embedded template.
type Composer struct {
	templates *template.Template
}

// NewComposer parses the embedded email templates.
func NewComposer() (*Composer, error) {
	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Composer{templates: templates}, nil
}

// Proforma composes the message that carries a proforma invoice PDF to the
// client.
func (c *Composer) Proforma(to string, data ProformaData) (Message, error) {
	name := strings.TrimSpace(data.ClientName)

	var html bytes.Buffer
	if err := c.templates.ExecuteTemplate(&html, "proforma.html", map[string]interface{}{
		"Name":   name,
		"Sender": data.Sender,
	}); err != nil {
		return Message{}, fmt.Errorf("failed to render proforma email template: %w", err)
	}

	textBody := fmt.Sprintf(`Dear %s,

Thank you for your interest in %s. Please find the attached proforma invoice for your reference.

If you have any questions or need further assistance, please don't hesitate to contact us.

Best regards,
%s
%s
Phone: %s
Email: %s
`, name, data.Sender.Name, data.Sender.Name, data.Sender.Address, data.Sender.Phone, data.Sender.Email)

	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Proforma Invoice from %s - %s", data.Sender.Name, name),
		TextBody: textBody,
		HTMLBody: html.String(),
		Attachments: []Attachment{{
			Filename:    data.Filename,
			ContentType: "application/pdf",
			Data:        data.PDF,
		}},
	}, nil
}

// emailTemplateFuncs returns template functions available in email templates.
func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}
