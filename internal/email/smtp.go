package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// =============================================================================
// SMTP Email Service Implementation
// =============================================================================

// SMTPEmailService sends emails via SMTP.
//
// This implementation works with:
// - Mailhog (development): No authentication required
// - Any standard SMTP relay (production): Uses username/password authentication
//
// Email bodies are rendered from templates embedded in the binary so the
// service has no runtime asset dependencies.
type SMTPEmailService struct {
	config    SMTPConfig
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

// NewSMTPEmailService creates a new SMTP-based email service.
//
// Parameters:
// - config: SMTP server configuration
// - baseURL: Application base URL for constructing links (e.g., "http://localhost:8080")
// - logger: Structured logger for error reporting
func NewSMTPEmailService(
	config SMTPConfig,
	baseURL string,
	logger *slog.Logger,
) (*SMTPEmailService, error) {
	// Set defaults
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.New("email").Parse(filingAlertHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPEmailService{
		config:    config,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// =============================================================================
// EmailService Interface Implementation
// =============================================================================

// SendFilingAlert notifies a user that a monitored case has new filings.
func (s *SMTPEmailService) SendFilingAlert(ctx context.Context, to, name, caseName string, newEntries int) error {
	activity := "New documents were filed"
	switch {
	case newEntries == 1:
		activity = "1 new document was filed"
	case newEntries > 1:
		activity = fmt.Sprintf("%d new documents were filed", newEntries)
	}

	data := map[string]interface{}{
		"Name":         name,
		"CaseName":     caseName,
		"Activity":     activity,
		"DocumentsURL": s.baseURL + "/documents",
		"Year":         time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("filing_alert", data)
	if err != nil {
		return fmt.Errorf("failed to render filing alert template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi %s,

%s in a case you monitor:

  %s

Free documents are fetched automatically on eligible plans; everything else
is waiting in your document library:

%s

Thanks,
The DocketWatch Team
`, name, activity, caseName, s.baseURL+"/documents")

	email := Email{
		To:       to,
		Subject:  fmt.Sprintf("New filings in %s", caseName),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	return s.send(ctx, email)
}

// =============================================================================
// Internal Methods
// =============================================================================

// send sends an email via SMTP.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	// Build the email message
	msg := s.buildMessage(email)

	// Create SMTP address
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Create auth if credentials are provided (not needed for Mailhog)
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	// Send the email
	err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg)
	if err != nil {
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
	)

	return nil
}

// buildMessage constructs the raw email message with headers.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	// From header with display name
	fromHeader := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)

	// Write headers
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	// Create multipart message for HTML + text
	boundary := "===============DOCKETWATCH_BOUNDARY==============="
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	// Plain text part
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	// HTML part
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTMLBody)
	buf.WriteString("\r\n")

	// End boundary
	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// renderTemplate renders an email template with the given data.
func (s *SMTPEmailService) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// =============================================================================
// Templates
// =============================================================================

const filingAlertHTML = `{{define "filing_alert"}}<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a2e; max-width: 600px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #16213e;">New filings in {{.CaseName}}</h2>
  <p>Hi {{.Name}},</p>
  <p>{{.Activity}} in a case you monitor:</p>
  <p style="background: #f4f4f8; padding: 12px 16px; border-radius: 4px; font-weight: bold;">{{.CaseName}}</p>
  <p>Free documents are fetched automatically on eligible plans; everything
  else is waiting in your document library.</p>
  <p><a href="{{.DocumentsURL}}" style="background: #16213e; color: #ffffff; padding: 10px 18px; border-radius: 4px; text-decoration: none;">View documents</a></p>
  <p style="color: #888; font-size: 12px; margin-top: 32px;">&copy; {{.Year}} DocketWatch</p>
</body>
</html>{{end}}`

// =============================================================================
// Compile-time interface check
// =============================================================================

var _ EmailService = (*SMTPEmailService)(nil)
