// Package mail renders notification emails and hands them to an SMTP
// server. Delivery always happens through the email queue, never inline.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Email is the payload of an email-send job.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// TemplateData fills the notification templates.
type TemplateData struct {
	Username string
	Message  string
	Link     string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render produces the HTML body for a named template
// (notification.html, welcome.html).
func Render(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Sender delivers rendered emails.
type Sender interface {
	Send(email *Email) error
}

// SMTPSender implements Sender over a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	log  zerolog.Logger
}

// NewSMTPSender configures delivery through host:port. Auth is skipped when
// no username is configured (local relays).
func NewSMTPSender(host string, port int, username, password, from string, log zerolog.Logger) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		log:  log.With().Str("component", "mail").Logger(),
	}
}

// Send delivers one email.
func (s *SMTPSender) Send(email *Email) error {
	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(email.HTML)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{email.To}, msg.Bytes()); err != nil {
		s.log.Error().Err(err).Str("to", email.To).Msg("failed to send email")
		return err
	}
	s.log.Info().Str("to", email.To).Str("subject", email.Subject).Msg("email sent")
	return nil
}
