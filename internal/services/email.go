package services

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/resend/resend-go/v2"

	"github.com/thomasemurphy/circle-cal/internal/config"
	"github.com/thomasemurphy/circle-cal/internal/logging"
)

// Email represents an email to be sent.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailProvider is the interface for sending emails.
type EmailProvider interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders and dispatches notification emails.
type EmailService struct {
	provider    EmailProvider
	fromAddress string
	fromName    string
	baseURL     string
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	var provider EmailProvider
	switch cfg.Provider {
	case "resend":
		provider = NewResendProvider(cfg.ResendAPIKey, cfg.FromAddress, cfg.FromName)
	case "smtp":
		provider = NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.FromAddress, cfg.FromName)
	default:
		provider = NewConsoleProvider()
	}

	return &EmailService{
		provider:    provider,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		baseURL:     cfg.BaseURL,
	}
}

// SendFriendInvitation invites an email address with no account yet. The
// inviter's pending request is created automatically once they sign up.
func (s *EmailService) SendFriendInvitation(ctx context.Context, toEmail, fromName string) error {
	subject := fmt.Sprintf("%s invited you to Circle Calendar", fromName)
	html, text := s.renderFriendInvitation(fromName)

	return s.provider.Send(ctx, &Email{
		To:      toEmail,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

func (s *EmailService) renderFriendInvitation(fromName string) (html, text string) {
	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 500px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #1976d2; font-size: 24px;">You've been invited to Circle Calendar!</h1>

  <p><strong>%s</strong> wants to connect with you on Circle Calendar and share birthdays.</p>

  <p style="color: #666; font-size: 14px;">
    Circle Calendar is a circular year calendar that helps you track important dates.
  </p>

  <a href="%s"
     style="display: inline-block; background: #1976d2; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 16px 0;">
    Join Circle Calendar
  </a>

  <p style="color: #999; font-size: 12px;">
    Once you sign up, %s's friend request will be waiting for you.
  </p>
</body>
</html>`, fromName, s.baseURL, fromName)

	text = fmt.Sprintf(`You've been invited to Circle Calendar!

%s wants to connect with you on Circle Calendar and share birthdays.

Join here: %s

Once you sign up, %s's friend request will be waiting for you.`, fromName, s.baseURL, fromName)

	return html, text
}

// ResendProvider sends emails using the Resend API.
type ResendProvider struct {
	client   *resend.Client
	fromLine string
}

func NewResendProvider(apiKey, fromAddress, fromName string) *ResendProvider {
	return &ResendProvider{
		client:   resend.NewClient(apiKey),
		fromLine: fmt.Sprintf("%s <%s>", fromName, fromAddress),
	}
}

func (p *ResendProvider) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    p.fromLine,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	if _, err := p.client.Emails.Send(params); err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}

	logging.Info("Email sent via Resend", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// SMTPProvider sends emails via SMTP (for Mailpit in local dev).
type SMTPProvider struct {
	host        string
	port        int
	fromAddress string
	fromName    string
}

func NewSMTPProvider(host string, port int, fromAddress, fromName string) *SMTPProvider {
	return &SMTPProvider{host: host, port: port, fromAddress: fromAddress, fromName: fromName}
}

func (p *SMTPProvider) Send(ctx context.Context, email *Email) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", p.fromName, p.fromAddress)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", email.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTML)

	if err := smtp.SendMail(addr, nil, p.fromAddress, []string{email.To}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending email via SMTP: %w", err)
	}

	logging.Info("Email sent via SMTP", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// ConsoleProvider logs emails instead of sending them (for development).
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(ctx context.Context, email *Email) error {
	logging.Info("Email (console provider)", map[string]interface{}{
		"to":      email.To,
		"subject": email.Subject,
		"body":    email.Text,
	})
	return nil
}
