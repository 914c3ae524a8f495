// Package email provides email sending functionality
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service handles email sending
type Service struct {
	config      *Config
	frontendURL string
	templates   map[string]*template.Template
	log         *slog.Logger
}

// NewService creates a new email service
func NewService(config *Config, frontendURL string) *Service {
	s := &Service{
		config:      config,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   make(map[string]*template.Template),
		log:         slog.With("component", "email"),
	}
	s.loadTemplates()
	return s
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// GroupInviteData holds data for group invite emails
type GroupInviteData struct {
	GroupName  string
	InvitedBy  string
	InviteCode string
	JoinURL    string
}

func (s *Service) loadTemplates() {
	s.templates["group_invite"] = template.Must(template.New("group_invite").Parse(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f4f5f7; padding: 20px; }
    .container { max-width: 560px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 32px; }
    .code { font-family: monospace; font-size: 28px; letter-spacing: 6px; background: #f4f5f7; padding: 12px 20px; border-radius: 6px; display: inline-block; }
    .button { display: inline-block; background: #7c3aed; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px; }
    .footer { color: #6b778c; font-size: 12px; margin-top: 24px; }
  </style>
</head>
<body>
  <div class="container">
    <h2>Join {{.GroupName}} on CardPool</h2>
    <p><strong>{{.InvitedBy}}</strong> invited you to a group purchase.</p>
    <p>Your invite code:</p>
    <p class="code">{{.InviteCode}}</p>
    <p><a class="button" href="{{.JoinURL}}">Open CardPool</a></p>
    <p class="footer">If you did not expect this invitation, you can ignore this email.</p>
  </div>
</body>
</html>
`))
}

// SendGroupInvite emails the invite code of a group.
func (s *Service) SendGroupInvite(to string, data GroupInviteData) error {
	if data.InvitedBy == "" {
		data.InvitedBy = "Someone"
	}
	if data.JoinURL == "" {
		data.JoinURL = fmt.Sprintf("%s/join?code=%s", s.frontendURL, data.InviteCode)
	}

	return s.SendWithTemplate(
		[]string{to},
		fmt.Sprintf("[CardPool] Invitation to join %s", data.GroupName),
		"group_invite",
		data,
	)
}

// Render executes a template without sending.
func (s *Service) Render(templateName string, data interface{}) (string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// SendWithTemplate sends an email using a template
func (s *Service) SendWithTemplate(to []string, subject, templateName string, data interface{}) error {
	body, err := s.Render(templateName, data)
	if err != nil {
		return err
	}

	return s.Send(&Email{
		To:       to,
		Subject:  subject,
		HTMLBody: body,
	})
}

// Send sends an email
func (s *Service) Send(email *Email) error {
	if s.config.Host == "" {
		s.log.Warn("email not configured, skipping send", "to", email.To)
		return nil
	}

	msg := buildMessage(s.config, email)
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, email.To, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}

	s.log.Info("email sent", "to", email.To, "subject", email.Subject)
	return client.Quit()
}

func buildMessage(config *Config, email *Email) []byte {
	var msg bytes.Buffer

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", config.FromName, config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.Body)
	}
	return msg.Bytes()
}
