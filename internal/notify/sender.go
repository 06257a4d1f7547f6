package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"studybuddy/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sender delivers one event
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// MailConfig selects and configures the Sender
type MailConfig struct {
	Mode     string // "log" or "smtp"
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	// AppURL prefixes links in the mail body
	AppURL string
}

// LoadMailConfig reads EMAIL_MODE and the SMTP_* variables
func LoadMailConfig() MailConfig {
	return MailConfig{
		Mode:     config.GetEnvOrDefault("EMAIL_MODE", "log"),
		Host:     config.GetEnvOrDefault("SMTP_HOST", ""),
		Port:     config.GetEnvInt("SMTP_PORT", 587),
		User:     config.GetEnvOrDefault("SMTP_USER", ""),
		Password: config.GetEnvOrDefault("SMTP_PASSWORD", ""),
		From:     config.GetEnvOrDefault("SMTP_FROM", "noreply@studybuddy.local"),
		FromName: config.GetEnvOrDefault("SMTP_FROM_NAME", "StudyBuddy"),
		AppURL:   config.GetEnvOrDefault("APP_URL", "http://localhost:8080"),
	}
}

// NewSender returns the SMTP sender in "smtp" mode and a logging sender otherwise
func NewSender(cfg MailConfig, logger *slog.Logger) Sender {
	if cfg.Mode == "smtp" {
		return &smtpSender{cfg: cfg}
	}
	return &logSender{cfg: cfg, logger: logger}
}

// Message is a rendered email
type Message struct {
	Subject string
	HTML    string
}

// Render builds the subject and body for ev
func Render(ev Event, appURL string) (Message, error) {
	var subject, name string
	switch ev.Type {
	case TypeCommentReply:
		subject = fmt.Sprintf("%v replied to your comment", valueOr(ev.Data["author"], "Someone"))
		name = "comment_reply.html"
	case TypeWelcome:
		subject = "Welcome to StudyBuddy"
		name = "welcome.html"
	default:
		return Message{}, fmt.Errorf("unsupported event type: %s", ev.Type)
	}

	var buf bytes.Buffer
	err := mailTemplates.ExecuteTemplate(&buf, name, map[string]any{
		"AppURL": appURL,
		"Data":   ev.Data,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func valueOr(v any, fallback string) any {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

type logSender struct {
	cfg    MailConfig
	logger *slog.Logger
}

func (s *logSender) Send(ctx context.Context, ev Event) error {
	msg, err := Render(ev, s.cfg.AppURL)
	if err != nil {
		return err
	}
	s.logger.Info("[DEV] Email",
		"to", ev.Recipient,
		"type", ev.Type,
		"subject", msg.Subject,
		"message_id", ev.MessageID)
	return nil
}

type smtpSender struct {
	cfg MailConfig
}

func (s *smtpSender) Send(ctx context.Context, ev Event) error {
	msg, err := Render(ev, s.cfg.AppURL)
	if err != nil {
		return err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", ev.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{ev.Recipient}, b.Bytes()); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
