package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"bitwise74/todo-api/config"
	"bitwise74/todo-api/pkg/metrics"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	TemplateActivation    = "activation"
	TemplatePasswordReset = "password_reset"
)

//go:embed templates/*.html
var mailTemplates embed.FS

// Notifier delivers a templated message to a single recipient
type Notifier interface {
	Send(ctx context.Context, template, to string, data map[string]any) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends notifications straight over SMTP
type Mailer struct {
	from      string
	dialer    dialer
	templates map[string]*template.Template
}

func NewMailer(cfg config.Mail) (*Mailer, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	return newMailer(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

func newMailer(from string, d dialer) (*Mailer, error) {
	m := &Mailer{
		from:      from,
		dialer:    d,
		templates: make(map[string]*template.Template),
	}

	for _, name := range []string{TemplateActivation, TemplatePasswordReset} {
		t, err := template.ParseFS(mailTemplates, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s mail template, %w", name, err)
		}

		m.templates[name] = t
	}

	return m, nil
}

func (m *Mailer) Send(ctx context.Context, name, to string, data map[string]any) error {
	if to == m.from {
		return errors.New("invalid email address")
	}

	t, ok := m.templates[name]
	if !ok {
		return fmt.Errorf("unknown mail template %q", name)
	}

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", data); err != nil {
		return fmt.Errorf("failed to render mail subject, %w", err)
	}

	if err := t.ExecuteTemplate(&body, "body", data); err != nil {
		return fmt.Errorf("failed to render mail body, %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/html", body.String())

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		metrics.MailsSent.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("failed to send %s mail, %w", name, err)
	}

	metrics.MailsSent.WithLabelValues(name, "ok").Inc()
	zap.L().Debug("Mail sent", zap.String("template", name))

	return nil
}
