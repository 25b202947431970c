package service

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/mansoorceksport/mediakart/internal/config"
)

// Mailer sends transactional mail. Callers treat it as fire-and-forget:
// failures are logged, never fatal to the surrounding workflow.
type Mailer interface {
	Send(ctx context.Context, to, template string, data map[string]string) error
}

// LogMailer is the development mailer; it only logs.
type LogMailer struct{}

func (m *LogMailer) Send(ctx context.Context, to, template string, data map[string]string) error {
	log.Printf("[Mail] (log only) to=%s template=%s data=%v", to, template, data)
	return nil
}

// SMTPMailer delivers via a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
}

// NewMailer returns the SMTP mailer when a host is configured, else the
// log mailer.
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		log.Println("[Mail] Using log mailer (no SMTP host configured)")
		return &LogMailer{}
	}
	return &SMTPMailer{
		addr: cfg.Host + ":" + cfg.Port,
		from: cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, template string, data map[string]string) error {
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n", m.from, to, template)
	for k, v := range data {
		fmt.Fprintf(&body, "%s: %s\r\n", k, v)
	}

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(body.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
