package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/markbot/orchestrator/internal/config"
	"github.com/markbot/orchestrator/internal/model"
)

// BulkResult reports a bulk send: how many recipients succeeded, how
// many failed, and one message per failure.
type BulkResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Mailer is the bulk-email collaborator contract. SendBulk returns an
// error only when the sender itself cannot operate at all; individual
// recipient failures are counted in the result.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
	SendBulk(ctx context.Context, recipients []model.Recipient, subject, bodyTemplate string) (BulkResult, error)
}

// SMTPMailer delivers through a single SMTP relay with STARTTLS.
type SMTPMailer struct {
	cfg config.SMTP
	log *logrus.Logger

	// send is swapped out in tests
	send func(ctx context.Context, to, subject, body string) error
}

func NewSMTPMailer(cfg config.SMTP, log *logrus.Logger) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, log: log}
	m.send = m.sendSMTP
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.send(ctx, to, subject, body)
}

// SendBulk personalizes the body template per recipient and sends one
// mail each. A recipient failure is recorded and the loop moves on; the
// campaign decides what a partial result means.
func (m *SMTPMailer) SendBulk(ctx context.Context, recipients []model.Recipient, subject, bodyTemplate string) (BulkResult, error) {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return BulkResult{}, fmt.Errorf("smtp sender not configured")
	}

	result := BulkResult{}
	for _, r := range recipients {
		body := Personalize(bodyTemplate, r)
		if err := m.send(ctx, r.Email, subject, body); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Email, err))
			continue
		}
		result.Sent++
	}
	return result, nil
}

// Personalize substitutes recognized placeholder tokens with recipient
// fields. Unknown tokens pass through untouched.
func Personalize(template string, r model.Recipient) string {
	body := template
	if r.Name != "" {
		body = strings.ReplaceAll(body, "{name}", r.Name)
	}
	body = strings.ReplaceAll(body, "{email}", r.Email)
	return body
}

func (m *SMTPMailer) sendSMTP(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.From, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

var _ Mailer = (*SMTPMailer)(nil)
