package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbot/orchestrator/internal/config"
	"github.com/markbot/orchestrator/internal/model"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

func newTestMailer(sendErr map[string]error) (*SMTPMailer, *[]sentMail) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	m := NewSMTPMailer(config.SMTP{Host: "smtp.example.com", Port: "587", From: "noreply@example.com"}, log)

	var delivered []sentMail
	m.send = func(ctx context.Context, to, subject, body string) error {
		if err, ok := sendErr[to]; ok {
			return err
		}
		delivered = append(delivered, sentMail{to: to, subject: subject, body: body})
		return nil
	}
	return m, &delivered
}

func TestPersonalize(t *testing.T) {
	r := model.Recipient{Email: "ada@example.com", Name: "Ada"}
	assert.Equal(t, "Hello Ada, mail goes to ada@example.com",
		Personalize("Hello {name}, mail goes to {email}", r))

	// no name on file leaves the token alone instead of inserting a blank
	anon := model.Recipient{Email: "x@example.com"}
	assert.Equal(t, "Hello {name}", Personalize("Hello {name}", anon))

	assert.Equal(t, "No tokens here", Personalize("No tokens here", r))
}

func TestSendBulkPersonalizesPerRecipient(t *testing.T) {
	m, delivered := newTestMailer(nil)

	recipients := []model.Recipient{
		{Email: "ada@example.com", Name: "Ada"},
		{Email: "bob@example.com", Name: "Bob"},
	}
	res, err := m.SendBulk(context.Background(), recipients, "Big Sale", "Hi {name}!")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 0, res.Failed)

	require.Len(t, *delivered, 2)
	assert.Equal(t, "Hi Ada!", (*delivered)[0].body)
	assert.Equal(t, "Hi Bob!", (*delivered)[1].body)
	assert.Equal(t, "Big Sale", (*delivered)[0].subject)
}

func TestSendBulkCountsPartialFailures(t *testing.T) {
	m, delivered := newTestMailer(map[string]error{
		"bob@example.com": errors.New("mailbox full"),
	})

	recipients := []model.Recipient{
		{Email: "ada@example.com", Name: "Ada"},
		{Email: "bob@example.com", Name: "Bob"},
		{Email: "cleo@example.com", Name: "Cleo"},
	}
	res, err := m.SendBulk(context.Background(), recipients, "Hello", "Hi {name}")
	require.NoError(t, err, "a recipient failure is not a sender failure")

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bob@example.com")
	assert.Len(t, *delivered, 2)
}

func TestSendBulkUnconfigured(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	m := NewSMTPMailer(config.SMTP{}, log)

	_, err := m.SendBulk(context.Background(), []model.Recipient{{Email: "a@b.com"}}, "s", "b")
	assert.Error(t, err)
}
