package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/resend/resend-go/v2"
	"github.com/sticker-studio/sticker-studio-api/logger"
)

// Email is one outgoing message with parallel HTML and text bodies
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

type resendMailer struct {
	client *resend.Client
}

// NewResendMailer sends through the Resend API
func NewResendMailer(apiKey string) Mailer {
	return &resendMailer{client: resend.NewClient(apiKey)}
}

func (m *resendMailer) Send(ctx context.Context, email Email) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}

// logMailer is used when no Resend key is configured
type logMailer struct {
	log *logger.Logger
}

func NewLogMailer(baseLog *logger.Logger) Mailer {
	return &logMailer{log: baseLog.With("mailer", "log")}
}

func (m *logMailer) Send(ctx context.Context, email Email) (string, error) {
	m.log.Info("Email not sent, mailer disabled", "to", email.To, "subject", email.Subject)
	return "", nil
}

// MockMailer records sent email for tests
type MockMailer struct {
	mu     sync.Mutex
	Sent   []Email
	FailTo map[string]error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{FailTo: map[string]error{}}
}

func (m *MockMailer) Send(ctx context.Context, email Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range email.To {
		if err, ok := m.FailTo[to]; ok {
			return "", err
		}
	}
	m.Sent = append(m.Sent, email)
	return fmt.Sprintf("mock-email-%d", len(m.Sent)), nil
}

// SentTo returns the messages addressed to the given recipient
func (m *MockMailer) SentTo(addr string) []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Email
	for _, e := range m.Sent {
		for _, to := range e.To {
			if to == addr {
				out = append(out, e)
			}
		}
	}
	return out
}
