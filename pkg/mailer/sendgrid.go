// Package mailer delivers transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/vitora-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

const defaultTimeout = 15 * time.Second

type Address struct {
	Name  string
	Email string
}

type Message struct {
	To      []Address
	BCC     []Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSender implements Sender on top of the SendGrid v3 mail API.
type SendgridSender struct {
	client  sendClient
	from    *mail.Email
	timeout time.Duration
}

func NewSendgridSender(cfg config.SendgridConfig) (*SendgridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	return newSendgridSender(sendgrid.NewSendClient(cfg.APIKey), cfg)
}

func newSendgridSender(client sendClient, cfg config.SendgridConfig) (*SendgridSender, error) {
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SendgridSender{
		client:  client,
		from:    mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		timeout: timeout,
	}, nil
}

// Send delivers msg, bounded by the configured timeout.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "message has no recipients")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)), "email rejected by provider")
	}
	return nil
}

func (s *SendgridSender) build(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail(to.Name, to.Email))
	}
	for _, bcc := range msg.BCC {
		p.AddBCCs(mail.NewEmail(bcc.Name, bcc.Email))
	}
	m.AddPersonalizations(p)

	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}
