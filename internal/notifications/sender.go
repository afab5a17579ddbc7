package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/vitora-backend/pkg/mailer"
)

// ConfirmationSender delivers one order confirmation.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, conf Confirmation) error
}

// ErrNoRecipients is returned when neither the customer nor the admin has an
// address to send to.
var ErrNoRecipients = errors.New("no confirmation recipients")

// EmailSender composes the confirmation and hands it to a mailer. The
// customer receives it with the admin in BCC; without a customer address the
// admin alone receives it.
type EmailSender struct {
	mailer     mailer.Sender
	composer   *Composer
	adminEmail string
}

func NewEmailSender(m mailer.Sender, composer *Composer, adminEmail string) (*EmailSender, error) {
	if m == nil {
		return nil, errors.New("mailer required")
	}
	if composer == nil {
		return nil, errors.New("composer required")
	}
	return &EmailSender{mailer: m, composer: composer, adminEmail: strings.TrimSpace(adminEmail)}, nil
}

func (s *EmailSender) SendConfirmation(ctx context.Context, conf Confirmation) error {
	msg, err := s.composer.Compose(conf)
	if err != nil {
		return err
	}

	customerEmail := ""
	customerName := ""
	if conf.Customer != nil {
		customerName = conf.Customer.FullName
		if conf.Customer.Email != nil {
			customerEmail = strings.TrimSpace(*conf.Customer.Email)
		}
	}

	switch {
	case customerEmail != "":
		msg.To = []mailer.Address{{Name: customerName, Email: customerEmail}}
		if s.adminEmail != "" && !strings.EqualFold(s.adminEmail, customerEmail) {
			msg.BCC = []mailer.Address{{Email: s.adminEmail}}
		}
	case s.adminEmail != "":
		msg.To = []mailer.Address{{Email: s.adminEmail}}
	default:
		return ErrNoRecipients
	}
	return s.mailer.Send(ctx, msg)
}
