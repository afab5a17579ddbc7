package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/mailer"
)

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func confirmationFor(email *string) Confirmation {
	return Confirmation{
		Order:    models.Order{LineItems: json.RawMessage(`[]`)},
		Customer: &models.Customer{FullName: "Laura Gómez", Email: email},
	}
}

func TestEmailSenderRecipients(t *testing.T) {
	customer := "laura@example.com"

	t.Run("customer with admin copy", func(t *testing.T) {
		m := &captureMailer{}
		sender, err := NewEmailSender(m, NewComposer("VITORA", ""), "admin@vitora.co")
		require.NoError(t, err)

		require.NoError(t, sender.SendConfirmation(context.Background(), confirmationFor(&customer)))
		require.Len(t, m.sent, 1)
		assert.Equal(t, []mailer.Address{{Name: "Laura Gómez", Email: customer}}, m.sent[0].To)
		assert.Equal(t, []mailer.Address{{Email: "admin@vitora.co"}}, m.sent[0].BCC)
	})

	t.Run("admin only when customer has no email", func(t *testing.T) {
		m := &captureMailer{}
		sender, err := NewEmailSender(m, NewComposer("VITORA", ""), "admin@vitora.co")
		require.NoError(t, err)

		require.NoError(t, sender.SendConfirmation(context.Background(), confirmationFor(nil)))
		require.Len(t, m.sent, 1)
		assert.Equal(t, []mailer.Address{{Email: "admin@vitora.co"}}, m.sent[0].To)
		assert.Empty(t, m.sent[0].BCC)
	})

	t.Run("no recipients", func(t *testing.T) {
		m := &captureMailer{}
		sender, err := NewEmailSender(m, NewComposer("VITORA", ""), "")
		require.NoError(t, err)

		err = sender.SendConfirmation(context.Background(), confirmationFor(nil))
		assert.ErrorIs(t, err, ErrNoRecipients)
		assert.Empty(t, m.sent)
	})

	t.Run("mailer failure surfaces", func(t *testing.T) {
		m := &captureMailer{err: errors.New("503")}
		sender, err := NewEmailSender(m, NewComposer("VITORA", ""), "")
		require.NoError(t, err)
		assert.Error(t, sender.SendConfirmation(context.Background(), confirmationFor(&customer)))
	})
}
