package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vitora-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

type fakeSendClient struct {
	resp     *rest.Response
	err      error
	got      *mail.SGMailV3
	deadline time.Time
}

func (f *fakeSendClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.got = email
	f.deadline, _ = ctx.Deadline()
	return f.resp, f.err
}

func testConfig() config.SendgridConfig {
	return config.SendgridConfig{DefaultFrom: "pedidos@vitora.test", FromName: "Vitora", Timeout: 15 * time.Second}
}

func TestSendBuildsPersonalization(t *testing.T) {
	client := &fakeSendClient{resp: &rest.Response{StatusCode: 202}}
	sender, err := newSendgridSender(client, testConfig())
	require.NoError(t, err)

	start := time.Now()
	err = sender.Send(context.Background(), Message{
		To:      []Address{{Name: "Ana", Email: "ana@example.com"}},
		BCC:     []Address{{Email: "admin@vitora.test"}},
		Subject: "Pedido confirmado",
		Text:    "gracias",
		HTML:    "<p>gracias</p>",
	})
	require.NoError(t, err)

	require.NotNil(t, client.got)
	assert.Equal(t, "pedidos@vitora.test", client.got.From.Address)
	require.Len(t, client.got.Personalizations, 1)
	assert.Equal(t, "ana@example.com", client.got.Personalizations[0].To[0].Address)
	assert.Equal(t, "admin@vitora.test", client.got.Personalizations[0].BCC[0].Address)
	require.Len(t, client.got.Content, 2)
	assert.Equal(t, "text/plain", client.got.Content[0].Type)
	assert.WithinDuration(t, start.Add(15*time.Second), client.deadline, 2*time.Second)
}

func TestSendFailures(t *testing.T) {
	sender, err := newSendgridSender(&fakeSendClient{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, testConfig())
	require.NoError(t, err)
	err = sender.Send(context.Background(), Message{To: []Address{{Email: "a@b.c"}}, Text: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	sender, err = newSendgridSender(&fakeSendClient{err: errors.New("network down")}, testConfig())
	require.NoError(t, err)
	err = sender.Send(context.Background(), Message{To: []Address{{Email: "a@b.c"}}, Text: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	err = sender.Send(context.Background(), Message{Text: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewSendgridSenderValidatesConfig(t *testing.T) {
	_, err := NewSendgridSender(config.SendgridConfig{})
	assert.Error(t, err)
	_, err = newSendgridSender(&fakeSendClient{}, config.SendgridConfig{})
	assert.Error(t, err)
}
