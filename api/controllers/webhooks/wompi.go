package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/vitora-backend/api/responses"
	"github.com/angelmondragon/vitora-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

const maxEventBytes = 1 << 20

type WompiWebhookService interface {
	HandleEvent(ctx context.Context, body []byte) (*payments.Result, error)
}

// WompiWebhook verifies and applies Wompi event notifications. Every
// processed or ignored event answers 200 so the gateway stops retrying; only
// a bad checksum (400) or an internal failure (5xx) asks for a redelivery.
func WompiWebhook(svc WompiWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result, err := svc.HandleEvent(ctx, payload)
		if err != nil {
			if result != nil {
				responses.WriteErrorWithData(ctx, logg, w, err, result)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
