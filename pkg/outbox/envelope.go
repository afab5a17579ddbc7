package outbox

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// ActorRef identifies the channel that produced the event.
type ActorRef struct {
	Source enums.StatusSource `json:"source"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
