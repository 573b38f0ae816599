package pubsub

import (
	"encoding/json"

	"accounts/internal/domain/service"

	"github.com/pkg/errors"
)

// Message metadata shared by every provider.
const (
	eventTypePasswordResetRequested = "password_reset_requested"
	eventSchemaVersion              = "1"

	attrEventType     = "event_type"
	attrSchemaVersion = "schema_version"
	attrUserID        = "user_id"
	attrRequestID     = "request_id"
)

// resetMessage is the provider-neutral form of a reset event.
type resetMessage struct {
	data       []byte
	attributes map[string]string
	// orderingKey keeps the resets of one account in request order, so a
	// mailer never sends a link that a newer request already replaced.
	orderingKey string
}

// encodeResetRequested serializes the event. The token only travels in the
// payload; attributes are visible to routing and monitoring.
func encodeResetRequested(event *service.PasswordResetRequestedEvent) (*resetMessage, error) {
	if event == nil {
		return nil, errors.New("nil password reset event")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode password reset event")
	}

	attributes := map[string]string{
		attrEventType:     eventTypePasswordResetRequested,
		attrSchemaVersion: eventSchemaVersion,
		attrUserID:        event.UserID,
	}
	if event.RequestID != "" {
		attributes[attrRequestID] = event.RequestID
	}

	return &resetMessage{
		data:        data,
		attributes:  attributes,
		orderingKey: event.UserID,
	}, nil
}
