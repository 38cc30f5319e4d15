package event

import (
	"encoding/json"
	"fmt"

	"github.com/customersvc/backend/internal/domain/shared"
)

// marshalEvent encodes event as the JSON body of a broker message
func marshalEvent(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return data, nil
}
