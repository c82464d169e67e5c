package models

import "time"

// MessageEnvelope is the broker wire format. Payload holds one import event
// (ImportRequested or ImportCompleted) as a JSON object.
type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

// Metadata carries delivery details. Annotations is written by the dead-letter path.
type Metadata struct {
	TraceID     string                 `json:"trace_id,omitempty"`
	EventType   string                 `json:"event_type,omitempty"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

// NewEnvelope wraps a typed event. The timestamp is the current UTC time.
func NewEnvelope(id, source, eventType string, event interface{}) (MessageEnvelope, error) {
	payload, err := ToPayload(event)
	if err != nil {
		return MessageEnvelope{}, err
	}
	return MessageEnvelope{
		ID:        id,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
		Metadata:  Metadata{EventType: eventType},
	}, nil
}
