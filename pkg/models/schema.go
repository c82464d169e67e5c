package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateEnvelope checks the delivery fields every import event carries.
// An empty event type is accepted for producers that predate the field.
func ValidateEnvelope(msg *MessageEnvelope, eventType string) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}
	if msg.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}
	if msg.Payload == nil {
		return &ValidationError{Field: "payload", Message: "message payload cannot be nil"}
	}
	if msg.Metadata.EventType != "" && msg.Metadata.EventType != eventType {
		return &ValidationError{
			Field:   "metadata.event_type",
			Message: fmt.Sprintf("expected %q, got %q", eventType, msg.Metadata.EventType),
		}
	}
	return nil
}
