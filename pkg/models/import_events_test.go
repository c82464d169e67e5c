package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImportRequested(t *testing.T) {
	tests := []struct {
		name    string
		req     ImportRequested
		wantErr bool
	}{
		{"locator", ImportRequested{DatasetScopeID: "S", StorageLocator: "file:///data/a.csv"}, false},
		{"inline", ImportRequested{DatasetScopeID: "S", SourceBase64: "Y29kZQo="}, false},
		{"no scope", ImportRequested{StorageLocator: "a.csv"}, true},
		{"no source", ImportRequested{DatasetScopeID: "S"}, true},
		{"both sources", ImportRequested{DatasetScopeID: "S", StorageLocator: "a.csv", SourceBase64: "eA=="}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImportRequested(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPayloadConversion(t *testing.T) {
	prev := "imp-1"
	in := ImportCompleted{
		DatasetScopeID:     "S",
		Status:             ImportStatusCompleted,
		ImportID:           "imp-2",
		PreviousImportID:   &prev,
		CountsByChangeType: map[string]int{"NEW_ENTITY": 2},
		TotalEntityCount:   2,
		CompletedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	payload, err := ToPayload(in)
	require.NoError(t, err)
	assert.Equal(t, "imp-2", payload["import_id"])

	envelope, err := NewEnvelope("m-1", "sync-worker", EventTypeImportCompleted, in)
	require.NoError(t, err)
	require.NoError(t, ValidateEnvelope(&envelope, EventTypeImportCompleted))
	assert.False(t, envelope.Timestamp.IsZero())
	assert.Equal(t, EventTypeImportCompleted, envelope.Metadata.EventType)

	var out ImportCompleted
	require.NoError(t, FromPayload(envelope.Payload, &out))
	assert.Equal(t, in, out)
}

func TestValidateEnvelope(t *testing.T) {
	valid := func() *MessageEnvelope {
		m, err := NewEnvelope("m-1", "test", EventTypeImportRequested, ImportRequested{DatasetScopeID: "S"})
		require.NoError(t, err)
		return &m
	}

	tests := []struct {
		name  string
		msg   func() *MessageEnvelope
		field string
	}{
		{"nil", func() *MessageEnvelope { return nil }, "envelope"},
		{"no id", func() *MessageEnvelope { m := valid(); m.ID = ""; return m }, "id"},
		{"no payload", func() *MessageEnvelope { m := valid(); m.Payload = nil; return m }, "payload"},
		{"other event", func() *MessageEnvelope { m := valid(); m.Metadata.EventType = EventTypeImportCompleted; return m }, "metadata.event_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope(tt.msg(), EventTypeImportRequested)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	untyped := valid()
	untyped.Metadata.EventType = ""
	assert.NoError(t, ValidateEnvelope(untyped, EventTypeImportRequested))
}
