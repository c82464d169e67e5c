package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cablesync/internal/broker"
	pkgerrors "cablesync/pkg/errors"
	"cablesync/pkg/logging"
	"cablesync/pkg/models"
)

// BrokerNotifier publishes an ImportCompleted event for every finished run.
type BrokerNotifier struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewBrokerNotifier(producer broker.Producer, topic, source string) *BrokerNotifier {
	return &BrokerNotifier{
		producer: producer,
		topic:    topic,
		source:   source,
	}
}

func (n *BrokerNotifier) ImportFinished(ctx context.Context, req RunRequest, result *RunResult, runErr error) error {
	if n.producer == nil || n.topic == "" {
		return nil
	}

	event := CompletedEvent(req, result, runErr, time.Now().UTC())
	envelope, err := models.NewEnvelope(uuid.NewString(), n.source, models.EventTypeImportCompleted, event)
	if err != nil {
		return err
	}
	envelope.Metadata.TraceID = logging.GetTraceID(ctx)

	if err := n.producer.Publish(ctx, n.topic, envelope); err != nil {
		return fmt.Errorf("failed to publish import result: %w", err)
	}
	return nil
}

// CompletedEvent describes a run outcome; a failed run carries its phase and error.
func CompletedEvent(req RunRequest, result *RunResult, runErr error, at time.Time) models.ImportCompleted {
	event := models.ImportCompleted{
		RequestID:      req.RequestID,
		DatasetScopeID: req.ScopeID,
		CompletedAt:    at,
	}

	if runErr != nil {
		event.Status = models.ImportStatusFailed
		event.Error = runErr.Error()
		if phase, ok := pkgerrors.PhaseOf(runErr); ok {
			event.FailedPhase = phase
		}
		return event
	}

	event.Status = models.ImportStatusCompleted
	if result != nil {
		event.ImportID = result.ImportID
		event.PreviousImportID = result.PreviousImportID
		event.CountsByChangeType = result.CountsByChangeType
		event.CountsBySeverity = result.CountsBySeverity
		event.TotalEntityCount = result.TotalEntityCount
		event.TotalEvents = result.TotalEvents
	}
	return event
}
