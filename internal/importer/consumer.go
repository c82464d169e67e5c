package importer

import (
	"context"
	"encoding/base64"

	"cablesync/internal/logger"
	"cablesync/pkg/errors"
	"cablesync/pkg/models"
)

// RequestHandler runs imports requested over the broker. Input failures are fatal
// so the consumer sends them straight to the DLQ; persistence failures and pointer
// conflicts are retried.
type RequestHandler struct {
	service *Service
	logger  logger.Logger
}

func NewRequestHandler(service *Service, log logger.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		logger:  log,
	}
}

func (h *RequestHandler) Handle(ctx context.Context, msg models.MessageEnvelope) error {
	if msg.Metadata.EventType != "" && msg.Metadata.EventType != models.EventTypeImportRequested {
		h.logger.DebugwCtx(ctx, "Skipping message with unexpected event type", "event_type", msg.Metadata.EventType)
		return nil
	}

	req, err := DecodeRequest(msg)
	if err != nil {
		return err
	}

	result, err := h.service.Run(ctx, req)
	if err != nil {
		return err
	}

	h.logger.InfowCtx(ctx, "Requested import committed",
		"import_id", result.ImportID,
		"events", result.TotalEvents,
	)
	return nil
}

// DecodeRequest turns an ImportRequested envelope into a run request.
func DecodeRequest(msg models.MessageEnvelope) (RunRequest, error) {
	if err := models.ValidateEnvelope(&msg, models.EventTypeImportRequested); err != nil {
		return RunRequest{}, errors.ErrInput.WithCause(err).AsFatal()
	}

	var event models.ImportRequested
	if err := models.FromPayload(msg.Payload, &event); err != nil {
		return RunRequest{}, errors.ErrInput.WithCause(err).AsFatal()
	}
	if err := models.ValidateImportRequested(event); err != nil {
		return RunRequest{}, errors.ErrInput.WithCause(err).AsFatal()
	}

	req := RunRequest{
		ScopeID:   event.DatasetScopeID,
		Locator:   event.StorageLocator,
		Format:    event.Format,
		Note:      event.Note,
		RequestID: msg.ID,
	}
	if event.SourceBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(event.SourceBase64)
		if err != nil {
			return RunRequest{}, errors.ErrInput.WithCause(err).WithDetail("field", "source_base64").AsFatal()
		}
		req.Source = data
	}
	return req, nil
}
