package vocabulary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cablesync/internal/inventory"
	"cablesync/internal/logger"
	"cablesync/internal/normalizer"
	pkgerrors "cablesync/pkg/errors"
)

type Service struct {
	repo    Repository
	base    *normalizer.Vocabulary
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
}

// NewService merges scope overrides over base. A zero timeout leaves lookups
// bounded only by the caller's context.
func NewService(repo Repository, base *normalizer.Vocabulary, timeout time.Duration, log logger.Logger) *Service {
	if base == nil {
		base = normalizer.DefaultVocabulary()
	}
	return &Service{
		repo:    repo,
		base:    base,
		timeout: timeout,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Vocabulary returns the vocabulary an import of scopeID normalizes with.
func (s *Service) Vocabulary(ctx context.Context, scopeID string) (*normalizer.Vocabulary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	override, err := s.repo.Get(ctx, scopeID)
	if pkgerrors.IsNotFound(err) {
		return s.base, nil
	}
	if err != nil {
		return nil, err
	}

	entries, defaultStatus, err := parseOverride(override.Entries, override.DefaultStatus)
	if err != nil {
		// Stored documents are validated on write; a bad one was edited by hand.
		s.logger.WarnwCtx(ctx, "Ignoring invalid vocabulary override",
			"scope_id", scopeID,
			"error", err,
		)
		return s.base, nil
	}

	return s.base.Merge(entries, defaultStatus), nil
}

func (s *Service) Get(ctx context.Context, scopeID string) (*Override, error) {
	if err := validateScope(scopeID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Get(ctx, scopeID)
}

func (s *Service) Put(ctx context.Context, scopeID string, req UpdateRequest) (*Override, error) {
	if err := validateScope(scopeID); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(req.Entries))
	for text, status := range req.Entries {
		entries = append(entries, Entry{Text: strings.TrimSpace(text), Status: status})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Text < entries[j].Text })

	if _, _, err := parseOverride(entries, req.DefaultStatus); err != nil {
		return nil, err
	}

	override := &Override{
		ScopeID:       scopeID,
		Entries:       entries,
		DefaultStatus: req.DefaultStatus,
		UpdatedAt:     s.now(),
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Put(ctx, override); err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "Vocabulary override stored",
		"scope_id", scopeID,
		"entries", len(entries),
	)
	return override, nil
}

func (s *Service) Delete(ctx context.Context, scopeID string) error {
	if err := validateScope(scopeID); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Delete(ctx, scopeID)
}

func validateScope(scopeID string) error {
	if strings.TrimSpace(scopeID) == "" {
		return pkgerrors.ErrValidation.WithDetail("field", "scope").WithDetail("message", "scope id is required")
	}
	return nil
}

func parseOverride(entries []Entry, defaultStatus string) (map[string]inventory.Status, *inventory.Status, error) {
	parsed := make(map[string]inventory.Status, len(entries))
	for _, entry := range entries {
		if entry.Text == "" {
			return nil, nil, pkgerrors.ErrValidation.
				WithDetail("field", "entries").
				WithDetail("message", "vocabulary labels must not be empty")
		}
		status, err := inventory.ParseStatus(entry.Status)
		if err != nil {
			return nil, nil, pkgerrors.ErrValidation.WithCause(err).
				WithDetail("field", "entries").
				WithDetail("message", fmt.Sprintf("label %q maps to unknown status %q", entry.Text, entry.Status))
		}
		parsed[entry.Text] = status
	}

	if defaultStatus == "" {
		return parsed, nil, nil
	}
	status, err := inventory.ParseStatus(defaultStatus)
	if err != nil {
		return nil, nil, pkgerrors.ErrValidation.WithCause(err).
			WithDetail("field", "default_status").
			WithDetail("message", fmt.Sprintf("unknown status %q", defaultStatus))
	}
	return parsed, &status, nil
}
