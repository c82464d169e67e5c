// Package importer runs imports end to end and serves their persisted read models:
// imports, snapshots, change events, the current projection and summaries.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cablesync/internal/constants"
	"cablesync/internal/diff"
	"cablesync/internal/inventory"
	"cablesync/internal/logger"
	"cablesync/internal/normalizer"
	pkgerrors "cablesync/pkg/errors"
	"cablesync/pkg/logging"
	"cablesync/pkg/metrics"
	"cablesync/pkg/models"
	"cablesync/pkg/tracing"
)

type Service struct {
	repo           Repository
	parser         RowParser
	normalizer     *normalizer.Normalizer
	engine         *diff.Engine
	resolver       SourceResolver
	vocabulary     VocabularyProvider
	cache          CounterCache
	notifier       Notifier
	logger         logger.Logger
	maxSourceBytes int64
	now            func() time.Time
	newID          func() string
}

type ServiceOption func(*Service)

func WithNormalizer(n *normalizer.Normalizer) ServiceOption {
	return func(s *Service) {
		s.normalizer = n
	}
}

func WithEngine(e *diff.Engine) ServiceOption {
	return func(s *Service) {
		s.engine = e
	}
}

func WithSourceResolver(r SourceResolver) ServiceOption {
	return func(s *Service) {
		s.resolver = r
	}
}

func WithVocabularyProvider(p VocabularyProvider) ServiceOption {
	return func(s *Service) {
		s.vocabulary = p
	}
}

func WithCounterCache(c CounterCache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMaxSourceBytes(n int64) ServiceOption {
	return func(s *Service) {
		s.maxSourceBytes = n
	}
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func WithImportIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

func NewService(repo Repository, parser RowParser, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:           repo,
		parser:         parser,
		normalizer:     normalizer.New(),
		engine:         diff.NewEngine(nil),
		logger:         log,
		maxSourceBytes: constants.DefaultMaxSourceBytes,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one import. It returns either a complete result or a single error
// naming the failed phase.
func (s *Service) Run(ctx context.Context, req RunRequest) (result *RunResult, err error) {
	started := time.Now()
	ctx = logging.WithScopeID(ctx, req.ScopeID)
	if req.RequestID != "" && logging.GetRequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, req.RequestID)
	}
	ctx, span := tracing.StartImportSpan(ctx, "import.run", req.ScopeID)

	run := &importRun{service: s, req: req}
	defer func() {
		status := models.ImportStatusCompleted
		if err != nil {
			status = models.ImportStatusFailed
			s.abandon(ctx, run, err)
		}
		metrics.ObserveImportRun(time.Since(started), status)
		tracing.EndSpan(span, err)
		s.notify(ctx, req, result, err)
	}()

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{constants.PhaseInput, run.readInput},
		{constants.PhaseNormalize, run.normalize},
		{constants.PhaseCreateImport, run.createImport},
		{constants.PhaseWriteSnapshot, run.writeSnapshot},
		{constants.PhaseReadPrevious, run.readPrevious},
		{constants.PhaseClassify, run.classify},
	}
	for _, p := range phases {
		if err := run.phase(ctx, p.name, p.fn); err != nil {
			return nil, err
		}
		if run.imp != nil && logging.GetImportID(ctx) == "" {
			ctx = logging.WithImportID(ctx, run.imp.ID)
		}
	}

	if err := run.commitLedger(ctx); err != nil {
		return nil, err
	}
	if err := run.phase(ctx, constants.PhaseWriteSummary, run.writeSummary); err != nil {
		return nil, err
	}

	s.invalidateCounters(ctx, req.ScopeID)
	result = run.result()

	s.logger.InfowCtx(ctx, "Import completed",
		"previous_import_id", derefOrEmpty(result.PreviousImportID),
		"entities", result.TotalEntityCount,
		"events", result.TotalEvents,
		"block_events", result.CountsBySeverity["BLOCK"],
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// abandon marks a created but uncommitted import as failed. A committed import
// keeps its status even when a later phase fails.
func (s *Service) abandon(ctx context.Context, run *importRun, runErr error) {
	phase, _ := pkgerrors.PhaseOf(runErr)
	s.logger.ErrorwCtx(ctx, "Import failed",
		"phase", phase,
		"error", runErr,
	)

	if run.imp == nil || run.committed {
		return
	}

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()
	if err := s.repo.MarkFailed(markCtx, run.imp.ID, phase); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to mark import as failed",
			"import_id", run.imp.ID,
			"error", err,
		)
	}
}

func (s *Service) notify(ctx context.Context, req RunRequest, result *RunResult, runErr error) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ImportFinished(ctx, req, result, runErr); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish import result", "error", err)
	}
}

func (s *Service) invalidateCounters(ctx context.Context, scopeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, scopeID); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to invalidate counter cache", "error", err)
	}
}

// RecomputeSummary tallies the stored events of a committed import again and
// overwrites its summary.
func (s *Service) RecomputeSummary(ctx context.Context, importID string) (*Summary, error) {
	imp, err := s.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp.Status != ImportCommitted {
		return nil, pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("import %s is %s, not committed", imp.ID, imp.Status))
	}

	outcomes, err := s.repo.EventOutcomes(ctx, imp.ID)
	if err != nil {
		return nil, persistenceError(err)
	}

	summary := Tally(imp, outcomes)
	if err := s.repo.UpsertSummary(ctx, summary); err != nil {
		return nil, persistenceError(err)
	}
	return summary, nil
}

func (s *Service) GetImport(ctx context.Context, importID string) (*Import, error) {
	if err := validateID("import id", importID); err != nil {
		return nil, err
	}
	return s.repo.GetImport(ctx, importID)
}

func (s *Service) ListImports(ctx context.Context, scopeID string, page Page) ([]Import, error) {
	if scopeID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "scope id is required")
	}
	return s.repo.ListImports(ctx, scopeID, page)
}

func (s *Service) GetSummary(ctx context.Context, importID string) (*Summary, error) {
	if err := validateID("import id", importID); err != nil {
		return nil, err
	}
	return s.repo.GetSummary(ctx, importID)
}

// ListEvents returns the events of one import in emission order.
func (s *Service) ListEvents(ctx context.Context, importID string, filter EventFilter, page Page) ([]inventory.ChangeEvent, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, importID, filter, page)
}

func (s *Service) ListSnapshot(ctx context.Context, importID string, page Page) ([]SnapshotRow, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}
	return s.repo.ListSnapshot(ctx, importID, page)
}

// ListProjection returns live rows of a scope with their event log counters.
func (s *Service) ListProjection(ctx context.Context, scopeID string, filter ProjectionFilter, page Page) ([]ProjectionRow, error) {
	if scopeID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "scope id is required")
	}

	rows, err := s.repo.ListProjection(ctx, scopeID, filter, page)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	counters, err := s.Counters(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Counters = counters[rows[i].Code]
	}
	return rows, nil
}

// Counters aggregates the event log per code, served from the cache when possible.
// Cache failures are logged and never fail the read.
func (s *Service) Counters(ctx context.Context, scopeID string) (map[string]Counters, error) {
	var lookup CounterLookup
	cached := s.cache != nil
	if cached {
		var err error
		lookup, err = s.cache.Get(ctx, scopeID)
		switch {
		case err != nil:
			cached = false
			metrics.IncCounterCacheRequest("error")
			metrics.IncFallback("importer", "counters_from_database", "cache_error")
			s.logger.WarnwCtx(ctx, "Counter cache read failed, aggregating from event log", "error", err)
		case lookup.Hit:
			metrics.IncCounterCacheRequest("hit")
			return lookup.Counters, nil
		default:
			metrics.IncCounterCacheRequest("miss")
		}
	}

	counters, err := s.repo.CountersForScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	// Set needs the generation of a successful lookup.
	if cached {
		stored, err := s.cache.Set(ctx, scopeID, lookup.Generation, counters)
		switch {
		case err != nil:
			s.logger.WarnwCtx(ctx, "Failed to cache counters", "error", err)
		case !stored:
			s.logger.DebugwCtx(ctx, "Counters changed while aggregating, not cached", "scope_id", scopeID)
		}
	}
	return counters, nil
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", fmt.Sprintf("invalid %s %q", field, id))
	}
	return nil
}

// persistenceError keeps coded errors and classifies the rest as persistence failures.
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.ErrPersistence.WithCause(err)
}

// inputError keeps coded errors and classifies the rest as input failures.
func inputError(err error, message string) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.ErrInput.WithCause(err).WithDetail("message", message)
}

func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
