package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cablesync/internal/constants"
	"cablesync/internal/diff"
	"cablesync/internal/inventory"
	"cablesync/internal/normalizer"
	pkgerrors "cablesync/pkg/errors"
	"cablesync/pkg/metrics"
	"cablesync/pkg/tracing"
)

// importRun carries the state one Run accumulates from phase to phase.
type importRun struct {
	service *Service
	req     RunRequest

	format    string
	checksum  string
	rows      []normalizer.RawRow
	entities  []inventory.Entity
	stats     normalizer.Stats
	imp       *Import
	previous  *diff.Previous
	events    []inventory.ChangeEvent
	summary   *Summary
	committed bool
}

// phase times fn and tags its failure with the phase name. Errors that already
// carry a phase keep it.
func (r *importRun) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := tracing.StartImportSpan(ctx, "import."+name, r.req.ScopeID)

	err := fn(ctx)
	metrics.ObserveImportPhase(name, time.Since(started))
	if err != nil {
		if _, tagged := pkgerrors.PhaseOf(err); !tagged {
			err = pkgerrors.NewPhaseError(name, err)
		}
	}
	tracing.EndSpan(span, err)

	r.service.logger.DebugwCtx(ctx, "Import phase finished",
		"phase", name,
		"duration_ms", time.Since(started).Milliseconds(),
		"failed", err != nil,
	)
	return err
}

func (r *importRun) readInput(ctx context.Context) error {
	s := r.service
	if strings.TrimSpace(r.req.ScopeID) == "" {
		return pkgerrors.ErrInput.WithDetail("message", "dataset scope id is required")
	}

	data := r.req.Source
	if r.req.Locator != "" {
		if len(data) > 0 {
			return pkgerrors.ErrInput.WithDetail("message", "exactly one of source bytes and storage locator is allowed")
		}
		if s.resolver == nil {
			return pkgerrors.ErrInput.WithDetail("message", "storage locators are not supported by this deployment")
		}
		resolved, err := s.resolver.Resolve(ctx, r.req.Locator)
		if err != nil {
			return inputError(err, fmt.Sprintf("failed to read source %q", r.req.Locator))
		}
		data = resolved
	}

	if len(data) == 0 {
		return pkgerrors.ErrInput.WithDetail("message", "source is empty")
	}
	if s.maxSourceBytes > 0 && int64(len(data)) > s.maxSourceBytes {
		return pkgerrors.ErrInput.WithDetail("message", fmt.Sprintf("source exceeds %d bytes", s.maxSourceBytes))
	}

	format := strings.ToLower(strings.TrimSpace(r.req.Format))
	if format == "" {
		format = s.parser.Detect(data)
	}

	rows, err := s.parser.Parse(ctx, format, data)
	if err != nil {
		return inputError(err, "source could not be parsed")
	}
	if len(rows) == 0 {
		return pkgerrors.ErrInput.WithDetail("message", "source contains no data rows")
	}

	r.format = format
	r.checksum = Checksum(data)
	r.rows = rows
	return nil
}

func (r *importRun) normalize(ctx context.Context) error {
	s := r.service
	n := s.normalizer
	if s.vocabulary != nil {
		vocabulary, err := s.vocabulary.Vocabulary(ctx, r.req.ScopeID)
		if err != nil {
			return fmt.Errorf("failed to load status vocabulary: %w", err)
		}
		n = n.With(normalizer.WithVocabulary(vocabulary))
	}

	result, err := n.Normalize(ctx, r.rows)
	if err != nil {
		return inputError(err, "row filter could not be evaluated")
	}

	stats := result.Stats
	metrics.AddRowsRejected("empty_code", stats.SkippedEmpty)
	metrics.AddRowsRejected("excluded", stats.Excluded)
	metrics.AddRowsRejected("duplicate", stats.Duplicates)
	if stats.UnmappedStatuses > 0 {
		s.logger.WarnwCtx(ctx, "Unmapped status labels fell back to the default status",
			"count", stats.UnmappedStatuses,
			"samples", stats.UnmappedSamples,
		)
	}

	if len(result.Entities) == 0 {
		return pkgerrors.ErrInput.WithDetail("message", "no rows with a code remain after normalization")
	}

	r.entities = result.Entities
	r.stats = stats
	r.rows = nil
	return nil
}

func (r *importRun) createImport(ctx context.Context) error {
	s := r.service
	previous, err := s.repo.PreviousImportID(ctx, r.req.ScopeID)
	if err != nil {
		return persistenceError(err)
	}

	imp := &Import{
		ID:                 s.newID(),
		ScopeID:            r.req.ScopeID,
		PreviousImportID:   previous,
		Checksum:           r.checksum,
		Note:               r.req.Note,
		Format:             r.format,
		EntityCount:        len(r.entities),
		Status:             ImportPending,
		NormalizationStats: r.stats,
	}
	if err := s.repo.CreateImport(ctx, imp); err != nil {
		return persistenceError(err)
	}
	r.imp = imp
	return nil
}

func (r *importRun) writeSnapshot(ctx context.Context) error {
	if err := r.service.repo.WriteSnapshot(ctx, r.imp.ID, r.entities); err != nil {
		return persistenceError(err)
	}
	metrics.AddImportEntities(len(r.entities))
	return nil
}

// readPrevious materializes the previous snapshot. A scope without a previous
// import leaves previous nil, which the engine treats as a first import.
func (r *importRun) readPrevious(ctx context.Context) error {
	if r.imp.PreviousImportID == nil {
		return nil
	}
	states, err := r.service.repo.LoadSnapshot(ctx, *r.imp.PreviousImportID)
	if err != nil {
		return persistenceError(err)
	}
	r.previous = &diff.Previous{ImportID: *r.imp.PreviousImportID, States: states}
	return nil
}

func (r *importRun) classify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.events = r.service.engine.Diff(r.req.ScopeID, r.imp.ID, r.entities, r.previous)
	return nil
}

// commitLedger writes events and projection and advances the scope pointer in one
// transaction. A failed begin counts as write_events and a failed commit as
// advance_pointer.
func (r *importRun) commitLedger(ctx context.Context) error {
	s := r.service
	started := false
	seenAt := s.now()

	err := s.repo.WithinTx(ctx, func(tx LedgerWriter) error {
		started = true

		if err := r.phase(ctx, constants.PhaseWriteEvents, func(ctx context.Context) error {
			return persistenceError(tx.WriteEvents(ctx, r.events))
		}); err != nil {
			return err
		}

		if err := r.phase(ctx, constants.PhaseUpdateProjection, func(ctx context.Context) error {
			if err := tx.UpsertProjection(ctx, r.req.ScopeID, r.imp.ID, r.entities, seenAt); err != nil {
				return persistenceError(err)
			}
			missing, err := tx.MarkMissing(ctx, r.req.ScopeID, r.imp.ID)
			if err != nil {
				return persistenceError(err)
			}
			if missing > 0 {
				s.logger.DebugwCtx(ctx, "Projection rows marked missing", "count", missing)
			}
			return nil
		}); err != nil {
			return err
		}

		return r.phase(ctx, constants.PhaseAdvancePointer, func(ctx context.Context) error {
			if err := tx.AdvancePointer(ctx, r.req.ScopeID, r.imp.PreviousImportID, r.imp.ID); err != nil {
				return persistenceError(err)
			}
			return persistenceError(tx.MarkCommitted(ctx, r.imp.ID))
		})
	})
	if err != nil {
		if _, tagged := pkgerrors.PhaseOf(err); tagged {
			return err
		}
		phase := constants.PhaseAdvancePointer
		if !started {
			phase = constants.PhaseWriteEvents
		}
		return pkgerrors.NewPhaseError(phase, persistenceError(err))
	}

	r.committed = true
	r.imp.Status = ImportCommitted
	for _, e := range r.events {
		metrics.AddChangeEvents(string(e.ChangeType), e.Severity.String(), 1)
	}
	return nil
}

func (r *importRun) writeSummary(ctx context.Context) error {
	summary := Tally(r.imp, outcomesOf(r.events))
	if err := r.service.repo.UpsertSummary(ctx, summary); err != nil {
		return persistenceError(err)
	}
	r.summary = summary
	return nil
}

func (r *importRun) result() *RunResult {
	return &RunResult{
		ImportID:           r.imp.ID,
		PreviousImportID:   r.imp.PreviousImportID,
		Checksum:           r.checksum,
		CountsByChangeType: r.summary.ByChangeType,
		CountsBySeverity:   r.summary.BySeverity,
		TotalEntityCount:   r.summary.TotalEntities,
		TotalEvents:        r.summary.TotalEvents,
		Normalization:      r.stats,
	}
}
