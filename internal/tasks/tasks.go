package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/classifier"
	"github.com/oe/sunrain-sub001/internal/dedupe"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/shared"
	"golang.org/x/sync/errgroup"
)

// RunRecorder stores a summary of each run.
type RunRecorder interface {
	Record(ctx context.Context, run *models.FetchRun) error
}

// SourceResult is one source's contribution to a run.
type SourceResult struct {
	Source  models.Source
	Name    string
	Records []models.ContentRecord
	Err     error // nil when the source was available
}

// RunResult contains all data from a full aggregation run.
type RunResult struct {
	Records  []models.ContentRecord // Final ranked output
	Sources  []SourceResult         // Per-source results in configured order
	Merged   int                    // Records after merging and ID de-duplication
	Merges   []dedupe.Merge         // Cross-source duplicates that were collapsed
	Near     []dedupe.NearDuplicate // Surviving pairs just under the merge threshold
	Rejected []models.ContentRecord // Records dropped by the validity gate
	Run      *models.FetchRun       // Ledger summary
}

// Degraded reports whether at least one source was unavailable.
func (r *RunResult) Degraded() bool {
	for _, s := range r.Sources {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Aggregator fans out over every source and reduces the results to one ranked list.
type Aggregator struct {
	sources  []services.SourceClient
	resolver *dedupe.Resolver
	gate     *classifier.Gate
	recorder RunRecorder
	logger   *log.Logger
	now      func() time.Time
}

// Option configures an [Aggregator].
type Option func(*Aggregator)

// WithResolver replaces the default duplicate resolver.
func WithResolver(r *dedupe.Resolver) Option {
	return func(a *Aggregator) { a.resolver = r }
}

// WithGate replaces the default validity gate.
func WithGate(g *classifier.Gate) Option {
	return func(a *Aggregator) { a.gate = g }
}

// WithRecorder stores a [models.FetchRun] after every run.
func WithRecorder(r RunRecorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

// WithLogger sets the logger for run summaries and per-source outcomes.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator over sources. Merge order follows the order of sources.
func NewAggregator(sources []services.SourceClient, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:  sources,
		resolver: dedupe.NewResolver(0, 0),
		gate:     classifier.NewGate(classifier.DefaultRules()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	return a
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []services.SourceClient {
	return a.sources
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (a *Aggregator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// FetchAll runs the pipeline without progress reporting and returns the ranked records.
func (a *Aggregator) FetchAll(ctx context.Context) ([]models.ContentRecord, error) {
	res, err := a.Run(ctx, nil)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run fetches every source, merges, removes cross-source duplicates and applies the validity gate.
//
// A source failure degrades that source to an empty list. Run returns an error wrapping
// [shared.ErrAllSourcesUnavailable] only when no source produced a result, and ctx.Err() when
// the run was canceled, in which case no records are returned.
func (a *Aggregator) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	run := models.NewFetchRun(a.now())

	if len(a.sources) == 0 {
		err := fmt.Errorf("%w: no sources configured", shared.ErrAllSourcesUnavailable)
		a.record(ctx, run, nil, err)
		return nil, err
	}

	result := &RunResult{Sources: a.fetchSources(ctx, progress), Run: run}
	run.Sources = sourceStats(result.Sources)

	if err := ctx.Err(); err != nil {
		a.record(ctx, run, nil, err)
		return nil, err
	}

	var failures []error
	for _, s := range result.Sources {
		if s.Err != nil {
			failures = append(failures, s.Err)
		}
	}
	if len(failures) == len(result.Sources) {
		err := fmt.Errorf("%w: %w", shared.ErrAllSourcesUnavailable, errors.Join(failures...))
		a.record(ctx, run, nil, err)
		return nil, err
	}

	var merged []models.ContentRecord
	for _, s := range result.Sources {
		merged = append(merged, s.Records...)
	}
	merged = dedupe.UniqueByID(merged)
	result.Merged = len(merged)
	a.sendProgress(progress, mergeUpdate(len(merged)))

	resolved := a.resolver.Resolve(merged)
	result.Merges = resolved.Merges
	result.Near = resolved.Near
	a.sendProgress(progress, dedupeUpdate(len(resolved.Records), len(resolved.Merges)))

	for _, m := range resolved.Merges {
		a.logger.Debug("merged duplicate", "kept", m.Kept.ID, "dropped", m.Dropped.ID, "similarity", m.Similarity)
	}
	for _, n := range resolved.Near {
		a.logger.Info("near duplicate kept", "a", n.A.ID, "b", n.B.ID, "similarity", n.Similarity)
	}

	kept, rejected := a.gate.Filter(resolved.Records)
	for _, r := range rejected {
		a.logger.Debug("rejected by validity gate", "id", r.ID, "title", r.Title)
	}
	result.Records = kept
	result.Rejected = rejected
	a.sendProgress(progress, validateUpdate(len(kept), len(rejected)))

	a.record(ctx, run, result, nil)
	a.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// fetchSources runs every source concurrently. Each goroutine writes only its own slot.
func (a *Aggregator) fetchSources(ctx context.Context, progress chan<- ProgressUpdate) []SourceResult {
	total := len(a.sources)
	slots := make([]SourceResult, total)

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			a.sendProgress(progress, fetchSourceUpdate(i+1, total, src))

			res := SourceResult{Source: src.Source(), Name: src.Name()}
			records, err := src.FetchContent(ctx)
			switch {
			case err != nil:
				res.Err = err
				if !shared.IsCanceled(err) {
					a.logger.Error("source unavailable", "source", src.Name(), "error", err)
				}
			default:
				res.Records = records
				a.logger.Info("source fetched", "source", src.Name(), "records", len(records))
			}

			slots[i] = res
			a.sendProgress(progress, sourceDoneUpdate(i+1, total, res))
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

// record finalizes run and hands it to the recorder. Failures are logged only.
func (a *Aggregator) record(ctx context.Context, run *models.FetchRun, result *RunResult, runErr error) {
	run.FinishedAt = a.now()
	if run.FinishedAt.Before(run.StartedAt) {
		run.FinishedAt = run.StartedAt
	}

	switch {
	case runErr != nil:
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	case result.Degraded():
		run.Status = models.RunDegraded
	default:
		run.Status = models.RunCompleted
	}

	if result != nil {
		run.Merged = result.Merged
		run.Duplicates = len(result.Merges)
		run.Rejected = len(result.Rejected)
		run.Output = len(result.Records)
	}

	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		a.logger.Warn("failed to record fetch run", "error", err)
	}
}

func sourceStats(results []SourceResult) []models.SourceStat {
	stats := make([]models.SourceStat, 0, len(results))
	for _, r := range results {
		stat := models.SourceStat{Source: r.Source, Count: len(r.Records)}
		if r.Err != nil {
			stat.Error = r.Err.Error()
		}
		stats = append(stats, stat)
	}
	return stats
}
