// Package syncer orchestrates ingestion for one source: fetch via the
// source adapter, normalize, merge into the canonical store, and record a
// sync-run row — all under a per-source single-flight guard.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/merge"
	"github.com/ignite/campaign-reporter/internal/pkg/distlock"
	"github.com/ignite/campaign-reporter/internal/pkg/logger"
	"github.com/ignite/campaign-reporter/internal/source"
)

// ErrSyncInProgress is returned when a trigger arrives while a sync for the
// same source is already in flight. Triggers are rejected, never queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// maxSummaryErrors caps how many unit errors make it into the run summary;
// the rest are logged only.
const maxSummaryErrors = 5

// WindowTracker is the fetch-window persistence the orchestrator gates
// adapter requests through. Markers advance only after successful
// downstream processing.
type WindowTracker interface {
	IsFileImported(ctx context.Context, name string) (bool, error)
	MarkFileImported(ctx context.Context, f domain.ImportedFile) error
	MonthsToFetch(ctx context.Context, tenantID int64, tag string, since, until time.Time) ([]domain.Month, error)
	MarkMonthFetched(ctx context.Context, w domain.FetchWindow) error
}

// Merger is the dedup/merge engine surface the orchestrator drives.
type Merger interface {
	MergeBatch(ctx context.Context, tag string, records []*domain.Record) (merge.Stats, error)
	RelinkCampaigns(ctx context.Context) error
	Tenants(ctx context.Context) ([]domain.Tenant, error)
}

// RunStore persists sync-run rows.
type RunStore interface {
	Begin(ctx context.Context, run *domain.SyncRun) error
	Finish(ctx context.Context, run *domain.SyncRun) error
}

// Options configures a Syncer.
type Options struct {
	Interval       time.Duration
	LookbackMonths int
	Parallelism    int
	// Preflight validates source configuration (credentials present)
	// before any fetch. A non-nil error aborts the run as failed.
	Preflight func() error
}

// Syncer runs the ingestion pipeline for exactly one source tag. One of
// File or Window is set, matching the source kind.
type Syncer struct {
	tag     string
	file    source.FileSource
	window  source.WindowSource
	tracker WindowTracker
	merger  Merger
	runs    RunStore
	lock    distlock.DistLock
	opts    Options

	progress *progressState
	stopChan chan struct{}
}

// NewFileSyncer builds a syncer over a bulk-file source.
func NewFileSyncer(src source.FileSource, tracker WindowTracker, merger Merger, runs RunStore, lock distlock.DistLock, opts Options) *Syncer {
	return newSyncer(src.Tag(), src, nil, tracker, merger, runs, lock, opts)
}

// NewWindowSyncer builds a syncer over a month-windowed API source.
func NewWindowSyncer(src source.WindowSource, tracker WindowTracker, merger Merger, runs RunStore, lock distlock.DistLock, opts Options) *Syncer {
	return newSyncer(src.Tag(), nil, src, tracker, merger, runs, lock, opts)
}

func newSyncer(tag string, file source.FileSource, window source.WindowSource, tracker WindowTracker, merger Merger, runs RunStore, lock distlock.DistLock, opts Options) *Syncer {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.LookbackMonths <= 0 {
		opts.LookbackMonths = 3
	}
	return &Syncer{
		tag:      tag,
		file:     file,
		window:   window,
		tracker:  tracker,
		merger:   merger,
		runs:     runs,
		lock:     lock,
		opts:     opts,
		progress: newProgressState(tag),
		stopChan: make(chan struct{}),
	}
}

// Tag returns the source tag this syncer owns.
func (s *Syncer) Tag() string { return s.tag }

// Start begins the recurring sync loop. The timer path and the manual
// trigger converge on the same guarded entry point, so an overlap is
// rejected by the lock, not queued.
func (s *Syncer) Start() {
	logger.Info("syncer: starting", "source", s.tag, "interval", s.opts.Interval)
	go func() {
		if err := s.TriggerNow(); err != nil && !errors.Is(err, ErrSyncInProgress) {
			logger.Error("syncer: initial run failed to start", "source", s.tag, "err", err)
		}

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.TriggerNow(); err != nil && !errors.Is(err, ErrSyncInProgress) {
					logger.Error("syncer: scheduled run failed to start", "source", s.tag, "err", err)
				}
			case <-s.stopChan:
				logger.Info("syncer: stopped", "source", s.tag)
				return
			}
		}
	}()
}

// Stop halts the recurring loop. An in-flight run finishes on its own;
// merges are short and atomic per record, so there is nothing to cancel.
func (s *Syncer) Stop() {
	close(s.stopChan)
}

// TriggerNow starts a sync run unless one is already in flight, in which
// case it returns ErrSyncInProgress immediately. It never blocks for the
// duration of the sync: the pipeline runs in the background and progress
// is available via Progress().
func (s *Syncer) TriggerNow() error {
	started := make(chan error, 1)

	go func() {
		err := distlock.Run(context.Background(), s.lock, func(ctx context.Context) error {
			started <- nil
			s.runPipeline(ctx)
			return nil
		})
		if err != nil {
			started <- err
		}
	}()

	if err := <-started; err != nil {
		if errors.Is(err, distlock.ErrNotAcquired) {
			return ErrSyncInProgress
		}
		return err
	}
	return nil
}

// Progress returns a consistent snapshot of the current orchestrator
// state. Safe to call concurrently with a running sync.
func (s *Syncer) Progress() Progress {
	return s.progress.snapshot()
}

// runPipeline executes one full sync run under the already-held lock.
func (s *Syncer) runPipeline(ctx context.Context) {
	run := &domain.SyncRun{
		SourceTag: s.tag,
		Outcome:   domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.Begin(ctx, run); err != nil {
		logger.Error("syncer: record run start failed", "source", s.tag, "err", err)
	}
	s.progress.begin(run.ID)

	defer func() {
		if r := recover(); r != nil {
			run.Outcome = domain.RunFailed
			run.ErrorCount++
			run.ErrorSummary = fmt.Sprintf("panic: %v", r)
			s.finishRun(run)
			panic(r)
		}
	}()

	// Fatal configuration errors abort before any fetch attempt.
	if s.opts.Preflight != nil {
		if err := s.opts.Preflight(); err != nil {
			run.Outcome = domain.RunFailed
			run.ErrorCount = 1
			run.ErrorSummary = err.Error()
			logger.Error("syncer: preflight failed", "source", s.tag, "err", err)
			s.finishRun(run)
			return
		}
	}

	var results []unitResult
	if s.file != nil {
		results = s.syncFiles(ctx, run)
	} else {
		results = s.syncWindows(ctx, run)
	}

	s.progress.setState(StateMerging)
	if err := s.merger.RelinkCampaigns(ctx); err != nil {
		logger.Error("syncer: relink campaigns failed", "source", s.tag, "err", err)
		results = append(results, unitResult{name: "relink", err: err})
	}

	succeeded, failed := 0, 0
	var summary []string
	for _, r := range results {
		if r.err != nil {
			failed++
			run.ErrorCount++
			if len(summary) < maxSummaryErrors {
				summary = append(summary, fmt.Sprintf("%s: %v", r.name, r.err))
			}
			continue
		}
		succeeded++
		run.FilesProcessed += r.files
		run.CampaignsProcessed += r.campaigns
		run.RecordsProcessed += r.records
		run.ErrorCount += r.rejected
	}

	switch {
	case failed == 0:
		run.Outcome = domain.RunSuccess
	case succeeded == 0:
		run.Outcome = domain.RunFailed
	default:
		run.Outcome = domain.RunPartial
	}
	run.ErrorSummary = strings.Join(summary, "; ")

	s.finishRun(run)
	logger.Info("syncer: run complete",
		"source", s.tag, "outcome", string(run.Outcome),
		"records", run.RecordsProcessed, "errors", run.ErrorCount)
}

func (s *Syncer) finishRun(run *domain.SyncRun) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	// Persist with a fresh context so a canceled run still gets its row.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Finish(ctx, run); err != nil {
		logger.Error("syncer: record run finish failed", "source", s.tag, "err", err)
	}

	if run.Outcome == domain.RunFailed {
		s.progress.finish(StateFailed)
	} else {
		s.progress.finish(StateCompleted)
	}
}

// unitResult is the outcome of one isolated work unit: a file for the bulk
// channel, a tenant for the windowed sources.
type unitResult struct {
	name      string
	err       error
	files     int
	campaigns int
	records   int
	rejected  int
}
