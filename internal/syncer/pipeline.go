package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/normalize"
	"github.com/ignite/campaign-reporter/internal/pkg/logger"
	"github.com/ignite/campaign-reporter/internal/source"
	"golang.org/x/sync/errgroup"
)

// syncFiles runs the bulk-file pipeline: discover new files, then
// fetch → normalize → merge each one. The file marker advances only after
// the file's records are merged, so a failed file is retried next run.
func (s *Syncer) syncFiles(ctx context.Context, run *domain.SyncRun) []unitResult {
	s.progress.setState(StateFetching)

	names, err := s.file.ListFiles(ctx)
	if err != nil {
		return []unitResult{{name: "list files", err: err}}
	}

	var fresh []string
	for _, name := range names {
		imported, err := s.tracker.IsFileImported(ctx, name)
		if err != nil {
			return []unitResult{{name: "check imported", err: err}}
		}
		if !imported {
			fresh = append(fresh, name)
		}
	}
	s.progress.setTotal(len(fresh))

	var results []unitResult
	for i, name := range fresh {
		s.progress.setCurrent(name, i)
		results = append(results, s.syncOneFile(ctx, name))
	}
	return results
}

func (s *Syncer) syncOneFile(ctx context.Context, name string) unitResult {
	res := unitResult{name: name, files: 1}
	s.progress.setUnitStatus(name, "fetching")

	raws, err := s.file.FetchFile(ctx, name)
	if err != nil {
		res.err = fmt.Errorf("fetch: %w", err)
		s.progress.setUnitStatus(name, "failed")
		return res
	}

	s.progress.setUnitStatus(name, "normalizing")
	records, rejected := s.normalizeBatch(raws)
	res.rejected = rejected

	s.progress.setUnitStatus(name, "merging")
	stats, err := s.merger.MergeBatch(ctx, s.tag, records)
	if err != nil {
		res.err = fmt.Errorf("merge: %w", err)
		s.progress.setUnitStatus(name, "failed")
		return res
	}
	res.campaigns = stats.Campaigns
	res.records = stats.Records

	// Only now is the file considered imported.
	if err := s.tracker.MarkFileImported(ctx, domain.ImportedFile{
		FileName:    name,
		SourceTag:   s.tag,
		RecordCount: stats.Records,
		ErrorCount:  rejected,
	}); err != nil {
		res.err = fmt.Errorf("mark imported: %w", err)
		s.progress.setUnitStatus(name, "failed")
		return res
	}

	s.progress.setUnitStatus(name, "done")
	return res
}

// syncWindows runs the month-windowed pipeline across all tenants with
// bounded parallelism. One tenant's failure never aborts the others.
func (s *Syncer) syncWindows(ctx context.Context, run *domain.SyncRun) []unitResult {
	s.progress.setState(StateFetching)

	tenants, err := s.merger.Tenants(ctx)
	if err != nil {
		return []unitResult{{name: "list tenants", err: err}}
	}
	s.progress.setTotal(len(tenants))

	now := time.Now().UTC()
	since := now.AddDate(0, -s.opts.LookbackMonths, 0)

	var (
		mu      sync.Mutex
		results []unitResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, tenant := range tenants {
		g.Go(func() error {
			s.progress.setCurrent(tenant.Name, i)
			res := s.syncOneTenant(gctx, tenant, since, now)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			// Errors are absorbed into the unit result; never abort the group.
			return nil
		})
	}
	g.Wait()
	return results
}

func (s *Syncer) syncOneTenant(ctx context.Context, tenant domain.Tenant, since, until time.Time) unitResult {
	res := unitResult{name: tenant.Name}
	s.progress.setUnitStatus(tenant.Name, "fetching")

	months, err := s.tracker.MonthsToFetch(ctx, tenant.ID, s.tag, since, until)
	if err != nil {
		res.err = fmt.Errorf("months to fetch: %w", err)
		s.progress.setUnitStatus(tenant.Name, "failed")
		return res
	}
	if len(months) == 0 {
		s.progress.setUnitStatus(tenant.Name, "up to date")
		return res
	}

	// Whole months, ascending. The window marker advances per month, only
	// after that month's records are merged — an upstream error fails
	// closed and the month is re-requested next run.
	for _, month := range months {
		from, to, err := month.Bounds()
		if err != nil {
			res.err = err
			break
		}

		raws, err := s.window.FetchWindow(ctx, tenant, from, to)
		if err != nil {
			res.err = err
			break
		}

		s.progress.setUnitStatus(tenant.Name, fmt.Sprintf("merging %s", month))
		records, rejected := s.normalizeBatch(raws)
		res.rejected += rejected

		stats, err := s.merger.MergeBatch(ctx, s.tag, records)
		if err != nil {
			res.err = fmt.Errorf("merge %s: %w", month, err)
			break
		}
		res.campaigns += stats.Campaigns
		res.records += stats.Records

		if err := s.tracker.MarkMonthFetched(ctx, domain.FetchWindow{
			TenantID:  tenant.ID,
			SourceTag: s.tag,
			Month:     month,
			From:      from,
			To:        to,
		}); err != nil {
			res.err = fmt.Errorf("mark fetched %s: %w", month, err)
			break
		}
	}

	if res.err != nil {
		s.progress.setUnitStatus(tenant.Name, "failed")
	} else {
		s.progress.setUnitStatus(tenant.Name, "done")
	}
	return res
}

// normalizeBatch converts raw records, logging recoverable field problems
// and counting hard rejects (unparsable timestamps and the like).
func (s *Syncer) normalizeBatch(raws []source.RawRecord) ([]*domain.Record, int) {
	s.progress.setState(StateNormalizing)

	records := make([]*domain.Record, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		rec, warnings, err := normalize.Normalize(raw, s.tag)
		if err != nil {
			rejected++
			logger.Debug("syncer: record rejected", "source", s.tag, "batch", raw.Batch, "err", err)
			continue
		}
		for _, w := range warnings {
			logger.Warn("syncer: recoverable field error", "source", s.tag, "batch", raw.Batch, "field", w.Field)
		}
		records = append(records, rec)
	}
	if rejected > 0 {
		logger.Warn("syncer: records rejected during normalization", "source", s.tag, "count", rejected)
	}
	s.progress.setState(StateMerging)
	return records, rejected
}
