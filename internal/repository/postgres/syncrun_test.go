package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/campaign-reporter/internal/domain"
)

func TestSyncRunBeginAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO sync_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &domain.SyncRun{
		SourceTag: "filedrop",
		Outcome:   domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := NewSyncRunStore(db).Begin(context.Background(), run); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if run.ID == "" {
		t.Error("Begin() did not assign a run id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSyncRunRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	finished := now.Add(-time.Minute)
	mock.ExpectQuery("FROM sync_runs").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source_tag", "outcome", "started_at", "finished_at",
			"files_processed", "campaigns_processed", "records_processed",
			"error_count", "error_summary",
		}).
			AddRow("r2", "reach", "partial", now, &finished, 0, 3, 250, 1, "globex: upstream 500").
			AddRow("r1", "filedrop", "success", now.Add(-time.Hour), &finished, 2, 5, 900, 0, ""))

	runs, err := NewSyncRunStore(db).Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Outcome != domain.RunPartial || runs[0].ErrorSummary == "" {
		t.Errorf("runs[0] = %+v", runs[0])
	}
	if runs[1].RecordsProcessed != 900 {
		t.Errorf("runs[1].RecordsProcessed = %d, want 900", runs[1].RecordsProcessed)
	}
}

func TestSyncRunRecentCapsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Zero limit defaults, oversized limit caps.
	mock.ExpectQuery("FROM sync_runs").WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source_tag", "outcome", "started_at", "finished_at",
			"files_processed", "campaigns_processed", "records_processed",
			"error_count", "error_summary",
		}))
	mock.ExpectQuery("FROM sync_runs").WithArgs(200).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source_tag", "outcome", "started_at", "finished_at",
			"files_processed", "campaigns_processed", "records_processed",
			"error_count", "error_summary",
		}))

	store := NewSyncRunStore(db)
	if _, err := store.Recent(context.Background(), 0); err != nil {
		t.Fatalf("Recent(0) error: %v", err)
	}
	if _, err := store.Recent(context.Background(), 9999); err != nil {
		t.Fatalf("Recent(9999) error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
