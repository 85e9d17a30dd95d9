package fetchwindow

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/campaign-reporter/internal/domain"
)

func setupTracker(t *testing.T) (*Tracker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestIsFileImported(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM imported_files").
		WithArgs("report-2026-03.csv").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	got, err := tracker.IsFileImported(context.Background(), "report-2026-03.csv")
	if err != nil {
		t.Fatalf("IsFileImported() error: %v", err)
	}
	if !got {
		t.Error("IsFileImported() = false, want true")
	}
}

func TestMarkFileImportedIsIdempotent(t *testing.T) {
	tracker, mock := setupTracker(t)

	// Second mark conflicts and affects zero rows; still no error.
	mock.ExpectExec("INSERT INTO imported_files").
		WithArgs("f.csv", "filedrop", 10, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := tracker.MarkFileImported(context.Background(), domain.ImportedFile{
		FileName:    "f.csv",
		SourceTag:   "filedrop",
		RecordCount: 10,
		ErrorCount:  2,
	})
	if err != nil {
		t.Fatalf("MarkFileImported() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkMonthFetchedStoresLiteralBounds(t *testing.T) {
	tracker, mock := setupTracker(t)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectExec("INSERT INTO fetch_windows").
		WithArgs(int64(7), "reach", "2026-03", from, to).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := tracker.MarkMonthFetched(context.Background(), domain.FetchWindow{
		TenantID:  7,
		SourceTag: "reach",
		Month:     "2026-03",
		From:      from,
		To:        to,
	})
	if err != nil {
		t.Fatalf("MarkMonthFetched() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMonthsToFetch(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT month FROM fetch_windows").
		WithArgs(int64(7), "reach").
		WillReturnRows(sqlmock.NewRows([]string{"month"}).
			AddRow("2026-02").
			AddRow("2026-04"))

	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	months, err := tracker.MonthsToFetch(context.Background(), 7, "reach", since, until)
	if err != nil {
		t.Fatalf("MonthsToFetch() error: %v", err)
	}

	want := []domain.Month{"2026-01", "2026-03"}
	if len(months) != len(want) {
		t.Fatalf("MonthsToFetch() = %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("months[%d] = %q, want %q", i, months[i], want[i])
		}
	}
}

// The month the cursor currently sits in is never offered for fetching:
// marking it would freeze a partial month and drop the rest of its data.
func TestMonthsToFetchExcludesInProgressMonth(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT month FROM fetch_windows").
		WithArgs(int64(7), "reach").
		WillReturnRows(sqlmock.NewRows([]string{"month"}))

	until := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	since := until.AddDate(0, -3, 0)
	months, err := tracker.MonthsToFetch(context.Background(), 7, "reach", since, until)
	if err != nil {
		t.Fatalf("MonthsToFetch() error: %v", err)
	}

	want := []domain.Month{"2026-05", "2026-06", "2026-07"}
	if len(months) != len(want) {
		t.Fatalf("MonthsToFetch() = %v, want %v (no 2026-08)", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("months[%d] = %q, want %q", i, months[i], want[i])
		}
	}
}

func TestMonthsToFetchSameMonthWindow(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT month FROM fetch_windows").
		WithArgs(int64(7), "reach").
		WillReturnRows(sqlmock.NewRows([]string{"month"}))

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	months, err := tracker.MonthsToFetch(context.Background(), 7, "reach", since, until)
	if err != nil {
		t.Fatalf("MonthsToFetch() error: %v", err)
	}
	if len(months) != 0 {
		t.Errorf("MonthsToFetch() = %v, want none while the month is open", months)
	}
}

func TestIsMonthFetched(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM fetch_windows").
		WithArgs(int64(7), "reach", "2026-03").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	got, err := tracker.IsMonthFetched(context.Background(), 7, "reach", "2026-03")
	if err != nil {
		t.Fatalf("IsMonthFetched() error: %v", err)
	}
	if got {
		t.Error("IsMonthFetched() = true, want false")
	}
}

func TestResetOperations(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectExec("DELETE FROM imported_files").
		WithArgs("f.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM fetch_windows").
		WithArgs(int64(7), "reach", "2026-03").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := tracker.ResetFile(context.Background(), "f.csv"); err != nil {
		t.Fatalf("ResetFile() error: %v", err)
	}
	if err := tracker.ResetMonth(context.Background(), 7, "reach", "2026-03"); err != nil {
		t.Fatalf("ResetMonth() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMonthsToFetchAllFetched(t *testing.T) {
	tracker, mock := setupTracker(t)

	mock.ExpectQuery("SELECT month FROM fetch_windows").
		WithArgs(int64(7), "reach").
		WillReturnRows(sqlmock.NewRows([]string{"month"}).
			AddRow("2026-03").
			AddRow("2026-04"))

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	months, err := tracker.MonthsToFetch(context.Background(), 7, "reach", since, until)
	if err != nil {
		t.Fatalf("MonthsToFetch() error: %v", err)
	}
	if len(months) != 0 {
		t.Errorf("MonthsToFetch() = %v, want none", months)
	}
}
