package filedrop

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/ignite/campaign-reporter/internal/source"
)

func dropFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirListerFiltersNonCSV(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "report.csv", "a,b\n1,2\n")
	dropFile(t, dir, "REPORT2.CSV", "a,b\n1,2\n")
	dropFile(t, dir, "notes.txt", "hello")
	dropFile(t, dir, "empty.csv", "")

	names, err := NewDirLister(dir).List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List() = %v, want the two non-empty CSVs", names)
	}
}

func TestFetchFileMapsVendorHeaders(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "report.csv",
		"Campaign ID,Campaign Name,MSISDN,Result,Timestamp,Price,Surcharge,Reason\n"+
			"C-1,Acme - Spring,+15550100,DELIVERED,2026-03-01 10:00:00,0.05,0.01,\n"+
			"C-1,Acme - Spring,+15550101,FAILED,2026-03-01 10:01:00,0.05,0.01,expired\n")

	records, err := New(NewDirLister(dir)).FetchFile(context.Background(), "report.csv")
	if err != nil {
		t.Fatalf("FetchFile() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Get(source.FieldCampaignID) != "C-1" {
		t.Errorf("campaign id = %q", first.Get(source.FieldCampaignID))
	}
	if first.Get(source.FieldRecipient) != "+15550100" {
		t.Errorf("recipient = %q, want MSISDN column mapped", first.Get(source.FieldRecipient))
	}
	if first.Get(source.FieldStatus) != "DELIVERED" {
		t.Errorf("status = %q, want Result column mapped", first.Get(source.FieldStatus))
	}
	if first.Get(source.FieldCost) != "0.05" || first.Get(source.FieldFee) != "0.01" {
		t.Errorf("money = %q/%q", first.Get(source.FieldCost), first.Get(source.FieldFee))
	}
	if first.Batch != "report.csv" {
		t.Errorf("Batch = %q, want file name", first.Batch)
	}
	if records[1].Get(source.FieldReason) != "expired" {
		t.Errorf("reason = %q", records[1].Get(source.FieldReason))
	}
}

func TestFetchFileStripsBOM(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "bom.csv",
		"\xEF\xBB\xBFemail,status,date\na@b.com,sent,2026-03-01\n")

	records, err := New(NewDirLister(dir)).FetchFile(context.Background(), "bom.csv")
	if err != nil {
		t.Fatalf("FetchFile() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Get(source.FieldRecipient) != "a@b.com" {
		t.Errorf("recipient = %q, want BOM stripped from the first header", records[0].Get(source.FieldRecipient))
	}
}

// A reader is allowed to deliver the BOM one byte at a time; it must still
// be stripped.
func TestStripBOMSplitAcrossReads(t *testing.T) {
	r := stripBOM(iotest.OneByteReader(strings.NewReader("\xEF\xBB\xBFemail\n")))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(got) != "email\n" {
		t.Errorf("stripBOM output = %q, want BOM removed", got)
	}
}

func TestStripBOMShortInput(t *testing.T) {
	r := stripBOM(iotest.OneByteReader(strings.NewReader("ab")))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(got) != "ab" {
		t.Errorf("stripBOM output = %q, want input preserved", got)
	}
}

func TestFetchFileRequiresRecipientColumn(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "norec.csv", "campaign,status\nSpring,sent\n")

	_, err := New(NewDirLister(dir)).FetchFile(context.Background(), "norec.csv")
	if err == nil {
		t.Error("FetchFile() accepted a file without a recipient column")
	}
}

func TestFetchFileSkipsRaggedRows(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "ragged.csv",
		"email,status,date\n"+
			"a@b.com,sent,2026-03-01\n"+
			"\n"+
			"c@d.com,failed\n")

	records, err := New(NewDirLister(dir)).FetchFile(context.Background(), "ragged.csv")
	if err != nil {
		t.Fatalf("FetchFile() error: %v", err)
	}
	// Short rows still map what they have; blank rows are dropped.
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestFetchFileEmptyFile(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "header-only.csv", "email,status,date\n")

	records, err := New(NewDirLister(dir)).FetchFile(context.Background(), "header-only.csv")
	if err != nil {
		t.Fatalf("FetchFile() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want none", len(records))
	}
}
