// Package filedrop ingests the bulk-file delivery channel: delivery report
// CSVs dropped into an S3 bucket (or local directory). Discovery is a
// listing diffed against the already-imported file set; each file is one
// provenance batch.
package filedrop

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/campaign-reporter/internal/source"
)

// SourceTag identifies this adapter in provenance and sync-run rows.
const SourceTag = "filedrop"

// headerAliases maps the vendor's assorted column headings onto the
// well-known record fields. Matching is case-insensitive and trimmed.
var headerAliases = map[string]string{
	"campaign id":    source.FieldCampaignID,
	"campaign_id":    source.FieldCampaignID,
	"campaignid":     source.FieldCampaignID,
	"campaign":       source.FieldCampaignName,
	"campaign name":  source.FieldCampaignName,
	"campaign_name":  source.FieldCampaignName,
	"recipient":      source.FieldRecipient,
	"msisdn":         source.FieldRecipient,
	"phone":          source.FieldRecipient,
	"phone number":   source.FieldRecipient,
	"email":          source.FieldRecipient,
	"status":         source.FieldStatus,
	"result":         source.FieldStatus,
	"delivery state": source.FieldStatus,
	"timestamp":      source.FieldEventAt,
	"sent at":        source.FieldEventAt,
	"sent_at":        source.FieldEventAt,
	"event time":     source.FieldEventAt,
	"date":           source.FieldEventAt,
	"cost":           source.FieldCost,
	"price":          source.FieldCost,
	"fee":            source.FieldFee,
	"surcharge":      source.FieldFee,
	"reason":         source.FieldReason,
	"error":          source.FieldReason,
	"failure reason": source.FieldReason,
}

// Adapter implements source.FileSource over a Lister.
type Adapter struct {
	lister Lister
}

// New creates a filedrop adapter over the given drop-area lister.
func New(lister Lister) *Adapter { return &Adapter{lister: lister} }

// Tag returns the adapter's source tag.
func (a *Adapter) Tag() string { return SourceTag }

// ListFiles returns all candidate file names currently in the drop area.
// The caller diffs against the imported-file set; this adapter never tracks
// what has been processed.
func (a *Adapter) ListFiles(ctx context.Context) ([]string, error) {
	return a.lister.List(ctx)
}

// FetchFile parses one delivery file into raw records. Rows that fail CSV
// parsing are skipped; field-level problems are the normalizer's job.
func (a *Adapter) FetchFile(ctx context.Context, name string) ([]source.RawRecord, error) {
	rc, err := a.lister.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(stripBOM(rc))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	colMap := mapHeader(header)
	if _, ok := hasField(colMap, source.FieldRecipient); !ok {
		return nil, fmt.Errorf("no recipient column in %s: %v", name, header)
	}

	var records []source.RawRecord
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		fields := make(map[string]string, len(colMap))
		for i, val := range row {
			field, ok := colMap[i]
			if !ok {
				continue
			}
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			fields[field] = val
		}
		if len(fields) == 0 {
			continue
		}
		records = append(records, source.RawRecord{Fields: fields, Batch: name})
	}
	return records, nil
}

// mapHeader resolves each column index to a well-known field name.
func mapHeader(header []string) map[int]string {
	m := make(map[int]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := headerAliases[key]; ok {
			// First matching column wins
			if _, taken := hasValue(m, field); !taken {
				m[i] = field
			}
		}
	}
	return m
}

func hasField(m map[int]string, field string) (int, bool) {
	return hasValue(m, field)
}

func hasValue(m map[int]string, field string) (int, bool) {
	for i, f := range m {
		if f == field {
			return i, true
		}
	}
	return 0, false
}

// stripBOM wraps a reader to strip a leading UTF-8 BOM if present. Peek
// buffers until three bytes arrive, so a BOM split across short reads is
// still recognized.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
