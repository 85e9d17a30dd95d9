// Package normalize maps raw source records into canonical records. Every
// function here is pure; the sync orchestrator decides what to do with
// rejects and warnings.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/source"
)

// ErrBadTimestamp marks a record whose event time could not be parsed.
// The timestamp is part of the identity key, so such records cannot be
// stored and are rejected entirely.
var ErrBadTimestamp = errors.New("unparsable event timestamp")

// ErrNoRecipient marks a record without a recipient address.
var ErrNoRecipient = errors.New("missing recipient")

// ErrNoCampaign marks a record with neither campaign id nor campaign name.
var ErrNoCampaign = errors.New("missing campaign identity")

// FieldError is a recoverable per-field problem: the record is kept with
// the field zeroed, and the orchestrator logs a warning.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("malformed %s value %q, zeroed", e.Field, e.Value)
}

// statusTable drives the normalized status mapping. Lookup keys are
// lowercased and trimmed; anything not present maps to StatusOther.
var statusTable = map[string]domain.Status{
	"sent":      domain.StatusSuccess,
	"success":   domain.StatusSuccess,
	"delivered": domain.StatusSuccess,
	"failed":    domain.StatusFailure,
	"failure":   domain.StatusFailure,
	"error":     domain.StatusFailure,
}

// timeLayouts are tried in order when parsing event timestamps. All times
// are interpreted as UTC unless the value carries an offset.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

// Status maps a raw status string onto the closed normalized set.
func Status(raw string) domain.Status {
	if st, ok := statusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return st
	}
	return domain.StatusOther
}

// Normalize converts one raw record into a canonical Record.
//
// A non-nil error means the record is rejected (counted, not stored).
// The returned FieldErrors are recoverable: the record is kept with the
// offending numeric fields zeroed.
func Normalize(raw source.RawRecord, tag string) (*domain.Record, []*FieldError, error) {
	recipient := strings.ToLower(strings.TrimSpace(raw.Get(source.FieldRecipient)))
	if recipient == "" {
		return nil, nil, ErrNoRecipient
	}

	externalID := strings.TrimSpace(raw.Get(source.FieldCampaignID))
	name := strings.TrimSpace(raw.Get(source.FieldCampaignName))
	if externalID == "" && name == "" {
		return nil, nil, ErrNoCampaign
	}
	// Bulk files may carry only a campaign name; it then doubles as the
	// source-scoped identifier.
	if externalID == "" {
		externalID = name
	}
	if name == "" {
		name = externalID
	}

	eventAt, err := parseEventTime(raw.Get(source.FieldEventAt))
	if err != nil {
		return nil, nil, err
	}

	var warnings []*FieldError
	cost, warn := parseCents(source.FieldCost, raw.Get(source.FieldCost))
	if warn != nil {
		warnings = append(warnings, warn)
	}
	fee, warn := parseCents(source.FieldFee, raw.Get(source.FieldFee))
	if warn != nil {
		warnings = append(warnings, warn)
	}

	rawStatus := strings.TrimSpace(raw.Get(source.FieldStatus))

	return &domain.Record{
		Recipient:          recipient,
		EventAt:            eventAt,
		Status:             Status(rawStatus),
		RawStatus:          rawStatus,
		CostCents:          cost,
		FeeCents:           fee,
		FailureReason:      strings.TrimSpace(raw.Get(source.FieldReason)),
		SourceTag:          tag,
		SourceBatch:        raw.Batch,
		CampaignExternalID: externalID,
		CampaignName:       name,
	}, warnings, nil
}

// parseEventTime tries the known layouts in order. Unparsable values are a
// hard reject because the timestamp participates in the identity key.
func parseEventTime(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrBadTimestamp)
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	// Unix seconds, as some sources deliver epoch timestamps
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

// parseCents converts a decimal money string to integer cents. Absence is
// zero; malformed values are zero plus a recoverable FieldError.
func parseCents(field, raw string) (domain.Cents, *FieldError) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Field: field, Value: raw}
	}
	return domain.Cents(math.Round(f * 100)), nil
}
