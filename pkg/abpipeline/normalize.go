package abpipeline

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts accepted from the raw extract. The warehouse dumps use
// the second form; API exports use RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Columns with fixed names in every known extract. Only the event-type
// column is remappable through schema configuration.
const (
	colEventID   = "event_id"
	colEventTS   = "event_ts"
	colUserID    = "user_id"
	colSessionID = "session_id"
	colProductID = "product_id"
	colPricePaid = "price_paid"
	colQuantity  = "quantity"
	colDiscount  = "discount_amount"
)

// Normalizer maps raw extract records onto the canonical Event schema.
// It is stateless; construct once and reuse across batches.
type Normalizer struct {
	eventNameField string
}

// NewNormalizer creates a normalizer that reads the raw event-type value
// from the given source column (schema.events.event_name).
func NewNormalizer(eventNameField string) *Normalizer {
	return &Normalizer{eventNameField: eventNameField}
}

// NormalizeStats reports the outcome of a batch normalization pass.
// Skipped records are counted per cause, never silently ignored.
type NormalizeStats struct {
	Total          int
	Normalized     int
	SkippedSchema  int // missing/unparsable mapped fields
	SkippedUnknown int // unrecognized event-type values
	ClampedRevenue int // purchases whose derived net revenue went negative
}

// Skipped returns the total number of records dropped from the batch.
func (s NormalizeStats) Skipped() int {
	return s.SkippedSchema + s.SkippedUnknown
}

// Normalize converts one raw record into a canonical Event.
//
// Returns *SchemaMappingError when a required mapped field is absent or
// unparsable, and *UnknownEventTypeError when the event-type value has no
// canonical counterpart. The clamped return is true when a purchase derived
// a negative net revenue that was clamped to zero.
func (n *Normalizer) Normalize(raw RawEvent) (ev Event, clamped bool, err error) {
	eventID := strings.TrimSpace(raw[colEventID])
	if eventID == "" {
		return Event{}, false, &SchemaMappingError{Field: colEventID}
	}

	rawName, ok := raw[n.eventNameField]
	if !ok || strings.TrimSpace(rawName) == "" {
		return Event{}, false, &SchemaMappingError{Field: n.eventNameField, EventID: eventID}
	}
	eventType, ok := ParseEventType(rawName)
	if !ok {
		return Event{}, false, &UnknownEventTypeError{Value: rawName, EventID: eventID}
	}

	ts, err := parseTimestamp(raw[colEventTS])
	if err != nil {
		return Event{}, false, &SchemaMappingError{Field: colEventTS, EventID: eventID}
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(raw[colUserID]), 10, 64)
	if err != nil {
		return Event{}, false, &SchemaMappingError{Field: colUserID, EventID: eventID}
	}
	sessionID, err := strconv.ParseInt(strings.TrimSpace(raw[colSessionID]), 10, 64)
	if err != nil {
		return Event{}, false, &SchemaMappingError{Field: colSessionID, EventID: eventID}
	}

	ev = Event{
		EventID:   eventID,
		Timestamp: ts,
		UserID:    userID,
		SessionID: sessionID,
		ProductID: strings.TrimSpace(raw[colProductID]),
		Type:      eventType,
	}

	if eventType == EventPurchase {
		ev.IsPurchase = true
		ev.PricePaid = parseFloat(raw[colPricePaid], 0)
		ev.Quantity = parseInt(raw[colQuantity], 1)
		ev.DiscountAmount = parseFloat(raw[colDiscount], 0)

		ev.NetRevenue = ev.PricePaid - ev.DiscountAmount
		if ev.NetRevenue < 0 {
			// A discount larger than the price is a data-quality issue;
			// negative revenue must never propagate downstream.
			ev.NetRevenue = 0
			clamped = true
		}
	}

	ev.Properties = extractProperties(raw, n.eventNameField)
	return ev, clamped, nil
}

// NormalizeBatch runs Normalize over a full extract. Per-record failures are
// counted in the returned stats and the pass continues; the output order
// matches the input order.
func (n *Normalizer) NormalizeBatch(raws []RawEvent) ([]Event, NormalizeStats) {
	events := make([]Event, 0, len(raws))
	stats := NormalizeStats{Total: len(raws)}

	for _, raw := range raws {
		ev, clamped, err := n.Normalize(raw)
		if err != nil {
			switch err.(type) {
			case *UnknownEventTypeError:
				stats.SkippedUnknown++
			default:
				stats.SkippedSchema++
			}
			continue
		}
		if clamped {
			stats.ClampedRevenue++
		}
		stats.Normalized++
		events = append(events, ev)
	}
	return events, stats
}

// knownColumns are consumed into typed Event fields; everything else lands
// in Properties.
var knownColumns = map[string]struct{}{
	colEventID:   {},
	colEventTS:   {},
	colUserID:    {},
	colSessionID: {},
	colProductID: {},
	colPricePaid: {},
	colQuantity:  {},
	colDiscount:  {},
}

func extractProperties(raw RawEvent, eventNameField string) map[string]string {
	var props map[string]string
	for k, v := range raw {
		if k == eventNameField {
			continue
		}
		if _, ok := knownColumns[k]; ok {
			continue
		}
		if v == "" {
			continue
		}
		if props == nil {
			props = make(map[string]string)
		}
		props[k] = v
	}
	return props
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseFloat(raw string, fallback float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return i
}
