package abpipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPurchase(id, ts, user, session, price, discount string) RawEvent {
	return RawEvent{
		"event_id":        id,
		"event_ts":        ts,
		"user_id":         user,
		"session_id":      session,
		"event_name":      "purchase",
		"price_paid":      price,
		"quantity":        "1",
		"discount_amount": discount,
	}
}

// TestNormalizer_Normalize verifies canonical mapping of a clean record.
func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("event_name")

	ev, clamped, err := n.Normalize(RawEvent{
		"event_id":   "ev-001",
		"event_ts":   "2024-03-01 10:15:00",
		"user_id":    "42",
		"session_id": "7",
		"product_id": "P0001",
		"event_name": "pdp_view",
	})
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Equal(t, "ev-001", ev.EventID)
	assert.Equal(t, EventViewProduct, ev.Type)
	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, int64(7), ev.SessionID)
	assert.Equal(t, "P0001", ev.ProductID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC), ev.Timestamp)
	assert.False(t, ev.IsPurchase)
	assert.Zero(t, ev.NetRevenue)
}

// TestNormalizer_EventTypeAliases tests the fixed alias table.
func TestNormalizer_EventTypeAliases(t *testing.T) {
	testCases := []struct {
		raw  string
		want EventType
	}{
		{"pdp_view", EventViewProduct},
		{"product_view", EventViewProduct},
		{"PDP View", EventViewProduct},
		{"  view_product  ", EventViewProduct},
		{"buy_now", EventPurchase},
		{"checkout_complete", EventPurchase},
		{"home", EventViewHome},
		{"signout", EventLogout},
		{"cart_add", EventAddToCart},
		{"checkout_start", EventBeginCheckout},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseEventType(tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestNormalizer_UnknownEventType tests that unrecognized values error,
// never silently drop.
func TestNormalizer_UnknownEventType(t *testing.T) {
	n := NewNormalizer("event_name")

	_, _, err := n.Normalize(RawEvent{
		"event_id":   "ev-002",
		"event_ts":   "2024-03-01 10:15:00",
		"user_id":    "1",
		"session_id": "1",
		"event_name": "promo_banner_shown",
	})
	require.Error(t, err)

	var unknownErr *UnknownEventTypeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "promo_banner_shown", unknownErr.Value)
	assert.Equal(t, "ev-002", unknownErr.EventID)
}

// TestNormalizer_MissingMappedField tests SchemaMappingError for an absent
// source column.
func TestNormalizer_MissingMappedField(t *testing.T) {
	n := NewNormalizer("evt_type") // remapped event-name column

	_, _, err := n.Normalize(RawEvent{
		"event_id":   "ev-003",
		"event_ts":   "2024-03-01 10:15:00",
		"user_id":    "1",
		"session_id": "1",
		"event_name": "purchase", // present under the wrong name
	})
	require.Error(t, err)

	var mappingErr *SchemaMappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "evt_type", mappingErr.Field)
}

// TestNormalizer_RemappedEventNameField tests reading the event type from a
// configured source column.
func TestNormalizer_RemappedEventNameField(t *testing.T) {
	n := NewNormalizer("evt_type")

	ev, _, err := n.Normalize(RawEvent{
		"event_id":   "ev-004",
		"event_ts":   "2024-03-01T10:15:00Z",
		"user_id":    "1",
		"session_id": "1",
		"evt_type":   "search",
	})
	require.NoError(t, err)
	assert.Equal(t, EventSearch, ev.Type)
}

// TestNormalizer_PurchaseDerivation tests net revenue and the purchase flag.
func TestNormalizer_PurchaseDerivation(t *testing.T) {
	n := NewNormalizer("event_name")

	ev, clamped, err := n.Normalize(rawPurchase("ev-005", "2024-03-01 11:00:00", "1", "1", "120.50", "20.50"))
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.True(t, ev.IsPurchase)
	assert.InDelta(t, 100.0, ev.NetRevenue, 1e-9)
	assert.InDelta(t, 120.50, ev.PricePaid, 1e-9)
	assert.InDelta(t, 20.50, ev.DiscountAmount, 1e-9)
}

// TestNormalizer_NegativeRevenueClamped tests that a discount larger than
// the price clamps to zero and is flagged.
func TestNormalizer_NegativeRevenueClamped(t *testing.T) {
	n := NewNormalizer("event_name")

	ev, clamped, err := n.Normalize(rawPurchase("ev-006", "2024-03-01 11:00:00", "1", "1", "10.00", "25.00"))
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Zero(t, ev.NetRevenue)
}

// TestNormalizer_NonPurchaseHasZeroRevenue tests that revenue fields stay
// zero outside purchases.
func TestNormalizer_NonPurchaseHasZeroRevenue(t *testing.T) {
	n := NewNormalizer("event_name")

	ev, _, err := n.Normalize(RawEvent{
		"event_id":   "ev-007",
		"event_ts":   "2024-03-01 11:00:00",
		"user_id":    "1",
		"session_id": "1",
		"event_name": "add_to_cart",
		"price_paid": "99.99", // stray value on a non-purchase row
	})
	require.NoError(t, err)
	assert.False(t, ev.IsPurchase)
	assert.Zero(t, ev.NetRevenue)
	assert.Zero(t, ev.PricePaid)
}

// TestNormalizer_Properties tests that unknown columns survive as free-form
// properties.
func TestNormalizer_Properties(t *testing.T) {
	n := NewNormalizer("event_name")

	ev, _, err := n.Normalize(RawEvent{
		"event_id":   "ev-008",
		"event_ts":   "2024-03-01 11:00:00",
		"user_id":    "1",
		"session_id": "1",
		"event_name": "search",
		"query":      "running shoes",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query": "running shoes"}, ev.Properties)
}

// TestNormalizer_NormalizeBatch tests count-and-skip semantics: bad records
// are counted per cause and the pass continues.
func TestNormalizer_NormalizeBatch(t *testing.T) {
	n := NewNormalizer("event_name")

	raws := []RawEvent{
		{"event_id": "ev-1", "event_ts": "2024-03-01 10:00:00", "user_id": "1", "session_id": "1", "event_name": "session_start"},
		{"event_id": "ev-2", "event_ts": "2024-03-01 10:01:00", "user_id": "1", "session_id": "1", "event_name": "mystery_event"},
		{"event_id": "ev-3", "event_ts": "not-a-timestamp", "user_id": "1", "session_id": "1", "event_name": "search"},
		rawPurchase("ev-4", "2024-03-01 10:02:00", "1", "1", "5.00", "9.00"),
	}

	events, stats := n.NormalizeBatch(raws)
	assert.Len(t, events, 2)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Normalized)
	assert.Equal(t, 1, stats.SkippedUnknown)
	assert.Equal(t, 1, stats.SkippedSchema)
	assert.Equal(t, 2, stats.Skipped())
	assert.Equal(t, 1, stats.ClampedRevenue)
}
