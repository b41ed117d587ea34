package abpipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func purchaseAt(id string, user int64, ts time.Time, revenue float64) Event {
	return Event{
		EventID: id, Timestamp: ts, UserID: user, SessionID: 1,
		Type: EventPurchase, IsPurchase: true, NetRevenue: revenue,
	}
}

// TestWindower_BoundaryInclusion tests the half-open window: the exposure
// instant is in, the window end is out.
func TestWindower_BoundaryInclusion(t *testing.T) {
	window := 24 * time.Hour
	w := NewWindower(window, EventPurchase)
	exp := ExposureRecord{Experiment: "exp", UserID: 1, Variant: VariantControl, ExposureTS: t0}

	testCases := []struct {
		name          string
		ts            time.Time
		wantCounted   bool
		wantPurchased bool
	}{
		{"at exposure instant", t0, true, true},
		{"inside window", t0.Add(12 * time.Hour), true, true},
		{"just before window end", t0.Add(window - time.Second), true, true},
		{"exactly at window end", t0.Add(window), false, false},
		{"after window end", t0.Add(window + time.Hour), false, false},
		{"before exposure", t0.Add(-time.Second), false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := w.Outcome(exp, []Event{purchaseAt("ev-1", 1, tc.ts, 50)})
			assert.Equal(t, tc.wantPurchased, out.Purchased)
			if tc.wantCounted {
				assert.Equal(t, 1, out.EventsInWindow)
				assert.InDelta(t, 50.0, out.NetRevenue, 1e-9)
			} else {
				assert.Zero(t, out.EventsInWindow)
				assert.Zero(t, out.NetRevenue)
			}
		})
	}
}

// TestWindower_NoEvents tests that an exposed user with no window activity
// still gets a zero-valued record.
func TestWindower_NoEvents(t *testing.T) {
	w := NewWindower(24*time.Hour, EventPurchase)
	exp := ExposureRecord{Experiment: "exp", UserID: 1, Variant: VariantControl, ExposureTS: t0}

	out := w.Outcome(exp, nil)
	assert.Equal(t, int64(1), out.UserID)
	assert.False(t, out.Purchased)
	assert.Zero(t, out.NetRevenue)
	assert.Zero(t, out.EventsInWindow)
}

// TestWindower_AggregatesRevenueAndEngagement tests revenue summing over
// purchases and event counting over all types.
func TestWindower_AggregatesRevenueAndEngagement(t *testing.T) {
	w := NewWindower(24*time.Hour, EventPurchase)
	exp := ExposureRecord{Experiment: "exp", UserID: 1, Variant: VariantTreatment, ExposureTS: t0}

	events := []Event{
		{EventID: "ev-1", Timestamp: t0, UserID: 1, Type: EventViewProduct},
		purchaseAt("ev-2", 1, t0.Add(time.Hour), 30),
		{EventID: "ev-3", Timestamp: t0.Add(2 * time.Hour), UserID: 1, Type: EventAddToCart},
		purchaseAt("ev-4", 1, t0.Add(3*time.Hour), 20),
		purchaseAt("ev-5", 2, t0.Add(time.Hour), 999), // other user, ignored
	}

	out := w.Outcome(exp, events)
	assert.True(t, out.Purchased)
	assert.InDelta(t, 50.0, out.NetRevenue, 1e-9)
	assert.Equal(t, 4, out.EventsInWindow)
	assert.GreaterOrEqual(t, out.NetRevenue, 0.0)
}

// TestWindower_EngagementWithoutPurchase tests that browsing-only windows
// count events but convert nothing.
func TestWindower_EngagementWithoutPurchase(t *testing.T) {
	w := NewWindower(24*time.Hour, EventPurchase)
	exp := ExposureRecord{Experiment: "exp", UserID: 1, Variant: VariantControl, ExposureTS: t0}

	events := []Event{
		{EventID: "ev-1", Timestamp: t0, UserID: 1, Type: EventViewProduct},
		{EventID: "ev-2", Timestamp: t0.Add(time.Minute), UserID: 1, Type: EventAddToCart},
	}

	out := w.Outcome(exp, events)
	assert.False(t, out.Purchased)
	assert.Zero(t, out.NetRevenue)
	assert.Equal(t, 2, out.EventsInWindow)
}
