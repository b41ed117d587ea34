package abpipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func viewAt(id string, user int64, ts time.Time) Event {
	return Event{EventID: id, Timestamp: ts, UserID: user, SessionID: 1, Type: EventViewProduct}
}

// TestResolveExposures_FirstQualifyingEvent tests that the earliest exposure
// event at or after assignment wins.
func TestResolveExposures_FirstQualifyingEvent(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: VariantControl, AssignedAt: t0},
	}
	events := []Event{
		viewAt("ev-3", 1, t0.Add(3*time.Hour)),
		viewAt("ev-1", 1, t0.Add(-1*time.Hour)), // before assignment, ignored
		viewAt("ev-2", 1, t0.Add(1*time.Hour)),
	}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, t0.Add(1*time.Hour), result.Records[0].ExposureTS)
	assert.Equal(t, VariantControl, result.Records[0].Variant)
	assert.Equal(t, 1, result.Assigned)
	assert.Zero(t, result.Unexposed)
}

// TestResolveExposures_ExposureAtAssignmentInstant tests the >= boundary:
// an exposure event exactly at assignment_ts qualifies.
func TestResolveExposures_ExposureAtAssignmentInstant(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: VariantTreatment, AssignedAt: t0},
	}
	events := []Event{viewAt("ev-1", 1, t0)}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, t0, result.Records[0].ExposureTS)
}

// TestResolveExposures_TieBreakByEventID tests deterministic ordering among
// identical timestamps.
func TestResolveExposures_TieBreakByEventID(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: VariantControl, AssignedAt: t0},
	}
	ts := t0.Add(time.Hour)
	events := []Event{
		viewAt("ev-b", 1, ts),
		viewAt("ev-a", 1, ts),
		viewAt("ev-c", 1, ts),
	}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	// The record carries the timestamp; determinism is observable through
	// repeated runs choosing the same event regardless of input order.
	for i := 0; i < 5; i++ {
		again, err := ResolveExposures(assignments, events, EventViewProduct)
		require.NoError(t, err)
		assert.Equal(t, result.Records, again.Records)
	}
}

// TestResolveExposures_UnexposedExcluded tests that an assigned user with no
// qualifying event produces no record, only a count.
func TestResolveExposures_UnexposedExcluded(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: VariantControl, AssignedAt: t0},
		{Experiment: "exp", UserID: 2, Variant: VariantTreatment, AssignedAt: t0},
	}
	events := []Event{
		viewAt("ev-1", 1, t0.Add(time.Hour)),
		// User 2 browsed but never hit the exposure event.
		{EventID: "ev-2", Timestamp: t0.Add(time.Hour), UserID: 2, SessionID: 9, Type: EventViewHome},
	}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, int64(1), result.Records[0].UserID)
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 1, result.Unexposed)
}

// TestResolveExposures_InvalidVariant tests the defensive variant check.
func TestResolveExposures_InvalidVariant(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: "variant_c", AssignedAt: t0},
	}

	_, err := ResolveExposures(assignments, nil, EventViewProduct)
	require.Error(t, err)

	var variantErr *AssignmentVariantError
	require.ErrorAs(t, err, &variantErr)
	assert.Equal(t, "variant_c", variantErr.Variant)
	assert.Equal(t, int64(1), variantErr.UserID)
}

// TestResolveExposures_TwoExperimentsShareUser tests independent records per
// experiment for the same user.
func TestResolveExposures_TwoExperimentsShareUser(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp_a", UserID: 1, Variant: VariantControl, AssignedAt: t0},
		{Experiment: "exp_b", UserID: 1, Variant: VariantTreatment, AssignedAt: t0.Add(2 * time.Hour)},
	}
	events := []Event{
		viewAt("ev-1", 1, t0.Add(time.Hour)),
		viewAt("ev-2", 1, t0.Add(3*time.Hour)),
	}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "exp_a", result.Records[0].Experiment)
	assert.Equal(t, t0.Add(time.Hour), result.Records[0].ExposureTS)
	assert.Equal(t, "exp_b", result.Records[1].Experiment)
	// exp_b was assigned later, so its first qualifying event differs.
	assert.Equal(t, t0.Add(3*time.Hour), result.Records[1].ExposureTS)
}

// TestResolveExposures_DuplicateAssignmentKeepsFirst tests the at-most-one
// invariant under duplicate assignment rows.
func TestResolveExposures_DuplicateAssignmentKeepsFirst(t *testing.T) {
	assignments := []Assignment{
		{Experiment: "exp", UserID: 1, Variant: VariantControl, AssignedAt: t0},
		{Experiment: "exp", UserID: 1, Variant: VariantTreatment, AssignedAt: t0},
	}
	events := []Event{viewAt("ev-1", 1, t0.Add(time.Hour))}

	result, err := ResolveExposures(assignments, events, EventViewProduct)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, VariantControl, result.Records[0].Variant)
	assert.Equal(t, 1, result.Assigned)
}
