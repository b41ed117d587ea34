package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observationsFromCells expands per-cell counts into observation rows.
func observationsFromCells(cells []struct {
	treatment  bool
	events     int
	n          int
	purchasers int
	revenue    float64
}) []Observation {
	var obs []Observation
	for _, c := range cells {
		for i := 0; i < c.n; i++ {
			o := Observation{Treatment: c.treatment, EventsInWindow: c.events}
			if i < c.purchasers {
				o.Purchased = true
				o.NetRevenue = c.revenue
			}
			obs = append(obs, o)
		}
	}
	return obs
}

func analyzeFixture() []Observation {
	return observationsFromCells([]struct {
		treatment  bool
		events     int
		n          int
		purchasers int
		revenue    float64
	}{
		{false, 2, 200, 30, 50},
		{false, 7, 200, 55, 60},
		{true, 2, 200, 45, 55},
		{true, 7, 200, 80, 65},
	})
}

// TestAnalyze_FullReport tests a complete readout: summaries, z-test, CI,
// and a converged regression.
func TestAnalyze_FullReport(t *testing.T) {
	report, err := Analyze(analyzeFixture(), 0.95)
	require.NoError(t, err)

	require.Len(t, report.Summaries, 2)
	control, treatment := report.Summaries[0], report.Summaries[1]

	assert.Equal(t, "control", control.Variant)
	assert.Equal(t, 400, control.Users)
	assert.Equal(t, 85, control.Conversions)
	assert.InDelta(t, 85.0/400, control.ConversionRate, 1e-12)

	assert.Equal(t, "treatment", treatment.Variant)
	assert.Equal(t, 400, treatment.Users)
	assert.Equal(t, 125, treatment.Conversions)

	require.NotNil(t, report.ZTest)
	assert.InDelta(t, 125.0/400-85.0/400, report.ZTest.Lift, 1e-12)
	assert.InDelta(t, report.ZTest.Lift*100, report.ZTest.LiftPP, 1e-9)

	require.NotNil(t, report.LiftCI)
	assert.Less(t, report.LiftCI.Lower, report.ZTest.Lift)
	assert.Greater(t, report.LiftCI.Upper, report.ZTest.Lift)

	require.NotNil(t, report.Regression)
	assert.Empty(t, report.RegressionError)
	require.Len(t, report.Regression.Coefficients, 3)
	assert.Positive(t, report.Regression.Coefficients[1].Estimate, "treatment effect")
	assert.Positive(t, report.Regression.Coefficients[2].Estimate, "engagement effect")
}

// TestAnalyze_RevenuePerUser tests descriptive revenue aggregation.
func TestAnalyze_RevenuePerUser(t *testing.T) {
	obs := []Observation{
		{Treatment: false, Purchased: true, NetRevenue: 100, EventsInWindow: 3},
		{Treatment: false, Purchased: false, NetRevenue: 0, EventsInWindow: 1},
		{Treatment: true, Purchased: true, NetRevenue: 60, EventsInWindow: 4},
		{Treatment: true, Purchased: true, NetRevenue: 40, EventsInWindow: 2},
	}
	report, err := Analyze(obs, 0.9)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, report.Summaries[0].RevenuePerUser, 1e-9)
	assert.InDelta(t, 50.0, report.Summaries[1].RevenuePerUser, 1e-9)
	assert.InDelta(t, 2.0, report.Summaries[0].EventsPerUser, 1e-9)
	assert.InDelta(t, 3.0, report.Summaries[1].EventsPerUser, 1e-9)
}

// TestAnalyze_EmptyArm tests that a missing variant is a reported
// cannot-compute outcome.
func TestAnalyze_EmptyArm(t *testing.T) {
	obs := []Observation{
		{Treatment: true, Purchased: true, EventsInWindow: 2},
		{Treatment: true, Purchased: false, EventsInWindow: 1},
	}

	_, err := Analyze(obs, 0.95)
	var insufficientErr *InsufficientDataError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "control", insufficientErr.Variant)
}

// TestAnalyze_RegressionFailureKeepsReport tests that a degenerate design
// matrix skips the regression but preserves the z-test and interval.
func TestAnalyze_RegressionFailureKeepsReport(t *testing.T) {
	obs := observationsFromCells([]struct {
		treatment  bool
		events     int
		n          int
		purchasers int
		revenue    float64
	}{
		// events_in_window constant: collinear with the intercept.
		{false, 3, 100, 20, 50},
		{true, 3, 100, 30, 50},
	})

	report, err := Analyze(obs, 0.95)
	require.NoError(t, err)
	assert.Nil(t, report.Regression)
	assert.NotEmpty(t, report.RegressionError)
	assert.Contains(t, report.RegressionError, "events_in_window")
	require.NotNil(t, report.ZTest)
	require.NotNil(t, report.LiftCI)
}
