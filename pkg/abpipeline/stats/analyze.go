/*
Package stats computes the experiment readout: per-variant descriptive
statistics, a pooled two-proportion z-test, a Wald confidence interval for
the lift, and a logistic regression of purchase on treatment controlling for
engagement.

Numerical policy: statistical non-identifiability (an empty arm, a
degenerate design matrix) is reported through typed errors as a normal
business outcome, never as a panic or a silently wrong number. A failed
regression does not discard the rest of the report.
*/
package stats

import (
	"errors"

	mstats "github.com/montanaflynn/stats"
)

// Observation is one exposed user's row from the joined marts: which arm
// they were in, whether they converted, and how engaged they were inside
// the outcome window.
type Observation struct {
	Treatment      bool
	Purchased      bool
	NetRevenue     float64
	EventsInWindow int
}

// VariantSummary is the descriptive readout for one arm.
type VariantSummary struct {
	Variant        string  `json:"variant"`
	Users          int     `json:"users"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	RevenuePerUser float64 `json:"revenue_per_user"`
	EventsPerUser  float64 `json:"events_per_user"`
}

// Report is the full analysis output. Regression is nil when the model fit
// was skipped; RegressionError then explains why. Lift semantics: ZTest.Lift
// and the confidence interval are raw proportion differences, ZTest.LiftPP
// is percentage points.
type Report struct {
	Summaries       []VariantSummary `json:"summaries"`
	ZTest           *ZTestResult     `json:"z_test"`
	LiftCI          *Interval        `json:"lift_ci"`
	Regression      *LogitResult     `json:"regression,omitempty"`
	RegressionError string           `json:"regression_error,omitempty"`
}

// Analyze computes the full experiment report from mart observations.
//
// Returns *InsufficientDataError when either arm has zero users; nothing can
// be computed in that case. A *ModelFitError from the regression is folded
// into the report (Regression nil, RegressionError set) because the upstream
// marts and the z-test remain valid.
func Analyze(observations []Observation, confidence float64) (*Report, error) {
	var control, treatment []Observation
	for _, obs := range observations {
		if obs.Treatment {
			treatment = append(treatment, obs)
		} else {
			control = append(control, obs)
		}
	}

	report := &Report{
		Summaries: []VariantSummary{
			summarize("control", control),
			summarize("treatment", treatment),
		},
	}
	convC := report.Summaries[0].Conversions
	convT := report.Summaries[1].Conversions

	ztest, err := TwoProportionZTest(convC, len(control), convT, len(treatment))
	if err != nil {
		return nil, err
	}
	report.ZTest = ztest

	ci, err := LiftInterval(convC, len(control), convT, len(treatment), confidence)
	if err != nil {
		return nil, err
	}
	report.LiftCI = ci

	// purchased ~ is_treatment + events_in_window. Post-treatment mediators
	// (add_to_cart, begin_checkout) stay out of the covariate set: they
	// invite separation and bias the treatment estimate.
	y := make([]bool, len(observations))
	rows := make([][]float64, len(observations))
	for i, obs := range observations {
		y[i] = obs.Purchased
		var treat float64
		if obs.Treatment {
			treat = 1
		}
		rows[i] = []float64{treat, float64(obs.EventsInWindow)}
	}
	regression, err := LogisticRegression(y, rows, []string{"is_treatment", "events_in_window"})
	if err != nil {
		var mfe *ModelFitError
		if errors.As(err, &mfe) {
			report.RegressionError = mfe.Error()
			return report, nil
		}
		return nil, err
	}
	report.Regression = regression
	return report, nil
}

func summarize(variant string, obs []Observation) VariantSummary {
	s := VariantSummary{Variant: variant, Users: len(obs)}
	if len(obs) == 0 {
		return s
	}

	converted := make([]float64, len(obs))
	revenue := make([]float64, len(obs))
	engagement := make([]float64, len(obs))
	for i, o := range obs {
		if o.Purchased {
			s.Conversions++
			converted[i] = 1
		}
		revenue[i] = o.NetRevenue
		engagement[i] = float64(o.EventsInWindow)
	}

	// Means over fixed-length slices cannot fail; fall back to zero anyway
	// rather than propagate a library error into the report.
	s.ConversionRate, _ = mstats.Mean(converted)
	s.RevenuePerUser, _ = mstats.Mean(revenue)
	s.EventsPerUser, _ = mstats.Mean(engagement)
	return s
}
