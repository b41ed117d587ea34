package stats

import "math"

// ZTestResult is the pooled two-proportion z-test of
// H0: p_control = p_treatment.
//
// Lift is the raw proportion difference p_treatment - p_control; LiftPP is
// the same quantity in percentage points. Keep the two straight: confusing
// a proportion with percentage points is the classic way to misreport an
// experiment by a factor of 100.
type ZTestResult struct {
	ControlRate   float64 `json:"control_rate"`
	TreatmentRate float64 `json:"treatment_rate"`
	Lift          float64 `json:"lift"`
	LiftPP        float64 `json:"lift_pp"`
	ZScore        float64 `json:"z_score"`
	PValue        float64 `json:"p_value"`
}

// TwoProportionZTest runs the pooled z-test on conversion counts.
//
// The pooled proportion (convC+convT)/(nC+nT) feeds the null standard error
// sqrt(p(1-p)(1/nC+1/nT)); the reported p-value is two-sided. When the
// pooled proportion is degenerate (0 or 1, so the standard error vanishes)
// both arms behaved identically under the null and the test reports z=0,
// p=1 rather than dividing by zero.
//
// Returns *InsufficientDataError when either arm has no users.
func TwoProportionZTest(convC, nC, convT, nT int) (*ZTestResult, error) {
	if nC == 0 {
		return nil, &InsufficientDataError{Variant: "control"}
	}
	if nT == 0 {
		return nil, &InsufficientDataError{Variant: "treatment"}
	}

	pC := float64(convC) / float64(nC)
	pT := float64(convT) / float64(nT)
	lift := pT - pC

	result := &ZTestResult{
		ControlRate:   pC,
		TreatmentRate: pT,
		Lift:          lift,
		LiftPP:        lift * 100,
	}

	pooled := float64(convC+convT) / float64(nC+nT)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(nC) + 1/float64(nT)))
	if se == 0 {
		result.PValue = 1
		return result, nil
	}

	result.ZScore = lift / se
	result.PValue = twoSidedP(result.ZScore)
	return result, nil
}

// Interval is a confidence interval for the lift p_treatment - p_control,
// expressed as a raw proportion difference.
type Interval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// LiftInterval computes the Wald confidence interval for the lift using the
// unpooled standard error sqrt(pC(1-pC)/nC + pT(1-pT)/nT).
//
// Returns *InsufficientDataError when either arm has no users.
func LiftInterval(convC, nC, convT, nT int, confidence float64) (*Interval, error) {
	if nC == 0 {
		return nil, &InsufficientDataError{Variant: "control"}
	}
	if nT == 0 {
		return nil, &InsufficientDataError{Variant: "treatment"}
	}

	pC := float64(convC) / float64(nC)
	pT := float64(convT) / float64(nT)
	lift := pT - pC

	se := math.Sqrt(pC*(1-pC)/float64(nC) + pT*(1-pT)/float64(nT))
	z := NormalQuantile(1 - (1-confidence)/2)

	return &Interval{
		Lower:      lift - z*se,
		Upper:      lift + z*se,
		Confidence: confidence,
	}, nil
}
