package stats

import (
	"fmt"
	"strings"
)

// InsufficientDataError indicates a variant has zero exposed users, so no
// comparison can be computed. This is a reportable "cannot compute" outcome
// for the caller, not a crash.
type InsufficientDataError struct {
	// Variant is the empty arm ("control" or "treatment").
	Variant string
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: variant %s has no exposed users", e.Variant)
}

// ModelFitError indicates the regression design matrix is numerically
// unstable (near-singular, zero-variance covariate, or non-convergent MLE).
// The regression step is skipped; descriptive statistics and the z-test
// remain valid.
type ModelFitError struct {
	// Covariates names the offending covariate set.
	Covariates []string
	// Reason describes the instability.
	Reason string
}

// Error implements the error interface.
func (e *ModelFitError) Error() string {
	if len(e.Covariates) == 0 {
		return fmt.Sprintf("model fit: %s", e.Reason)
	}
	return fmt.Sprintf("model fit: %s (covariates: %s)", e.Reason, strings.Join(e.Covariates, ", "))
}
