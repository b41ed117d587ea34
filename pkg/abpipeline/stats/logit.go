package stats

import (
	"fmt"
	"math"
)

const (
	logitMaxIterations = 50
	logitTolerance     = 1e-10
	// Relative pivot threshold below which the information matrix is
	// treated as singular.
	logitPivotEpsilon = 1e-12
)

// Coefficient is one fitted regression term. OddsRatio is exp(Estimate);
// the per-term p-value uses the Wald z statistic Estimate/StdErr.
type Coefficient struct {
	Name      string  `json:"name"`
	Estimate  float64 `json:"estimate"`
	StdErr    float64 `json:"std_err"`
	ZScore    float64 `json:"z_score"`
	PValue    float64 `json:"p_value"`
	OddsRatio float64 `json:"odds_ratio"`
}

// LogitResult is a fitted logistic regression.
type LogitResult struct {
	Coefficients  []Coefficient `json:"coefficients"`
	LogLikelihood float64       `json:"log_likelihood"`
	Iterations    int           `json:"iterations"`
}

// LogisticRegression fits y ~ covariates by maximum likelihood using
// Newton-Raphson iteration. rows is the design matrix without an intercept
// column; an intercept is prepended internally. names labels the covariate
// columns in rows order.
//
// The fit refuses to return unstable coefficients: a covariate with
// near-zero variance, a near-singular information matrix, or a
// non-convergent likelihood (typically complete separation) all yield a
// *ModelFitError naming the covariate set.
func LogisticRegression(y []bool, rows [][]float64, names []string) (*LogitResult, error) {
	n := len(y)
	if n == 0 || len(rows) != n {
		return nil, &ModelFitError{Covariates: names, Reason: "empty or misaligned design matrix"}
	}
	for _, row := range rows {
		if len(row) != len(names) {
			return nil, &ModelFitError{Covariates: names, Reason: "ragged design matrix"}
		}
	}

	if bad := degenerateCovariates(rows, names); len(bad) > 0 {
		return nil, &ModelFitError{Covariates: bad, Reason: "near-zero variance covariate"}
	}

	p := len(names) + 1 // intercept + covariates
	design := make([][]float64, n)
	for i, row := range rows {
		design[i] = append([]float64{1}, row...)
	}
	labels := append([]string{"intercept"}, names...)

	beta := make([]float64, p)
	var iterations int
	for iter := 1; iter <= logitMaxIterations; iter++ {
		iterations = iter

		// Gradient X'(y - mu) and observed information X'WX.
		grad := make([]float64, p)
		info := make([][]float64, p)
		for j := range info {
			info[j] = make([]float64, p)
		}
		for i := 0; i < n; i++ {
			mu := sigmoid(dot(design[i], beta))
			resid := -mu
			if y[i] {
				resid = 1 - mu
			}
			w := mu * (1 - mu)
			for j := 0; j < p; j++ {
				grad[j] += design[i][j] * resid
				for k := j; k < p; k++ {
					info[j][k] += w * design[i][j] * design[i][k]
				}
			}
		}
		for j := 0; j < p; j++ {
			for k := 0; k < j; k++ {
				info[j][k] = info[k][j]
			}
		}

		step, err := solveSymmetric(info, grad)
		if err != nil {
			return nil, &ModelFitError{Covariates: names, Reason: err.Error()}
		}

		maxStep := 0.0
		for j := 0; j < p; j++ {
			beta[j] += step[j]
			if s := math.Abs(step[j]); s > maxStep {
				maxStep = s
			}
		}
		if maxStep < logitTolerance {
			break
		}
		if iter == logitMaxIterations {
			return nil, &ModelFitError{
				Covariates: names,
				Reason:     fmt.Sprintf("did not converge in %d iterations", logitMaxIterations),
			}
		}
	}

	// Standard errors from the inverse information matrix at the optimum.
	cov, err := invertInformation(design, beta)
	if err != nil {
		return nil, &ModelFitError{Covariates: names, Reason: err.Error()}
	}

	result := &LogitResult{Iterations: iterations}
	for j := 0; j < p; j++ {
		variance := cov[j][j]
		if variance <= 0 || math.IsNaN(variance) {
			return nil, &ModelFitError{Covariates: names, Reason: "non-positive coefficient variance"}
		}
		se := math.Sqrt(variance)
		z := beta[j] / se
		result.Coefficients = append(result.Coefficients, Coefficient{
			Name:      labels[j],
			Estimate:  beta[j],
			StdErr:    se,
			ZScore:    z,
			PValue:    twoSidedP(z),
			OddsRatio: math.Exp(beta[j]),
		})
	}

	for i := 0; i < n; i++ {
		mu := sigmoid(dot(design[i], beta))
		if y[i] {
			result.LogLikelihood += math.Log(mu)
		} else {
			result.LogLikelihood += math.Log(1 - mu)
		}
	}
	return result, nil
}

// degenerateCovariates returns the names of covariate columns whose sample
// variance is effectively zero (collinear with the intercept).
func degenerateCovariates(rows [][]float64, names []string) []string {
	var bad []string
	n := float64(len(rows))
	for j, name := range names {
		var sum, sumSq float64
		for _, row := range rows {
			sum += row[j]
			sumSq += row[j] * row[j]
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		scale := math.Max(1, mean*mean)
		if variance < 1e-12*scale {
			bad = append(bad, name)
		}
	}
	return bad
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// solveSymmetric solves Ax = b by Gaussian elimination with partial
// pivoting. A is destroyed. Returns an error when a pivot falls below the
// singularity threshold relative to the matrix magnitude.
func solveSymmetric(a [][]float64, b []float64) ([]float64, error) {
	p := len(b)
	maxAbs := 0.0
	for j := 0; j < p; j++ {
		for k := 0; k < p; k++ {
			if v := math.Abs(a[j][k]); v > maxAbs {
				maxAbs = v
			}
		}
	}
	if maxAbs == 0 {
		return nil, fmt.Errorf("singular information matrix")
	}

	x := append([]float64(nil), b...)
	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < logitPivotEpsilon*maxAbs {
			return nil, fmt.Errorf("near-singular information matrix")
		}
		a[col], a[pivot] = a[pivot], a[col]
		x[col], x[pivot] = x[pivot], x[col]

		for r := col + 1; r < p; r++ {
			f := a[r][col] / a[col][col]
			for k := col; k < p; k++ {
				a[r][k] -= f * a[col][k]
			}
			x[r] -= f * x[col]
		}
	}
	for col := p - 1; col >= 0; col-- {
		for k := col + 1; k < p; k++ {
			x[col] -= a[col][k] * x[k]
		}
		x[col] /= a[col][col]
	}
	return x, nil
}

// invertInformation computes the inverse observed information matrix at
// beta, the asymptotic covariance of the MLE.
func invertInformation(design [][]float64, beta []float64) ([][]float64, error) {
	p := len(beta)
	info := make([][]float64, p)
	for j := range info {
		info[j] = make([]float64, p)
	}
	for i := range design {
		mu := sigmoid(dot(design[i], beta))
		w := mu * (1 - mu)
		for j := 0; j < p; j++ {
			for k := j; k < p; k++ {
				info[j][k] += w * design[i][j] * design[i][k]
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			info[j][k] = info[k][j]
		}
	}

	inv := make([][]float64, p)
	for col := 0; col < p; col++ {
		e := make([]float64, p)
		e[col] = 1
		clone := make([][]float64, p)
		for j := range info {
			clone[j] = append([]float64(nil), info[j]...)
		}
		solved, err := solveSymmetric(clone, e)
		if err != nil {
			return nil, err
		}
		inv[col] = solved
	}
	// inv currently holds columns; the matrix is symmetric so rows equal
	// columns and no transpose is needed.
	return inv, nil
}
