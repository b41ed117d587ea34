package abpipeline

// Marts are the two analysis-ready per-user tables. Rows are ordered by
// (experiment, user) and the tables are index-aligned: row i of Outcomes
// belongs to row i of Exposure.
type Marts struct {
	Exposure []ExposureRecord `json:"user_exposure"`
	Outcomes []OutcomeRecord  `json:"user_outcomes"`
}

// BuildMarts composes the exposure records with windowed outcomes into the
// user_exposure and user_outcomes marts. The windower is invoked once per
// exposure row, so every exposure row gains exactly one outcome row; Verify
// runs on the assembled tables as a final consistency gate.
func BuildMarts(exposures []ExposureRecord, events []Event, w *Windower) (*Marts, error) {
	byUser := make(map[int64][]Event)
	for _, ev := range events {
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	marts := &Marts{
		Exposure: exposures,
		Outcomes: make([]OutcomeRecord, 0, len(exposures)),
	}
	for _, exp := range exposures {
		marts.Outcomes = append(marts.Outcomes, w.Outcome(exp, byUser[exp.UserID]))
	}

	if err := marts.Verify(); err != nil {
		return nil, err
	}
	return marts, nil
}

// Verify checks that every exposure row has a matching outcome row. A
// mismatch indicates an engine bug upstream, not a legitimate data state;
// callers must abort the run on error.
//
// Returns *MartIntegrityError naming the first orphaned exposure row.
func (m *Marts) Verify() error {
	if len(m.Exposure) != len(m.Outcomes) {
		return firstOrphan(m)
	}
	for i, exp := range m.Exposure {
		out := m.Outcomes[i]
		if out.Experiment != exp.Experiment || out.UserID != exp.UserID {
			return &MartIntegrityError{Experiment: exp.Experiment, UserID: exp.UserID}
		}
	}
	return nil
}

// firstOrphan finds an exposure row with no outcome counterpart when the
// tables have diverged in length.
func firstOrphan(m *Marts) error {
	type key struct {
		experiment string
		userID     int64
	}
	have := make(map[key]struct{}, len(m.Outcomes))
	for _, out := range m.Outcomes {
		have[key{out.Experiment, out.UserID}] = struct{}{}
	}
	for _, exp := range m.Exposure {
		if _, ok := have[key{exp.Experiment, exp.UserID}]; !ok {
			return &MartIntegrityError{Experiment: exp.Experiment, UserID: exp.UserID}
		}
	}
	// Lengths differ but every exposure is covered: outcomes carry extras.
	return &MartIntegrityError{}
}
