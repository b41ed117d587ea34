package abpipeline

import (
	"sort"
	"time"
)

// ExposureRecord pins down when a user first saw the experiment: the
// earliest qualifying exposure event at or after their assignment. One per
// (experiment, user).
type ExposureRecord struct {
	Experiment string    `json:"experiment_name"`
	UserID     int64     `json:"user_id"`
	Variant    Variant   `json:"variant"`
	ExposureTS time.Time `json:"exposure_ts"`
}

// ExposureResult carries the resolved records plus the count of users who
// were assigned but never saw a qualifying event. Unexposed users are
// excluded from the marts: including them would bias conversion downward for
// whichever variant has lower product-page traffic.
type ExposureResult struct {
	Records   []ExposureRecord
	Assigned  int
	Unexposed int
}

// ResolveExposures determines each assigned user's exposure instant from the
// normalized event stream.
//
// Among a user's events of the configured exposure type, the earliest with
// event_ts >= assignment_ts qualifies; identical timestamps are broken by
// ascending event ID so re-runs are deterministic. Duplicate assignment rows
// for the same (experiment, user) keep the first occurrence. Records are
// ordered by (experiment, user) in the output.
//
// Returns *AssignmentVariantError if any assignment carries a variant
// outside {control, treatment}.
func ResolveExposures(assignments []Assignment, events []Event, exposureEvent EventType) (*ExposureResult, error) {
	// Per-user exposure candidates, sorted by (timestamp, event ID).
	candidates := make(map[int64][]Event)
	for _, ev := range events {
		if ev.Type == exposureEvent {
			candidates[ev.UserID] = append(candidates[ev.UserID], ev)
		}
	}
	for _, evs := range candidates {
		sort.Slice(evs, func(i, j int) bool {
			if !evs[i].Timestamp.Equal(evs[j].Timestamp) {
				return evs[i].Timestamp.Before(evs[j].Timestamp)
			}
			return evs[i].EventID < evs[j].EventID
		})
	}

	type key struct {
		experiment string
		userID     int64
	}
	seen := make(map[key]struct{})
	result := &ExposureResult{}

	for _, a := range assignments {
		if !a.Variant.Valid() {
			return nil, &AssignmentVariantError{
				Experiment: a.Experiment,
				UserID:     a.UserID,
				Variant:    string(a.Variant),
			}
		}
		k := key{a.Experiment, a.UserID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result.Assigned++

		exposed := false
		for _, ev := range candidates[a.UserID] {
			if !ev.Timestamp.Before(a.AssignedAt) {
				result.Records = append(result.Records, ExposureRecord{
					Experiment: a.Experiment,
					UserID:     a.UserID,
					Variant:    a.Variant,
					ExposureTS: ev.Timestamp,
				})
				exposed = true
				break
			}
		}
		if !exposed {
			result.Unexposed++
		}
	}

	sort.Slice(result.Records, func(i, j int) bool {
		if result.Records[i].Experiment != result.Records[j].Experiment {
			return result.Records[i].Experiment < result.Records[j].Experiment
		}
		return result.Records[i].UserID < result.Records[j].UserID
	})
	return result, nil
}
