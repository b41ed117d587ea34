package abpipeline

import "time"

// OutcomeRecord aggregates one exposed user's behavior inside the outcome
// window. NetRevenue is never negative; EventsInWindow counts events of any
// canonical type and serves as an engagement covariate, not a goal metric.
type OutcomeRecord struct {
	Experiment     string  `json:"experiment_name"`
	UserID         int64   `json:"user_id"`
	Purchased      bool    `json:"purchased"`
	NetRevenue     float64 `json:"net_revenue"`
	EventsInWindow int     `json:"events_in_window"`
}

// Windower aggregates post-exposure events into OutcomeRecords over a
// half-open window [exposure_ts, exposure_ts+window). An event exactly at
// the window end is excluded; an event exactly at the exposure instant is
// included. This boundary convention matches the reference marts and must
// not drift.
type Windower struct {
	window    time.Duration
	goalEvent EventType
}

// NewWindower creates a windower for the given window length and goal event.
func NewWindower(window time.Duration, goalEvent EventType) *Windower {
	return &Windower{window: window, goalEvent: goalEvent}
}

// Outcome computes the OutcomeRecord for one exposure. userEvents must be
// the user's normalized events; events for other users are ignored. A user
// with no events in the window yields a zero-valued record, not an error.
func (w *Windower) Outcome(exp ExposureRecord, userEvents []Event) OutcomeRecord {
	out := OutcomeRecord{
		Experiment: exp.Experiment,
		UserID:     exp.UserID,
	}
	windowEnd := exp.ExposureTS.Add(w.window)

	for _, ev := range userEvents {
		if ev.UserID != exp.UserID {
			continue
		}
		if ev.Timestamp.Before(exp.ExposureTS) || !ev.Timestamp.Before(windowEnd) {
			continue
		}
		out.EventsInWindow++
		if ev.Type == w.goalEvent {
			out.Purchased = true
			out.NetRevenue += ev.NetRevenue
		}
	}
	return out
}
