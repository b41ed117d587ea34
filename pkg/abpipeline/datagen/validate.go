package datagen

import (
	"strconv"
	"time"
)

// ValidationReport counts referential and temporal violations in a raw
// dataset. Violations are reported, not repaired; a non-zero count on
// generated data indicates a generator bug.
type ValidationReport struct {
	BadUserRefs     int `json:"bad_user_refs"`
	BadSessionRefs  int `json:"bad_session_refs"`
	BadProductRefs  int `json:"bad_product_refs"`
	OutsideSession  int `json:"events_outside_session"`
	SessionOrdering int `json:"sessions_end_before_start"`
}

// Clean reports whether the dataset passed every check.
func (r ValidationReport) Clean() bool {
	return r.BadUserRefs == 0 && r.BadSessionRefs == 0 && r.BadProductRefs == 0 &&
		r.OutsideSession == 0 && r.SessionOrdering == 0
}

// Validate checks foreign-key integrity (events referencing unknown users,
// sessions, or products) and temporal bounds (events outside their session's
// start/end, sessions ending before they start).
func Validate(ds *Dataset) ValidationReport {
	var report ValidationReport

	users := make(map[int64]struct{}, len(ds.Users))
	for _, u := range ds.Users {
		users[u.UserID] = struct{}{}
	}
	products := make(map[string]struct{}, len(ds.Products))
	for _, p := range ds.Products {
		products[p.ProductID] = struct{}{}
	}
	sessions := make(map[int64]Session, len(ds.Sessions))
	for _, s := range ds.Sessions {
		sessions[s.SessionID] = s
		if s.EndTS.Before(s.StartTS) {
			report.SessionOrdering++
		}
	}

	for _, ev := range ds.Events {
		userID, err := strconv.ParseInt(ev["user_id"], 10, 64)
		if err != nil {
			report.BadUserRefs++
		} else if _, ok := users[userID]; !ok {
			report.BadUserRefs++
		}

		if pid, ok := ev["product_id"]; ok {
			if _, known := products[pid]; !known {
				report.BadProductRefs++
			}
		}

		sessionID, err := strconv.ParseInt(ev["session_id"], 10, 64)
		if err != nil {
			report.BadSessionRefs++
			continue
		}
		sess, ok := sessions[sessionID]
		if !ok {
			report.BadSessionRefs++
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04:05", ev["event_ts"])
		if err != nil {
			report.OutsideSession++
			continue
		}
		if ts.Before(sess.StartTS) || ts.After(sess.EndTS) {
			report.OutsideSession++
		}
	}
	return report
}
