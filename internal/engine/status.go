package engine

import (
	"github.com/lazypower/keepsake/internal/memory"
)

// Status is a point-in-time snapshot of the store. State counts use
// effective recall, so a status read right before a decay pass already
// reflects what that pass will persist.
type Status struct {
	DBPath        string         `json:"db_path"`
	DBBytes       int64          `json:"db_bytes"`
	SchemaVersion int            `json:"schema_version"`
	Total         int            `json:"total"`
	ByCategory    map[string]int `json:"by_category"`
	ByState       map[string]int `json:"by_state"`
	AvgRecall     float64        `json:"avg_recall"`
	PendingDecay  int            `json:"pending_decay"`
	Prunable      int            `json:"prunable"`
	Sessions      int            `json:"sessions"`
	SessionBytes  int64          `json:"session_bytes"`
}

// Status reports store health without writing anything: totals per
// category and state, average recall across decayable records, and how
// much a decay or prune pass would touch right now.
func (e *Engine) Status() (*Status, error) {
	recs, err := e.DB.ListMemories()
	if err != nil {
		return nil, err
	}
	now := e.nowFn()

	st := &Status{
		DBPath:     e.DB.Path,
		ByCategory: make(map[string]int),
		ByState:    make(map[string]int),
	}

	var recallSum float64
	var decayable int
	for i := range recs {
		rec := recs[i]
		weeks := rec.Age(now)

		st.Total++
		st.ByCategory[string(rec.Category)]++
		st.ByState[string(rec.State())]++
		if weeks > 0 {
			st.PendingDecay++
		}
		if rec.Category.DecayEligible() {
			decayable++
			recallSum += rec.Recall
			if rec.State() == memory.Blank {
				st.Prunable++
			}
		}
	}
	if decayable > 0 {
		st.AvgRecall = recallSum / float64(decayable)
	}

	if v, err := e.DB.SchemaVersion(); err == nil {
		st.SchemaVersion = v
	}
	if n, err := e.DB.CountSessions(); err == nil {
		st.Sessions = n
	}
	if b, err := e.DB.SessionBytes(); err == nil {
		st.SessionBytes = b
	}
	st.DBBytes = e.DB.FileSize()

	return st, nil
}
