package engine

import (
	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
)

// The decay model:
//   - Per-significance weekly rates, 0% at significance 10 up to 50% at 1.
//   - Multiplicative per whole elapsed week; fractional weeks carry over
//     because last_decay_at advances in week steps, never resets to now.
//   - knowledge and current_state recall is pinned at 1.0; their
//     last_decay_at still advances so no backlog accumulates.
//   - Computed in Go (not SQL) because modernc.org/sqlite lacks pow(),
//     and because read paths reuse the same memory.Record.Age function
//     for lazy display values.
// There is no timer: decay runs when invoked (CLI, prune, hooks).

// RunDecay applies pending whole-week decay to every record and persists
// the result. Returns the number of records written. Defensive per
// record: a row that fails to save is logged and skipped, the pass
// continues.
func (e *Engine) RunDecay() (int, error) {
	recs, err := e.DB.ListMemories()
	if err != nil {
		return 0, err
	}

	now := e.nowFn()
	updated := 0
	for i := range recs {
		rec := &recs[i]
		if weeks := rec.Age(now); weeks == 0 {
			continue
		}
		if err := e.DB.SaveRecall(rec); err != nil {
			e.Logger.Warn("decay: save failed", zap.Int64("id", rec.ID), zap.Error(err))
			continue
		}
		updated++
	}

	if updated > 0 {
		e.Logger.Info("decay pass complete", zap.Int("updated", updated))
	}
	return updated, nil
}

// Prune runs a decay pass, then deletes every decay-eligible record whose
// classification is blank. Exempt categories are never pruned regardless
// of recall. Returns the number of records removed. Record-by-record so a
// failure mid-way leaves the survivors intact.
func (e *Engine) Prune() (int, error) {
	if _, err := e.RunDecay(); err != nil {
		return 0, err
	}

	recs, err := e.DB.ListMemories()
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range recs {
		rec := &recs[i]
		if !rec.Category.DecayEligible() || rec.State() != memory.Blank {
			continue
		}
		if err := e.DB.DeleteMemory(rec.ID); err != nil {
			e.Logger.Warn("prune: delete failed", zap.Int64("id", rec.ID), zap.Error(err))
			continue
		}
		e.Logger.Info("pruned blank memory",
			zap.Int64("id", rec.ID), zap.String("title", rec.Title))
		removed++
	}
	return removed, nil
}
