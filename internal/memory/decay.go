package memory

import "math"

// WeekMillis is the decay period. Only whole elapsed weeks count; the
// fractional remainder is preserved across passes by advancing LastDecayAt
// in week increments rather than resetting it to now.
const WeekMillis int64 = 7 * 24 * 60 * 60 * 1000

// BoostAmount is the recall increase applied to every search hit.
const BoostAmount = 0.15

// Classification thresholds.
const (
	clearRecallMin       = 0.70
	clearSignificanceMin = 6
	fuzzyRecallMin       = 0.40
)

// decayRates holds the per-week recall loss indexed by significance 1-10.
// Significance 10 never fades; significance 1 halves every week.
var decayRates = [11]float64{
	1: 0.50,
	2: 0.30,
	3: 0.20,
	4: 0.15,
	5: 0.10,
	6: 0.08,
	7: 0.05,
	8: 0.02,
	9: 0.01,
	10: 0,
}

// DecayRate returns the weekly recall loss for a significance level.
// Out-of-range values clamp to the nearest table row so a corrupt row
// still decays sanely.
func DecayRate(significance int) float64 {
	if significance < 1 {
		significance = 1
	}
	if significance > 10 {
		significance = 10
	}
	return decayRates[significance]
}

// ElapsedWeeks returns the whole weeks between lastDecayAt and now.
func ElapsedWeeks(lastDecayAt, now int64) int64 {
	if now <= lastDecayAt {
		return 0
	}
	return (now - lastDecayAt) / WeekMillis
}

// Decay returns the recall after the given number of whole weeks at the
// significance's rate: recall * (1-rate)^weeks, clamped to [0, 1].
func Decay(recall float64, significance int, weeks int64) float64 {
	if weeks <= 0 {
		return ClampRecall(recall)
	}
	rate := DecayRate(significance)
	if rate == 0 {
		return ClampRecall(recall)
	}
	return ClampRecall(recall * math.Pow(1-rate, float64(weeks)))
}

// Boost returns the recall after a search hit: min(1, recall + 0.15).
func Boost(recall float64) float64 {
	return ClampRecall(recall + BoostAmount)
}

// ClampRecall bounds a recall value to [0, 1].
func ClampRecall(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Classify derives the state from current recall and significance.
func Classify(recall float64, significance int) State {
	if recall >= clearRecallMin && significance >= clearSignificanceMin {
		return Clear
	}
	if recall >= fuzzyRecallMin {
		return Fuzzy
	}
	return Blank
}

// Age applies all pending whole-week decay to r in place and returns the
// number of weeks applied; zero means r is unchanged. LastDecayAt advances
// by exactly the applied weeks so the fractional remainder carries forward,
// which makes repeated passes within the same week no-ops. Exempt categories
// keep recall pinned at 1.0 but still advance LastDecayAt; eligibility is
// re-evaluated on every call, not at creation time.
//
// Both the lazy read path and the persisted decay pass go through Age, so
// displayed and stored values can never drift apart.
func (r *Record) Age(now int64) int64 {
	weeks := ElapsedWeeks(r.LastDecayAt, now)
	if weeks <= 0 {
		return 0
	}
	r.LastDecayAt += weeks * WeekMillis
	if r.Category.DecayEligible() {
		r.Recall = Decay(r.Recall, r.Significance, weeks)
	} else {
		r.Recall = 1.0
	}
	return weeks
}
