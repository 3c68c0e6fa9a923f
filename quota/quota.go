// Package quota tracks per-tier monthly enrollment counts against their
// limits. Counters live in a single calendar-month window that is reset
// lazily: callers invoke ResetIfNeeded before each enrollment attempt.
package quota

import (
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Unlimited is the limit value that disables the quota for a tier.
const Unlimited = -1

// Result is the outcome of a quota check for one tier.
type Result struct {
	Tier      tier.Tier `json:"tier"`
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reason    string    `json:"reason,omitempty"`
}

// Tracker holds the counters of the current window. It is not safe for
// concurrent use; the ledger serializes access.
type Tracker struct {
	limits    map[tier.Tier]int
	usage     map[tier.Tier]int
	lastReset types.Date
}

// NewTracker returns a tracker whose window starts on today. Tiers missing
// from limits are unlimited.
func NewTracker(limits map[tier.Tier]int, today types.Date) *Tracker {
	t := &Tracker{
		limits:    make(map[tier.Tier]int, len(limits)),
		usage:     make(map[tier.Tier]int),
		lastReset: today,
	}
	for k, v := range limits {
		t.limits[k] = v
	}
	return t
}

// ResetIfNeeded zeroes every counter and moves the window start to today
// once at least one full calendar month has elapsed. It reports whether a
// reset happened.
func (t *Tracker) ResetIfNeeded(today types.Date) bool {
	if types.MonthsBetween(t.lastReset, today) < 1 {
		return false
	}
	clear(t.usage)
	t.lastReset = today
	return true
}

// Check reports whether one more enrollment of tr fits in the window.
func (t *Tracker) Check(tr tier.Tier) Result {
	used := t.usage[tr]
	limit := t.Limit(tr)

	r := Result{Tier: tr, Used: used, Limit: limit}
	if limit == Unlimited {
		r.Allowed = true
		r.Remaining = Unlimited
		return r
	}

	r.Remaining = max(0, limit-used)
	if used >= limit {
		r.Reason = "monthly limit reached for " + tr.String()
		return r
	}
	r.Allowed = true
	return r
}

// Record counts one enrollment of tr.
func (t *Tracker) Record(tr tier.Tier) { t.usage[tr]++ }

// Usage returns the enrollments of tr in the current window.
func (t *Tracker) Usage(tr tier.Tier) int { return t.usage[tr] }

// Limit returns the monthly limit of tr, or Unlimited. Any negative
// configured limit counts as Unlimited.
func (t *Tracker) Limit(tr tier.Tier) int {
	if l, ok := t.limits[tr]; ok && l >= 0 {
		return l
	}
	return Unlimited
}

// LastReset returns the first day of the current window.
func (t *Tracker) LastReset() types.Date { return t.lastReset }

// Snapshot returns a check result for every known tier.
func (t *Tracker) Snapshot() []Result {
	all := tier.All()
	out := make([]Result, 0, len(all))
	for _, tr := range all {
		out = append(out, t.Check(tr))
	}
	return out
}

// State is the persisted form of a window: its start and the per-tier
// counts recorded since.
type State struct {
	LastReset types.Date
	Usage     map[tier.Tier]int
}

// State returns the current window with a count for every known tier.
func (t *Tracker) State() State {
	s := State{LastReset: t.lastReset, Usage: make(map[tier.Tier]int, len(tier.All()))}
	for _, tr := range tier.All() {
		s.Usage[tr] = t.usage[tr]
	}
	return s
}

// Restore replaces the window with s. A zero LastReset keeps the current
// window start; counts of unknown tiers are dropped.
func (t *Tracker) Restore(s State) {
	if !s.LastReset.IsZero() {
		t.lastReset = s.LastReset
	}
	clear(t.usage)
	for tr, n := range s.Usage {
		if tr.Valid() && n > 0 {
			t.usage[tr] = n
		}
	}
}
