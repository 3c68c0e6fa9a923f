package subledger

import (
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Report summarizes the customer collection.
type Report struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Canceled int `json:"canceled"`

	ByTier map[tier.Tier]int `json:"by_tier"`

	// MonthlyRevenue is the sum of tier prices over active paid customers.
	MonthlyRevenue types.Money `json:"monthly_revenue"`
}

// Report counts customers in a single pass.
func (l *Ledger) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := Report{
		ByTier:         make(map[tier.Tier]int, len(tier.All())),
		MonthlyRevenue: types.USD(0),
	}
	for _, t := range tier.All() {
		r.ByTier[t] = 0
	}

	for _, c := range l.customers {
		r.Total++
		r.ByTier[c.Tier]++
		if c.Canceled {
			r.Canceled++
			continue
		}
		r.Active++
		if !c.Tier.IsFree() {
			r.MonthlyRevenue = r.MonthlyRevenue.Add(c.Tier.Price())
		}
	}
	return r
}
