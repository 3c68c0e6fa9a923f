package postgres

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// ==================== Customer models ====================

type customerModel struct {
	grove.BaseModel `grove:"table:subledger_customers"`

	Position      int       `grove:"position,pk"`
	ID            int       `grove:"id"`
	Name          string    `grove:"name"`
	Email         string    `grove:"email"`
	Tier          string    `grove:"tier"`
	RenewalDate   time.Time `grove:"renewal_date,type:date"`
	Canceled      bool      `grove:"canceled"`
	PaymentMethod *string   `grove:"payment_method"`
}

func toCustomerModel(position int, c *customer.Customer) customerModel {
	m := customerModel{
		Position:    position,
		ID:          int(c.ID),
		Name:        c.Name,
		Email:       c.Email,
		Tier:        c.Tier.String(),
		RenewalDate: c.RenewalDate.Time(),
		Canceled:    c.Canceled,
	}
	if pm, ok := c.Payment.Get(); ok {
		s := pm.String()
		m.PaymentMethod = &s
	}
	return m
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	t, err := tier.Parse(m.Tier)
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", m.ID, err)
	}
	pm := payment.None()
	if m.PaymentMethod != nil && !t.IsFree() {
		method, err := payment.ParseMethod(*m.PaymentMethod)
		if err != nil {
			return nil, fmt.Errorf("customer %d: %w", m.ID, err)
		}
		pm = payment.Some(method)
	}
	return &customer.Customer{
		ID:          customer.ID(m.ID),
		Name:        m.Name,
		Email:       m.Email,
		Tier:        t,
		RenewalDate: types.DateOf(m.RenewalDate),
		Canceled:    m.Canceled,
		Payment:     pm,
	}, nil
}

// ==================== Projection models ====================

type projectionModel struct {
	grove.BaseModel `grove:"table:subledger_projection"`

	Position         int    `grove:"position,pk"`
	Username         string `grove:"username"`
	SubscriptionType string `grove:"subscription_type"`
}

// ==================== Quota models ====================

type quotaModel struct {
	grove.BaseModel `grove:"table:subledger_quota"`

	Tier      string    `grove:"tier,pk"`
	Used      int       `grove:"used"`
	LastReset time.Time `grove:"last_reset,type:date"`
}

func toQuotaModels(q quota.State) []quotaModel {
	models := make([]quotaModel, 0, len(tier.All()))
	for _, t := range tier.All() {
		models = append(models, quotaModel{
			Tier:      t.String(),
			Used:      q.Usage[t],
			LastReset: q.LastReset.Time(),
		})
	}
	return models
}

func fromQuotaModels(models []quotaModel) (quota.State, error) {
	st := quota.State{Usage: make(map[tier.Tier]int, len(models))}
	for _, m := range models {
		t, err := tier.Parse(m.Tier)
		if err != nil {
			return quota.State{}, err
		}
		st.Usage[t] = m.Used
		st.LastReset = types.DateOf(m.LastReset)
	}
	return st, nil
}
