package mongo

import (
	"fmt"

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

	ID            int     `grove:"id,pk"          bson:"_id"`
	Position      int     `grove:"position"       bson:"position"`
	Name          string  `grove:"name"           bson:"name"`
	Email         string  `grove:"email"          bson:"email"`
	Tier          string  `grove:"tier"           bson:"tier"`
	RenewalDate   string  `grove:"renewal_date"   bson:"renewal_date"`
	Canceled      bool    `grove:"canceled"       bson:"canceled"`
	PaymentMethod *string `grove:"payment_method" bson:"payment_method"`
}

func toCustomerModel(position int, c *customer.Customer) customerModel {
	m := customerModel{
		ID:          int(c.ID),
		Position:    position,
		Name:        c.Name,
		Email:       c.Email,
		Tier:        c.Tier.String(),
		RenewalDate: c.RenewalDate.String(),
		Canceled:    c.Canceled,
	}
	if pm, ok := c.Payment.Get(); ok {
		s := pm.String()
		m.PaymentMethod = &s
	}
	return m
}

func toCustomerModels(customers []*customer.Customer) []customerModel {
	models := make([]customerModel, 0, len(customers))
	for i, c := range customers {
		models = append(models, toCustomerModel(i, c))
	}
	return models
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	t, err := tier.Parse(m.Tier)
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", m.ID, err)
	}
	renewal, err := types.ParseDate(m.RenewalDate)
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
		RenewalDate: renewal,
		Canceled:    m.Canceled,
		Payment:     pm,
	}, nil
}

func fromCustomerModels(models []customerModel) ([]*customer.Customer, error) {
	out := make([]*customer.Customer, 0, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ==================== Projection models ====================

type projectionModel struct {
	grove.BaseModel `grove:"table:subledger_projection"`

	Position         int    `grove:"position"          bson:"position"`
	Username         string `grove:"username"          bson:"username"`
	SubscriptionType string `grove:"subscription_type" bson:"subscription_type"`
}

func toProjectionModel(position int, p customer.Projection) projectionModel {
	return projectionModel{
		Position:         position,
		Username:         p.Name,
		SubscriptionType: p.Tier.String(),
	}
}

// ==================== Quota models ====================

// quotaModel is one tier's count, keyed by the tier tag.
type quotaModel struct {
	grove.BaseModel `grove:"table:subledger_quota"`

	Tier      string `grove:"id,pk"      bson:"_id"`
	Used      int    `grove:"used"       bson:"used"`
	LastReset string `grove:"last_reset" bson:"last_reset"`
}

func toQuotaModels(q quota.State) []quotaModel {
	models := make([]quotaModel, 0, len(tier.All()))
	for _, t := range tier.All() {
		models = append(models, quotaModel{
			Tier:      t.String(),
			Used:      q.Usage[t],
			LastReset: q.LastReset.String(),
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
		reset, err := types.ParseDate(m.LastReset)
		if err != nil {
			return quota.State{}, fmt.Errorf("quota %s: %w", m.Tier, err)
		}
		st.Usage[t] = m.Used
		st.LastReset = reset
	}
	return st, nil
}
