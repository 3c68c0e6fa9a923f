package customer

import "context"

// Store persists the ordered customer collection. Saves are full rewrites.
type Store interface {
	LoadCustomers(ctx context.Context) ([]*Customer, error)
	ReplaceCustomers(ctx context.Context, customers []*Customer) error
}

// ProjectionWriter persists the name/tier projection.
type ProjectionWriter interface {
	WriteProjection(ctx context.Context, rows []Projection) error
}
