package quota

import "context"

// Store persists the enrollment window between sessions.
type Store interface {
	LoadQuota(ctx context.Context) (State, error)
	SaveQuota(ctx context.Context, s State) error
}
