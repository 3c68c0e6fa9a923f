package subledger

import "github.com/xraph/subledger/id"

// ID identifies sessions, audit events and import/export batches.
type ID = id.ID

// Prefix identifies the kind of entity encoded in an ID.
type Prefix = id.Prefix
