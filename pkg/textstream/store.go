package textstream

import (
	"context"
	"time"
)

// Snapshot is a point-in-time view of a stream record.
type Snapshot struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Status     Status `json:"status"`
	Generation int64  `json:"generation"`
}

// Owner identifies the business record a stream belongs to.
type Owner struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// IsZero reports whether no owner was recorded.
func (o Owner) IsZero() bool {
	return o.Type == "" && o.ID == ""
}

// Store is durable keyed storage for stream records. Append must be atomic per
// id: two concurrent appends on the same record never interleave or get lost.
type Store interface {
	Create(ctx context.Context) (string, error)
	Append(ctx context.Context, id, fragment string) (int64, error)
	Finalize(ctx context.Context, id string, outcome Status) error
	Read(ctx context.Context, id string) (Snapshot, error)
}

// OwnerIndex maps stream records back to their owning business record.
type OwnerIndex interface {
	CreateOwned(ctx context.Context, owner Owner) (string, error)
	FindOwner(ctx context.Context, id string) (Owner, error)
}

// Expirer moves idle, non-terminal records to StatusTimeout.
type Expirer interface {
	// ExpireIdle times out every live record whose last activity is before
	// the given instant and returns the affected ids.
	ExpireIdle(ctx context.Context, before time.Time) ([]string, error)
}

// Change describes a mutation of a stream record.
type Change struct {
	ID         string `json:"id"`
	Generation int64  `json:"generation"`
	Status     Status `json:"status"`
}

// Notifier wakes subscribers when a record changes. Notifications are hints:
// subscribers always re-read the store, so a lost or duplicated notification
// only delays delivery.
type Notifier interface {
	Notify(ctx context.Context, change Change)
	// Watch returns a channel that receives a value after changes to id. The
	// channel is closed once ctx is done.
	Watch(ctx context.Context, id string) (<-chan struct{}, error)
}

// Lease guards the at-most-one-active-producer rule across start requests.
type Lease interface {
	Acquire(ctx context.Context, id string, ttl time.Duration) (release func(), err error)
}

// Logger is the subset of the application logger used by this package.
type Logger interface {
	Debug(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
