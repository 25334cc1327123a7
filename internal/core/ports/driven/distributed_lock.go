package driven

import (
	"context"
	"time"
)

// DistributedLock guards sync runs across instances. Lock names are
// sync:{collection}, so at most one run per collection writes at a time.
type DistributedLock interface {
	// Acquire takes name without blocking. acquired is false when another
	// holder has it. Backends with expiry drop the lock after ttl.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives name up. A lock that is not held or already expired is not an error.
	Release(ctx context.Context, name string) error

	// Extend renews a lock this instance still holds and errors otherwise.
	// Backends without expiry only check ownership.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
