package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
	// ReleaseIdempotency frees a key so a failed request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

type Locker interface {
	// Lock blocks until the key is held or ctx is done; the returned func releases it
	Lock(ctx context.Context, key string) (func(), error)
}
