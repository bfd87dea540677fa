package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// KVStore persists opaque values under string keys. Implementations can be
// in-memory, a YAML file, or SQLite. Last write wins.
type KVStore interface {
	// Get returns ErrNotFound when the key has never been set.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Scheduler arms wake-up callbacks that must still fire, late, if the
// process was suspended past their due time.
type Scheduler interface {
	// Schedule arms fn to run once after delay. An entry already armed
	// under id is replaced.
	Schedule(id string, delay time.Duration, fn func()) error
	// Cancel disarms id. Cancelling an unknown id is a no-op.
	Cancel(id string)
}

// Notifier delivers alerts to the user. Implementations can print to a
// terminal, play a sound, or both.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ActivationHandler is told when the user interacts with a delivered
// notification.
type ActivationHandler interface {
	ActivateNotification(ctx context.Context, id string)
}
