package notify

import (
	"context"
	"errors"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*Fanout)(nil)

// Fanout delivers each notification to every wrapped notifier. One failing
// notifier does not stop the others.
type Fanout struct {
	notifiers []domain.Notifier
	log       *logger.Logger
}

// NewFanout wraps notifiers. Nil entries are skipped.
func NewFanout(log *logger.Logger, notifiers ...domain.Notifier) *Fanout {
	f := &Fanout{log: log}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Notify calls every notifier in order and joins their errors.
func (f *Fanout) Notify(ctx context.Context, note domain.Notification) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, note); err != nil {
			f.log.Warn("notifier %T: %v", n, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped notifiers.
func (f *Fanout) Len() int { return len(f.notifiers) }
