package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoChannels is returned by a Fanout with nothing to deliver to.
var ErrNoChannels = errors.New("no notification channels configured")

// Fanout delivers each notification to a primary channel, the one that
// reaches the user, and to any number of ops copies.
//
// With a primary set, only its result counts; failed copies are logged.
// Without one, delivery succeeds if at least one copy got through.
type Fanout struct {
	primary Notifier
	copies  []Notifier
	logger  *slog.Logger
}

// NewFanout combines notifiers. primary may be nil; nil copies are skipped.
func NewFanout(logger *slog.Logger, primary Notifier, copies ...Notifier) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fanout{primary: primary, logger: logger}
	for _, n := range copies {
		if n != nil {
			f.copies = append(f.copies, n)
		}
	}
	return f
}

func (f *Fanout) Name() string { return "fanout" }

// Len reports how many notifiers are attached.
func (f *Fanout) Len() int {
	if f.primary != nil {
		return len(f.copies) + 1
	}
	return len(f.copies)
}

// Send tries every channel. A failing copy never stops delivery to the
// others.
func (f *Fanout) Send(ctx context.Context, n Notification) error {
	if f.Len() == 0 {
		return ErrNoChannels
	}

	var primaryErr error
	if f.primary != nil {
		if err := f.primary.Send(ctx, n); err != nil {
			primaryErr = fmt.Errorf("%s: %w", f.primary.Name(), err)
		}
	}

	var (
		errs      []error
		delivered int
	)
	for _, c := range f.copies {
		if err := c.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			if f.primary != nil {
				f.logger.Warn("ops notification copy failed",
					"channel", c.Name(),
					"notification_id", n.ID,
					"user_id", n.UserID,
					"error", err,
				)
			}
			continue
		}
		delivered++
	}

	if f.primary != nil {
		return primaryErr
	}
	if delivered > 0 {
		for _, err := range errs {
			f.logger.Warn("ops notification copy failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		}
		return nil
	}
	return errors.Join(errs...)
}
