package notify

import (
	"context"
	"log/slog"

	"go.uber.org/multierr"
)

// Dispatcher sends a message to every configured channel.
type Dispatcher struct {
	channels []Channel
}

// NewDispatcher creates a dispatcher for the given channels. Nil channels are skipped.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Len returns the number of channels.
func (d *Dispatcher) Len() int {
	return len(d.channels)
}

// Notify sends msg to each channel in turn. Failures are logged and returned
// combined; one failing channel does not stop the others.
func (d *Dispatcher) Notify(ctx context.Context, msg *Message) error {
	var errs error
	for _, ch := range d.channels {
		if err := ch.Send(ctx, msg); err != nil {
			slog.Error("notification send failed",
				"channel_type", ch.Type(),
				"title", msg.Title,
				"error", err,
			)
			errs = multierr.Append(errs, err)
			continue
		}
		slog.Debug("notification sent",
			"channel_type", ch.Type(),
			"title", msg.Title,
		)
	}
	return errs
}
