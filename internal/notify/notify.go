package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// ErrRateLimited is returned when the destination answered 429.
var ErrRateLimited = errors.New("notifier rate limited")

// ErrDropped is returned when the destination rejected the message.
var ErrDropped = errors.New("notifier message dropped")

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every notifier. All are attempted; errors are combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		if e := n.Send(ctx, title, text); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotification, err)
	}
	return nil
}

// Log writes notifications to the logger. Used when no transport is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, title, text string) error {
	if l.Logger != nil {
		l.Logger.Info("notification", zap.String("title", title), zap.String("text", text))
	}
	return nil
}

func statusError(name string, code int) error {
	if code == 429 {
		return fmt.Errorf("%s: %w", name, ErrRateLimited)
	}
	return fmt.Errorf("%s: %w: non-2xx response code %d", name, ErrDropped, code)
}
