// Package notification fans order notifications out to independent channels.
// A failing channel never affects the others or the caller.
package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/notification/channel"
)

type Sender interface {
	Send(ctx context.Context, msg channel.Message) error
}

type Metrics interface {
	Notification(channel string, sent bool)
	ObserveExternal(target, operation string, start time.Time)
}

type ChannelOutcome struct {
	Channel string
	Sent    bool
	Err     error
}

// DispatchResult holds one outcome per requested channel, in request order.
type DispatchResult struct {
	Outcomes []ChannelOutcome
}

func (r DispatchResult) AllSent() bool {
	for _, o := range r.Outcomes {
		if !o.Sent {
			return false
		}
	}
	return true
}

// Err combines every channel failure, or returns nil.
func (r DispatchResult) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}

type Dispatcher struct {
	sender         Sender
	metrics        Metrics
	logger         *zap.Logger
	channelTimeout time.Duration
	maxConcurrency int
}

func NewDispatcher(sender Sender, metrics Metrics, logger *zap.Logger, channelTimeout time.Duration, maxConcurrency int) *Dispatcher {
	return &Dispatcher{
		sender:         sender,
		metrics:        metrics,
		logger:         logger,
		channelTimeout: channelTimeout,
		maxConcurrency: maxConcurrency,
	}
}

// Dispatch sends detail on every channel and waits for all of them. It never
// returns an error; failures are reported per channel in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, detail *domain.OrderDetail, channels []string) DispatchResult {
	result := DispatchResult{Outcomes: make([]ChannelOutcome, len(channels))}
	if len(channels) == 0 {
		return result
	}

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	for i, name := range channels {
		g.Go(func() error {
			result.Outcomes[i] = d.send(ctx, detail, name)
			return nil
		})
	}
	_ = g.Wait()

	if err := result.Err(); err != nil {
		d.logger.Warn("some notifications failed",
			zap.String("orderId", detail.Order.ID),
			zap.Int("channels", len(channels)),
			zap.Error(err))
	}
	return result
}

func (d *Dispatcher) send(ctx context.Context, detail *domain.OrderDetail, name string) (outcome ChannelOutcome) {
	outcome.Channel = name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome.Sent = false
			outcome.Err = apperrors.NewNotificationError(name, fmt.Errorf("panic: %v", r))
		}
		d.metrics.ObserveExternal("notification", name, start)
		d.metrics.Notification(name, outcome.Sent)
		if outcome.Err != nil {
			d.logger.Warn("notification channel failed",
				zap.String("orderId", detail.Order.ID),
				zap.String("channel", name),
				zap.Error(outcome.Err))
		}
	}()

	if d.channelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.channelTimeout)
		defer cancel()
	}

	err := d.sender.Send(ctx, channel.Message{
		OrderID:     detail.Order.ID,
		Channel:     name,
		Recipient:   detail.Order.CustomerEmail,
		OrderNumber: detail.Order.OrderNumber,
		Total:       detail.Order.TotalAmount.StringFixed(2),
		Currency:    detail.Order.Currency,
	})
	if err != nil {
		outcome.Err = apperrors.NewNotificationError(name, err)
		return outcome
	}

	outcome.Sent = true
	return outcome
}
