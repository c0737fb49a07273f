package otp

import (
	"context"
	"errors"
	"log/slog"

	"bharatkyc/pkg/platform/circuit"
)

// ErrCircuitOpen is returned without calling the gateway while the breaker is open.
var ErrCircuitOpen = errors.New("otp: delivery circuit open")

// GuardedSender fails fast once the wrapped sender keeps failing.
type GuardedSender struct {
	next    Sender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedSender(next Sender, breaker *circuit.Breaker, logger *slog.Logger) *GuardedSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedSender{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedSender) Send(ctx context.Context, phone, code string) (Delivery, error) {
	if !g.breaker.Allow() {
		return Delivery{}, ErrCircuitOpen
	}
	d, err := g.next.Send(ctx, phone, code)
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "otp delivery circuit opened", "breaker", g.breaker.Name())
		}
		return Delivery{}, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "otp delivery circuit closed", "breaker", g.breaker.Name())
	}
	return d, nil
}
