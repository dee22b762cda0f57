package bot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer sends multi-part content with a fixed delay between parts so long
// texts do not flood the transport.
type Pacer struct {
	adapter  Adapter
	interval time.Duration
}

// NewPacer creates a Pacer that waits interval between consecutive sends.
func NewPacer(adapter Adapter, interval time.Duration) *Pacer {
	return &Pacer{adapter: adapter, interval: interval}
}

// SendAll sends msgs in order. The first part goes out immediately. It stops
// at the first send error or when ctx is cancelled.
func (p *Pacer) SendAll(ctx context.Context, msgs []OutboundMessage) error {
	limit := rate.Inf
	if p.interval > 0 {
		limit = rate.Every(p.interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	for i, msg := range msgs {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("bot: pacer: part %d: %w", i+1, err)
		}
		if err := p.adapter.Send(ctx, msg); err != nil {
			return fmt.Errorf("bot: pacer: part %d: %w", i+1, err)
		}
	}
	return nil
}
