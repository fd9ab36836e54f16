package delivery

import (
	"context"
	"log/slog"
	"time"
)

// Courier wraps an Adapter with the bounded retry policy the fan-out loops
// rely on: rate limits wait out their retry-after, transient failures retry
// with exponential backoff up to a fixed attempt count, and blocked or
// permanent outcomes return immediately so the caller can react.
type Courier struct {
	adapter       Adapter
	maxAttempts   int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	pacingDelay   time.Duration
	logger        *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCourier creates a Courier with the given retry policy
func NewCourier(adapter Adapter, maxAttempts int, retryDelay, maxRetryDelay, pacingDelay time.Duration, logger *slog.Logger) *Courier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Courier{
		adapter:       adapter,
		maxAttempts:   maxAttempts,
		retryDelay:    retryDelay,
		maxRetryDelay: maxRetryDelay,
		pacingDelay:   pacingDelay,
		logger:        logger,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deliver sends one message, absorbing rate limits and transient failures
// per the retry policy. The returned Result is the final classified outcome.
func (c *Courier) Deliver(ctx context.Context, chatRef string, content Content) Result {
	delay := c.retryDelay
	var last Result
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		last = c.adapter.Send(ctx, chatRef, content)
		switch last.Status {
		case StatusDelivered, StatusBlocked, StatusPermanentFailure:
			return last
		case StatusRateLimited:
			c.logger.Warn("delivery rate limited",
				"chatRef", MaskChatRef(chatRef), "retryAfter", last.RetryAfter)
			if attempt == c.maxAttempts {
				return last
			}
			if err := c.sleep(ctx, last.RetryAfter); err != nil {
				return last
			}
		case StatusTransientFailure:
			c.logger.Warn("transient delivery failure",
				"chatRef", MaskChatRef(chatRef), "attempt", attempt, "error", last.Err)
			if attempt == c.maxAttempts {
				return last
			}
			if err := c.sleep(ctx, delay); err != nil {
				return last
			}
			delay *= 2
			if delay > c.maxRetryDelay {
				delay = c.maxRetryDelay
			}
		}
	}
	return last
}

// MaskChatRef hides most of a channel identifier in logs
func MaskChatRef(chatRef string) string {
	if len(chatRef) <= 4 {
		return "****"
	}
	return chatRef[:2] + "****" + chatRef[len(chatRef)-2:]
}

// Edit forwards a message edit without retry
func (c *Courier) Edit(ctx context.Context, chatRef, messageRef string, content Content) (bool, error) {
	return c.adapter.Edit(ctx, chatRef, messageRef, content)
}

// Pace inserts the inter-send delay used for fan-out rate control
func (c *Courier) Pace(ctx context.Context) {
	if c.pacingDelay > 0 {
		_ = c.sleep(ctx, c.pacingDelay)
	}
}
