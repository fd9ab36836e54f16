// Package delivery abstracts the external messaging channel. Every send
// returns a classified Result so callers can apply retry and unsubscribe
// policy without knowing the channel's transport.
package delivery

import (
	"context"
	"time"
)

// Status classifies the outcome of a send attempt
type Status string

const (
	StatusDelivered        Status = "DELIVERED"
	StatusBlocked          Status = "BLOCKED"
	StatusRateLimited      Status = "RATE_LIMITED"
	StatusTransientFailure Status = "TRANSIENT_FAILURE"
	StatusPermanentFailure Status = "PERMANENT_FAILURE"
)

// Button is one inline action offered with a message
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Content is the channel-agnostic message payload
type Content struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Result is the classified outcome of one send attempt. MessageRef is set
// only on delivery; RetryAfter only on rate limiting.
type Result struct {
	Status     Status
	MessageRef string
	RetryAfter time.Duration
	Err        error
}

// Adapter is the delivery-channel interface consumed by the campaign core
type Adapter interface {
	Send(ctx context.Context, chatRef string, content Content) Result
	Edit(ctx context.Context, chatRef, messageRef string, content Content) (bool, error)
}
