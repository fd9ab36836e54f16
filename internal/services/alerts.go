package services

import (
	"context"
	"log/slog"

	"github.com/promoloop/campaigns-backend/internal/delivery"
)

// OperatorNotifier delivers operator alerts over the messaging channel to a
// configured set of operator chats
type OperatorNotifier struct {
	courier  *delivery.Courier
	chatRefs []string
	logger   *slog.Logger
}

// NewOperatorNotifier creates a new OperatorNotifier
func NewOperatorNotifier(courier *delivery.Courier, chatRefs []string, logger *slog.Logger) *OperatorNotifier {
	return &OperatorNotifier{
		courier:  courier,
		chatRefs: chatRefs,
		logger:   logger,
	}
}

var _ Alerter = (*OperatorNotifier)(nil)

// Alert sends a message to every operator chat. Delivery failures are logged
// and never propagate: an undeliverable alert must not break the operation
// that raised it.
func (n *OperatorNotifier) Alert(ctx context.Context, message string) {
	if len(n.chatRefs) == 0 {
		n.logger.Warn("operator alert raised with no operator chats configured", "message", message)
		return
	}
	for _, ref := range n.chatRefs {
		res := n.courier.Deliver(ctx, ref, delivery.Content{Text: "[ALERT] " + message})
		if res.Status != delivery.StatusDelivered {
			n.logger.Error("failed to deliver operator alert",
				"chatRef", ref, "status", res.Status, "error", res.Err)
		}
	}
}
