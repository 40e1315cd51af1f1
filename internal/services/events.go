package services

import (
	"context"
	"log/slog"

	"gastos/internal/amqp"
)

// EventPublisher announces committed ledger mutations. *amqp.Client
// implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// publishEvent never fails the caller: the mutation is already committed.
func publishEvent(ctx context.Context, pub EventPublisher, eventType, entity, id, userID string) {
	if pub == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping ledger event", "type", eventType, "id", id)
		return
	}
	if err := pub.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(eventType, entity, id, userID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"entity", entity,
			"id", id,
			"error", err)
	}
}
