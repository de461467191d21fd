package saga

import (
	"context"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
)

// EventPublisher is the slice of the bus the handlers need: they publish
// follow-up events (forward progress or compensation) and nothing else.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// markProcessed records an event as handled and logs instead of failing
// when the tracker write itself fails: the business effect is already
// applied, so surfacing the error would only trigger a pointless retry.
func markProcessed(ctx context.Context, tracker ProcessedEventStore, logger observability.Logger, handler string, meta domain.Metadata) {
	if err := tracker.MarkProcessed(ctx, handler, meta.EventID); err != nil {
		correlation := meta.CorrelationID
		logger.Error(handler, "failed to mark event as processed", &correlation, map[string]string{
			"event_id": meta.EventID.String(),
			"error":    err.Error(),
		})
	}
}

// alreadyProcessed is the idempotency gate shared by the saga handlers.
func alreadyProcessed(ctx context.Context, tracker ProcessedEventStore, logger observability.Logger, handler string, meta domain.Metadata) (bool, error) {
	processed, err := tracker.IsProcessed(ctx, handler, meta.EventID)
	if err != nil {
		return false, err
	}
	if processed {
		correlation := meta.CorrelationID
		logger.Debug(handler, "event already processed, skipping", &correlation, map[string]string{
			"event_id": meta.EventID.String(),
		})
	}
	return processed, nil
}
