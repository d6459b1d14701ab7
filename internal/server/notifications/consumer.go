package notifications

import (
	"context"
	"errors"

	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/events"
)

// Consumer drains document-created events from the broker and hands each
// one to the processor. Processing errors are logged and the loop moves
// on; the failed request stays in its collection.
type Consumer struct {
	broker    events.Broker
	processor *Processor
	logger    logging.Logger
}

func NewConsumer(broker events.Broker, processor *Processor, logger logging.Logger) *Consumer {
	return &Consumer{
		broker:    broker,
		processor: processor,
		logger:    logger.With("component", "consumer"),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		_, value, err := c.broker.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.logger.Error(ctx, "reading event failed", "error", err)
			continue
		}

		event, err := events.DecodeDocumentCreated(value)
		if err != nil {
			c.logger.Error(ctx, "dropping malformed event", "error", err)
			continue
		}

		if err := c.processor.ProcessDocument(ctx, event.Collection, event.DocID); err != nil {
			c.logger.Error(ctx, "processing request failed",
				"collection", event.Collection, "doc_id", event.DocID, "error", err)
		}
	}
}
