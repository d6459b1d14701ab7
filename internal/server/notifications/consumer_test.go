package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/events"
	"github.com/detailerapp/backend/internal/server/models"
)

type channelBroker struct {
	ch chan []byte
}

func (b *channelBroker) Publish(ctx context.Context, key, value []byte) error {
	b.ch <- value
	return nil
}

func (b *channelBroker) Read(ctx context.Context) ([]byte, []byte, error) {
	select {
	case v := <-b.ch:
		return nil, v, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (b *channelBroker) Close() error { return nil }

func TestConsumer_ProcessesEventsUntilCancelled(t *testing.T) {
	store := docstore.NewMemoryStore()
	sender := &fakeSender{}
	processor := NewProcessor(store, sender, logging.NewDiscard())
	broker := &channelBroker{ch: make(chan []byte, 4)}
	consumer := NewConsumer(broker, processor, logging.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedRecipient(t, store, "u-bob", "tok-bob")
	req := &models.NotificationRequest{ID: "r1", Kind: models.KindNewMessage, RecipientID: "u-bob", SenderLabel: "Alice"}
	seedRequest(t, store, req)

	raw, err := events.DocumentCreated{Collection: models.CollectionNewMessageNotifs, DocID: "r1"}.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	broker.ch <- []byte("malformed")
	broker.ch <- raw

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(sender.sentMessages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("event was not processed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run should return context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	sent := sender.sentMessages()
	if len(sent) != 1 || sent[0].token != "tok-bob" {
		t.Fatalf("unexpected dispatches: %+v", sent)
	}
}
