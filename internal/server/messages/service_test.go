package messages

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/events"
	"github.com/detailerapp/backend/internal/server/models"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []events.DocumentCreated
	err       error
}

func (f *fakeBroker) Publish(ctx context.Context, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	e, err := events.DecodeDocumentCreated(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.published = append(f.published, e)
	f.mu.Unlock()
	return nil
}

func (f *fakeBroker) Read(ctx context.Context) ([]byte, []byte, error) {
	return nil, nil, errors.New("not implemented")
}

func (f *fakeBroker) Close() error { return nil }

func newService(t *testing.T) (*Service, *docstore.MemoryStore, *fakeBroker) {
	t.Helper()
	store := docstore.NewMemoryStore()
	broker := &fakeBroker{}
	svc := NewService(store, broker, logging.NewDiscard())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return svc, store, broker
}

func TestSend_StoresMessageAndRequestsNotifications(t *testing.T) {
	svc, store, broker := newService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "u-alice", "Alice", []string{"u-bob", "u-carol"}, "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	doc, err := store.Get(ctx, models.CollectionMessages, msg.ID)
	if err != nil {
		t.Fatalf("message not stored: %v", err)
	}
	if doc.Fields[models.FieldFromUID] != "u-alice" {
		t.Fatalf("unexpected message fields: %v", doc.Fields)
	}

	if got := store.Count(models.CollectionNewMessageNotifs); got != 2 {
		t.Fatalf("want 2 notification requests, got %d", got)
	}
	if len(broker.published) != 2 {
		t.Fatalf("want 2 events, got %d", len(broker.published))
	}
	for _, e := range broker.published {
		if e.Collection != models.CollectionNewMessageNotifs {
			t.Fatalf("event points at wrong collection %q", e.Collection)
		}
		if _, err := store.Get(ctx, e.Collection, e.DocID); err != nil {
			t.Fatalf("event references missing request %s: %v", e.DocID, err)
		}
	}
}

func TestSend_NoRecipients(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Send(context.Background(), "u-alice", "Alice", nil, "hello"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want common.ErrorValidation, got %v", err)
	}
}

func TestAddComment_NotifiesOwner(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "u-alice", "Alice", []string{"u-bob"}, "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if err := svc.AddComment(ctx, msg.ID, "u-bob", "Bob", "nice one"); err != nil {
		t.Fatalf("AddComment error: %v", err)
	}

	doc, err := store.Get(ctx, models.CollectionMessages, msg.ID)
	if err != nil {
		t.Fatalf("message missing: %v", err)
	}
	got := models.MessageFromFields(doc.ID, doc.Fields)
	if len(got.Comments) != 1 || got.Comments[0].Text != "nice one" {
		t.Fatalf("comment not stored: %+v", got.Comments)
	}

	if n := store.Count(models.CollectionNewCommentNotifs); n != 1 {
		t.Fatalf("want 1 comment notification request, got %d", n)
	}
	reqs, err := store.Query(ctx, models.CollectionNewCommentNotifs, models.FieldToUID, "u-alice")
	if err != nil || len(reqs) != 1 {
		t.Fatalf("request not addressed to the owner: %v, %v", reqs, err)
	}
	if reqs[0].Fields[models.FieldSenderNickname] != "Bob" {
		t.Fatalf("sender label not carried: %v", reqs[0].Fields)
	}
}

func TestAddComment_OwnMessageProducesNoNotification(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "u-alice", "Alice", []string{"u-bob"}, "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if err := svc.AddComment(ctx, msg.ID, "u-alice", "Alice", "addendum"); err != nil {
		t.Fatalf("AddComment error: %v", err)
	}
	if n := store.Count(models.CollectionNewCommentNotifs); n != 0 {
		t.Fatalf("self-comment must not notify, got %d requests", n)
	}
}

func TestRequestConnection(t *testing.T) {
	svc, store, broker := newService(t)
	ctx := context.Background()

	if err := svc.RequestConnection(ctx, "Alice", "u-bob"); err != nil {
		t.Fatalf("RequestConnection error: %v", err)
	}
	reqs, err := store.Query(ctx, models.CollectionNewConnectionNotifs, models.FieldToUID, "u-bob")
	if err != nil || len(reqs) != 1 {
		t.Fatalf("connection request missing: %v, %v", reqs, err)
	}
	if len(broker.published) != 1 || broker.published[0].Collection != models.CollectionNewConnectionNotifs {
		t.Fatalf("unexpected events: %v", broker.published)
	}
}

func TestSend_BrokerFailureDoesNotFailTheAction(t *testing.T) {
	svc, store, broker := newService(t)
	broker.err = errors.New("broker down")

	if _, err := svc.Send(context.Background(), "u-alice", "Alice", []string{"u-bob"}, "hello"); err != nil {
		t.Fatalf("Send must survive a broker outage, got %v", err)
	}
	if got := store.Count(models.CollectionNewMessageNotifs); got != 1 {
		t.Fatalf("request document must still be written, got %d", got)
	}
}

func TestNoteActivity(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "u-alice", "Alice", []string{"u-bob"}, "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if err := svc.NoteActivity(ctx, msg.ID, "opened"); err != nil {
		t.Fatalf("NoteActivity error: %v", err)
	}

	doc, err := store.Get(ctx, models.CollectionMessages, msg.ID)
	if err != nil {
		t.Fatalf("message missing: %v", err)
	}
	got := models.MessageFromFields(doc.ID, doc.Fields)
	if len(got.NotedActivities) != 1 || got.NotedActivities[0] != "opened" {
		t.Fatalf("activity not recorded: %v", got.NotedActivities)
	}
}
