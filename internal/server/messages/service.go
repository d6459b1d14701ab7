// Package messages implements the messaging features that feed the
// notification pipeline: sending messages, commenting on them, and
// connection requests. Each action writes a notification-request document
// for every recipient and announces it on the broker so the worker picks
// it up.
package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/events"
	"github.com/detailerapp/backend/internal/server/models"
)

type Service struct {
	store  docstore.Store
	broker events.Broker
	logger logging.Logger

	now func() time.Time
}

func NewService(store docstore.Store, broker events.Broker, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		broker: broker,
		logger: logger.With("component", "messages"),
		now:    time.Now,
	}
}

// Send stores a new message and requests a new-message notification for
// every recipient. The sender's display label rides along in the request
// so the worker never has to resolve the sender.
func (s *Service) Send(ctx context.Context, fromUID, senderLabel string, toUIDs []string, body string) (*models.Message, error) {
	if len(toUIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", common.ErrorValidation)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		FromUID:   fromUID,
		ToUIDs:    toUIDs,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.Set(ctx, models.CollectionMessages, msg.ID, msg.Fields()); err != nil {
		return nil, fmt.Errorf("storing message: %w", err)
	}

	for _, toUID := range toUIDs {
		s.requestNotification(ctx, models.KindNewMessage, toUID, senderLabel)
	}
	return msg, nil
}

// AddComment appends a comment to the message and requests a new-comment
// notification for the message owner. Commenting on one's own message
// produces no notification.
func (s *Service) AddComment(ctx context.Context, messageID, authorUID, authorLabel, text string) error {
	doc, err := s.store.Get(ctx, models.CollectionMessages, messageID)
	if err != nil {
		return err
	}
	msg := models.MessageFromFields(doc.ID, doc.Fields)

	msg.Comments = append(msg.Comments, models.Comment{
		AuthorUID: authorUID,
		Text:      text,
		Timestamp: s.now(),
	})
	if err := s.store.Update(ctx, models.CollectionMessages, messageID, map[string]any{
		models.FieldComments: msg.Fields()[models.FieldComments],
	}); err != nil {
		return fmt.Errorf("storing comment: %w", err)
	}

	if msg.FromUID != authorUID {
		s.requestNotification(ctx, models.KindNewComment, msg.FromUID, authorLabel)
	}
	return nil
}

// NoteActivity records an activity marker on the message. No notification
// is produced.
func (s *Service) NoteActivity(ctx context.Context, messageID, activity string) error {
	doc, err := s.store.Get(ctx, models.CollectionMessages, messageID)
	if err != nil {
		return err
	}
	msg := models.MessageFromFields(doc.ID, doc.Fields)
	msg.NotedActivities = append(msg.NotedActivities, activity)

	return s.store.Update(ctx, models.CollectionMessages, messageID, map[string]any{
		models.FieldNotedActivities: msg.Fields()[models.FieldNotedActivities],
	})
}

// RequestConnection asks toUID to connect with the sender. The request is
// carried entirely by the notification: there is no connection document.
func (s *Service) RequestConnection(ctx context.Context, fromLabel, toUID string) error {
	if toUID == "" {
		return fmt.Errorf("%w: recipient is required", common.ErrorValidation)
	}
	s.requestNotification(ctx, models.KindNewConnection, toUID, fromLabel)
	return nil
}

// requestNotification writes the request document and announces it on the
// broker. A broker failure is logged but does not fail the user action:
// the document is already durable and can be swept up later.
func (s *Service) requestNotification(ctx context.Context, kind models.NotificationKind, toUID, senderLabel string) {
	req := &models.NotificationRequest{
		ID:          uuid.NewString(),
		Kind:        kind,
		RecipientID: toUID,
		SenderLabel: senderLabel,
	}
	collection := kind.RequestCollection()

	if err := s.store.Set(ctx, collection, req.ID, req.Fields()); err != nil {
		s.logger.Error(ctx, "storing notification request failed",
			"kind", string(kind), "to_uid", toUID, "error", err)
		return
	}

	raw, err := events.DocumentCreated{Collection: collection, DocID: req.ID}.Encode()
	if err != nil {
		s.logger.Error(ctx, "encoding notification event failed", "error", err)
		return
	}
	if err := s.broker.Publish(ctx, []byte(toUID), raw); err != nil {
		s.logger.Error(ctx, "publishing notification event failed",
			"kind", string(kind), "to_uid", toUID, "error", err)
	}
}
