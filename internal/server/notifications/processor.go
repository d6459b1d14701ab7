// Package notifications turns stored notification requests into push
// messages. The processor runs once per request; there is no internal
// retry, and a request is deleted only after its dispatch succeeded.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/metrics"
	"github.com/detailerapp/backend/internal/server/models"
	"github.com/detailerapp/backend/internal/server/push"
)

// Skip reasons recorded in metrics when a request terminates before
// dispatch.
const (
	skipNoAccount = "no_account"
	skipNoToken   = "no_token"
)

type Processor struct {
	store  docstore.Store
	sender push.Sender
	logger logging.Logger
}

func NewProcessor(store docstore.Store, sender push.Sender, logger logging.Logger) *Processor {
	return &Processor{
		store:  store,
		sender: sender,
		logger: logger.With("component", "notifications"),
	}
}

// Process handles one notification request, already loaded from its
// collection.
//
// A missing recipient account or delivery token terminates processing
// without error and leaves the request document in place. A dispatch
// failure is returned to the caller, also leaving the request in place;
// the request is deleted only after the gateway accepted the message.
func (p *Processor) Process(ctx context.Context, req *models.NotificationRequest) error {
	log := p.logger.With("kind", string(req.Kind), "request_id", req.ID, "to_uid", req.RecipientID)

	doc, err := p.store.Get(ctx, models.CollectionUserData, req.RecipientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.NotificationsSkipped.WithLabelValues(skipNoAccount).Inc()
			log.Info(ctx, "no account for recipient, skipping")
			return nil
		}
		return fmt.Errorf("resolving recipient: %w", err)
	}

	account := models.AccountFromFields(doc.Fields)
	if account.DeliveryToken == "" {
		metrics.NotificationsSkipped.WithLabelValues(skipNoToken).Inc()
		log.Info(ctx, "no delivery token for recipient, skipping")
		return nil
	}

	payload, err := PayloadForKind(req.Kind, req.SenderLabel)
	if err != nil {
		return err
	}

	messageID, err := p.sender.Send(ctx, account.DeliveryToken, payload)
	if err != nil {
		metrics.NotificationsFailed.Inc()
		log.Error(ctx, "dispatch failed", "error", err)
		return fmt.Errorf("dispatching notification: %w", err)
	}
	log.Info(ctx, "notification dispatched", "message_id", messageID)

	if err := p.store.Delete(ctx, req.Kind.RequestCollection(), req.ID); err != nil {
		return fmt.Errorf("deleting fulfilled request: %w", err)
	}
	metrics.NotificationsSent.Inc()
	return nil
}

// ProcessDocument resolves a document reference to a request and processes
// it. References into non-request collections are rejected; a reference to
// an already-deleted request is a no-op, which makes redelivered events
// safe.
func (p *Processor) ProcessDocument(ctx context.Context, collection, docID string) error {
	kind, ok := models.KindForCollection(collection)
	if !ok {
		return fmt.Errorf("collection '%s' does not hold notification requests", collection)
	}

	doc, err := p.store.Get(ctx, collection, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			p.logger.Debug(ctx, "request already gone", "collection", collection, "doc_id", docID)
			return nil
		}
		return fmt.Errorf("loading request: %w", err)
	}

	return p.Process(ctx, models.RequestFromFields(doc.ID, kind, doc.Fields))
}
