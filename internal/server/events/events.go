// Package events carries document-created notifications between the API
// server and the notifier worker. Every write into a notification-request
// collection produces one event, and the worker hands each event to the
// request processor exactly once per consumer group.
package events

import (
	"encoding/json"
	"fmt"
)

// DocumentCreated identifies a freshly written document. The consumer
// re-reads the document by collection/id, so the event stays small and the
// store remains the source of truth.
type DocumentCreated struct {
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
}

func (e DocumentCreated) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return raw, nil
}

func DecodeDocumentCreated(raw []byte) (DocumentCreated, error) {
	var e DocumentCreated
	if err := json.Unmarshal(raw, &e); err != nil {
		return DocumentCreated{}, fmt.Errorf("decoding event: %w", err)
	}
	if e.Collection == "" || e.DocID == "" {
		return DocumentCreated{}, fmt.Errorf("decoding event: missing collection or docId")
	}
	return e, nil
}
