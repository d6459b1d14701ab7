package models

// NotificationKind distinguishes the three triggering events a request can
// describe.
type NotificationKind string

const (
	KindNewMessage    NotificationKind = "new-message"
	KindNewConnection NotificationKind = "new-connection"
	KindNewComment    NotificationKind = "new-comment"
)

// Field names inside a notification-request document.
const (
	FieldToUID          = "toUID"
	FieldSenderNickname = "senderNickname"
)

// NotificationRequest is a transient record instructing the dispatch
// pipeline to deliver exactly one notification to one recipient. Requests
// live one-per-document in a kind-specific collection and are deleted after
// a successful dispatch.
type NotificationRequest struct {
	ID          string
	Kind        NotificationKind
	RecipientID string
	SenderLabel string
}

// RequestCollection maps a kind to the collection its requests are stored in.
func (k NotificationKind) RequestCollection() string {
	switch k {
	case KindNewMessage:
		return CollectionNewMessageNotifs
	case KindNewConnection:
		return CollectionNewConnectionNotifs
	case KindNewComment:
		return CollectionNewCommentNotifs
	}
	return ""
}

// KindForCollection is the inverse of RequestCollection; ok is false for
// collections that do not hold notification requests.
func KindForCollection(collection string) (NotificationKind, bool) {
	switch collection {
	case CollectionNewMessageNotifs:
		return KindNewMessage, true
	case CollectionNewConnectionNotifs:
		return KindNewConnection, true
	case CollectionNewCommentNotifs:
		return KindNewComment, true
	}
	return "", false
}

func (r *NotificationRequest) Fields() map[string]any {
	return map[string]any{
		FieldToUID:          r.RecipientID,
		FieldSenderNickname: r.SenderLabel,
	}
}

func RequestFromFields(id string, kind NotificationKind, fields map[string]any) *NotificationRequest {
	return &NotificationRequest{
		ID:          id,
		Kind:        kind,
		RecipientID: stringField(fields, FieldToUID),
		SenderLabel: stringField(fields, FieldSenderNickname),
	}
}
