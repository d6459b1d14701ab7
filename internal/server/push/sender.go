// Package push implements the notification dispatch client: a single
// send-a-push-message operation against the delivery gateway. Invalid
// tokens and transient delivery errors surface identically; the caller
// owns any retry policy.
package push

import "context"

// Payload is the message handed to the gateway: a title/body pair plus the
// delivery-channel hints that are constant across notification kinds.
type Payload struct {
	Title    string
	Body     string
	Sound    string
	Priority string
	Badge    int
}

// Sender dispatches one payload to one device token and returns the
// gateway-assigned message id.
type Sender interface {
	Send(ctx context.Context, token string, payload Payload) (string, error)
}
