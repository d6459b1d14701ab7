// Package models holds the document shapes and collection names shared by
// the store, services, and the notification worker. The names mirror the
// collections the mobile app reads, so they are part of the wire contract
// and must not be renamed casually.
package models

// Document-store collections.
const (
	CollectionUserData     = "user-data"
	CollectionUsersByEmail = "usersByEmail"
	CollectionEmailToUID   = "emailToUID"
	CollectionMessages     = "messages"

	CollectionNewMessageNotifs    = "newMessageNotifs"
	CollectionNewConnectionNotifs = "newConnectionNotifs"
	CollectionNewCommentNotifs    = "newCommentNotifs"
)

// IndexCollections lists every collection holding identity-keyed index
// records. Account deletion sweeps all of them by reverse lookup on the
// "uid" field.
var IndexCollections = []string{CollectionEmailToUID, CollectionUsersByEmail}
