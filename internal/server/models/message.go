package models

import "time"

// Field names inside a message document.
const (
	FieldFromUID         = "fromUID"
	FieldToUIDs          = "toUIDs"
	FieldBody            = "body"
	FieldComments        = "comments"
	FieldNotedActivities = "notedActivities"
	FieldCreatedAt       = "createdAt"
)

// Comment is one entry in a message's nested, unordered comment collection.
type Comment struct {
	AuthorUID string    `json:"authorUID"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is owned by its sender and addressed to one or more recipients.
// Comments and noted activities live inside the document; they are removed
// with it when the owner's account is deleted.
type Message struct {
	ID              string
	FromUID         string
	ToUIDs          []string
	Body            string
	Comments        []Comment
	NotedActivities []string
	CreatedAt       time.Time
}

func (m *Message) Fields() map[string]any {
	comments := make([]any, 0, len(m.Comments))
	for _, c := range m.Comments {
		comments = append(comments, map[string]any{
			"authorUID": c.AuthorUID,
			"text":      c.Text,
			"timestamp": c.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	activities := make([]any, 0, len(m.NotedActivities))
	for _, a := range m.NotedActivities {
		activities = append(activities, a)
	}
	return map[string]any{
		FieldFromUID:         m.FromUID,
		FieldToUIDs:          toAnySlice(m.ToUIDs),
		FieldBody:            m.Body,
		FieldComments:        comments,
		FieldNotedActivities: activities,
		FieldCreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func MessageFromFields(id string, fields map[string]any) *Message {
	m := &Message{
		ID:      id,
		FromUID: stringField(fields, FieldFromUID),
		Body:    stringField(fields, FieldBody),
	}
	if ts, err := time.Parse(time.RFC3339, stringField(fields, FieldCreatedAt)); err == nil {
		m.CreatedAt = ts
	}
	if raw, ok := fields[FieldToUIDs].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				m.ToUIDs = append(m.ToUIDs, s)
			}
		}
	}
	if raw, ok := fields[FieldComments].([]any); ok {
		for _, v := range raw {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			c := Comment{
				AuthorUID: stringField(entry, "authorUID"),
				Text:      stringField(entry, "text"),
			}
			if ts, err := time.Parse(time.RFC3339, stringField(entry, "timestamp")); err == nil {
				c.Timestamp = ts
			}
			m.Comments = append(m.Comments, c)
		}
	}
	if raw, ok := fields[FieldNotedActivities].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				m.NotedActivities = append(m.NotedActivities, s)
			}
		}
	}
	return m
}

func toAnySlice(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
