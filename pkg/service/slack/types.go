package slack

import (
	"context"
)

// Service delivers notification messages to Slack users
type Service interface {
	// SendDirectMessage opens (or reuses) a DM conversation with the user and posts the message.
	// Returns the message timestamp.
	SendDirectMessage(ctx context.Context, slackUserID string, msg *Message) (string, error)

	// GetUserInfo retrieves user information for the given user ID
	GetUserInfo(ctx context.Context, userID string) (*User, error)
}

// Message is a notification rendered as a Block Kit DM
type Message struct {
	Title    string
	Body     string
	Priority string
	Link     string
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
