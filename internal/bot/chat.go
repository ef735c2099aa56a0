package bot

import (
	"context"
)

// Message is an inbound chat message
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
}

// Reaction is an emoji a user added to a message
type Reaction struct {
	MessageID string
	ChannelID string
	UserID    string
	Emoji     string
}

// Chat is the outbound side of the chat platform
type Chat interface {
	// Reply posts text in channelID as a reply to message replyTo and returns
	// the id of the new message.
	Reply(ctx context.Context, channelID, replyTo, text string) (string, error)
	Edit(ctx context.Context, channelID, messageID, text string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
	// DisplayName returns the name shown for a user
	DisplayName(ctx context.Context, userID string) (string, error)
}
