package poll

import "context"

// Platform is the slice of the chat platform the poll engine consumes.
// The engine never talks to the platform SDK directly; repo provides the
// Telegram implementation and tests use a scripted fake.
//
// ReactionCounts reports the current per-symbol reaction tally for a
// message, including the bot's own reservation reactions.
type Platform interface {
	SendMessage(ctx context.Context, channelID int64, text string) (messageID int, err error)
	AddReaction(ctx context.Context, channelID int64, messageID int, symbol string) error
	RemoveReaction(ctx context.Context, channelID int64, messageID int, voterID int64, symbol string) error
	ReactionCounts(ctx context.Context, channelID int64, messageID int) (map[string]int, error)
	ClearReactions(ctx context.Context, channelID int64, messageID int) error
	CanManageMessages(ctx context.Context, channelID int64) (bool, error)
}
