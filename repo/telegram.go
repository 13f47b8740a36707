package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messageKey identifies one message for reaction bookkeeping.
type messageKey struct {
	chatID    int64
	messageID int
}

// eviction identifies one engine-retracted vote whose physical reaction
// is still on the message.
type eviction struct {
	voterID int64
	symbol  string
}

// TelegramPlatform adapts the Telegram Bot API to the poll engine's
// platform contract.
//
// Telegram exposes no endpoint to read back a message's reaction tally and
// a bot cannot retract another user's reaction, so the adapter keeps its
// own per-message counts, fed from message_reaction updates (the bot must
// be started with that update type allowed). The bot's own reservation
// reaction is counted when attached, which is what the engine's
// count-minus-one tally rule expects. SetMessageReaction also replaces the
// bot's previous reaction choice, so only the last attached symbol stays
// visible on the bot's side; the bookkeeping still reserves one count per
// symbol.
type TelegramPlatform struct {
	b     *bot.Bot
	botID int64

	mu      sync.Mutex
	counts  map[messageKey]map[string]int
	evicted map[messageKey]map[eviction]int
}

func NewTelegramPlatform(b *bot.Bot, botID int64) *TelegramPlatform {
	return &TelegramPlatform{
		b:       b,
		botID:   botID,
		counts:  make(map[messageKey]map[string]int),
		evicted: make(map[messageKey]map[eviction]int),
	}
}

func (t *TelegramPlatform) SendMessage(ctx context.Context, channelID int64, text string) (int, error) {
	msg, err := t.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: channelID,
		Text:   text,
	})
	if err != nil {
		return 0, fmt.Errorf("sending message: %w", err)
	}
	return msg.ID, nil
}

func (t *TelegramPlatform) AddReaction(ctx context.Context, channelID int64, messageID int, symbol string) error {
	_, err := t.b.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    channelID,
		MessageID: messageID,
		Reaction:  []models.ReactionType{emojiReaction(symbol)},
	})
	if err != nil {
		return fmt.Errorf("setting reaction %s: %w", symbol, err)
	}
	t.adjust(messageKey{channelID, messageID}, symbol, 1)
	return nil
}

// RemoveReaction drops one of a voter's reactions from the bookkeeping.
// Telegram offers no API to retract another user's reaction, so the glyph
// stays visible; it simply stops counting. The eviction is remembered so
// that the voter's own later removal of the stale glyph does not
// decrement the symbol a second time.
func (t *TelegramPlatform) RemoveReaction(ctx context.Context, channelID int64, messageID int, voterID int64, symbol string) error {
	key := messageKey{channelID, messageID}
	t.mu.Lock()
	t.adjustLocked(key, symbol, -1)
	byMsg, ok := t.evicted[key]
	if !ok {
		byMsg = make(map[eviction]int)
		t.evicted[key] = byMsg
	}
	byMsg[eviction{voterID, symbol}]++
	t.mu.Unlock()
	return nil
}

func (t *TelegramPlatform) ReactionCounts(ctx context.Context, channelID int64, messageID int) (map[string]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int)
	for sym, n := range t.counts[messageKey{channelID, messageID}] {
		out[sym] = n
	}
	return out, nil
}

// ClearReactions removes the bot's own reaction from the message and
// drops the bookkeeping for it.
func (t *TelegramPlatform) ClearReactions(ctx context.Context, channelID int64, messageID int) error {
	_, err := t.b.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    channelID,
		MessageID: messageID,
	})

	t.mu.Lock()
	delete(t.counts, messageKey{channelID, messageID})
	delete(t.evicted, messageKey{channelID, messageID})
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clearing reactions: %w", err)
	}
	return nil
}

// CanManageMessages reports whether the bot holds delete-messages rights
// in the chat, the closest Telegram analog of a manage-messages
// permission.
func (t *TelegramPlatform) CanManageMessages(ctx context.Context, channelID int64) (bool, error) {
	member, err := t.b.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: channelID,
		UserID: t.botID,
	})
	if err != nil {
		return false, fmt.Errorf("checking bot chat membership: %w", err)
	}
	if member.Owner != nil {
		return true, nil
	}
	if member.Administrator != nil {
		return member.Administrator.CanDeleteMessages, nil
	}
	return false, nil
}

// RecordReactionUpdate folds a message_reaction update into the
// per-message counts and returns the symbols the user newly added. The
// bot's own updates are ignored.
func (t *TelegramPlatform) RecordReactionUpdate(u *models.MessageReactionUpdated) []string {
	if u == nil || u.User == nil || u.User.ID == t.botID {
		return nil
	}
	before := emojiSet(u.OldReaction)
	after := emojiSet(u.NewReaction)
	key := messageKey{u.Chat.ID, u.MessageID}

	var added []string
	t.mu.Lock()
	for sym := range after {
		if !before[sym] {
			added = append(added, sym)
			t.adjustLocked(key, sym, 1)
		}
	}
	for sym := range before {
		if !after[sym] {
			// An engine eviction already deducted this vote.
			if t.consumeEvictionLocked(key, eviction{u.User.ID, sym}) {
				continue
			}
			t.adjustLocked(key, sym, -1)
		}
	}
	t.mu.Unlock()
	return added
}

func (t *TelegramPlatform) consumeEvictionLocked(key messageKey, e eviction) bool {
	byMsg := t.evicted[key]
	if byMsg[e] == 0 {
		return false
	}
	byMsg[e]--
	if byMsg[e] == 0 {
		delete(byMsg, e)
	}
	return true
}

func (t *TelegramPlatform) adjust(key messageKey, symbol string, delta int) {
	t.mu.Lock()
	t.adjustLocked(key, symbol, delta)
	t.mu.Unlock()
}

func (t *TelegramPlatform) adjustLocked(key messageKey, symbol string, delta int) {
	byMsg, ok := t.counts[key]
	if !ok {
		byMsg = make(map[string]int)
		t.counts[key] = byMsg
	}
	byMsg[symbol] += delta
	if byMsg[symbol] < 0 {
		byMsg[symbol] = 0
	}
}

func emojiSet(reactions []models.ReactionType) map[string]bool {
	set := make(map[string]bool, len(reactions))
	for _, r := range reactions {
		if r.ReactionTypeEmoji != nil {
			set[r.ReactionTypeEmoji.Emoji] = true
		}
	}
	return set
}

func emojiReaction(symbol string) models.ReactionType {
	return models.ReactionType{
		Type: "emoji",
		ReactionTypeEmoji: &models.ReactionTypeEmoji{
			Type:  "emoji",
			Emoji: symbol,
		},
	}
}
