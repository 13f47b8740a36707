package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"alphabot/model"
	"alphabot/poll"
)

const pollUsage = "Usage: /apoll question;option1;option2...;n=2;t=60\nOr /apoll stop to end your poll early."

// PollPlatform is what the poll handler needs from the Telegram adapter:
// the engine's platform contract plus the reaction-update bookkeeping.
type PollPlatform interface {
	poll.Platform
	RecordReactionUpdate(u *botmodels.MessageReactionUpdated) []string
}

type PollBotHandler struct {
	platform PollPlatform
	registry *poll.Registry
}

func NewPollBotHandler(platform PollPlatform, registry *poll.Registry) *PollBotHandler {
	return &PollBotHandler{platform: platform, registry: registry}
}

// HandleCommand handles an /apoll invocation: either "stop" or a new
// poll spec.
func (h *PollBotHandler) HandleCommand(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	channelID := msg.Chat.ID
	_, args := splitCommand(msg.Text)

	if strings.EqualFold(args, "stop") {
		h.stopPoll(ctx, channelID, msg.From.ID)
		return
	}
	if args == "" {
		h.say(ctx, channelID, pollUsage)
		return
	}

	if h.registry.Active(channelID) != nil {
		h.say(ctx, channelID, "A reaction poll is already ongoing in this channel.")
		return
	}

	spec, err := poll.ParseSpec(args)
	switch {
	case errors.Is(err, model.ErrMassMention):
		h.say(ctx, channelID, "Nice try.")
		return
	case err != nil:
		h.say(ctx, channelID, pollUsage)
		return
	}

	ok, err := h.platform.CanManageMessages(ctx, channelID)
	if err != nil {
		log.Error().Err(err).Int64("channel", channelID).Msg("error checking permissions")
		h.say(ctx, channelID, "Could not verify my permissions in this channel.")
		return
	}
	if !ok {
		h.say(ctx, channelID, "I need the right to manage messages in this channel to conduct a reaction poll.")
		return
	}

	s := poll.NewSession(h.platform, h.registry, channelID, msg.From.ID, spec)
	if err := h.registry.Add(s); err != nil {
		h.say(ctx, channelID, "A reaction poll is already ongoing in this channel.")
		return
	}
	if err := s.Start(ctx); err != nil {
		h.registry.Remove(s)
		log.Error().Err(err).Int64("channel", channelID).Msg("error starting poll")
		h.say(ctx, channelID, "Could not start the poll. Please try again.")
	}
}

func (h *PollBotHandler) stopPoll(ctx context.Context, channelID, userID int64) {
	s := h.registry.Active(channelID)
	if s == nil {
		h.say(ctx, channelID, "There's no reaction poll ongoing in this channel.")
		return
	}
	switch err := s.Stop(ctx, userID); {
	case errors.Is(err, model.ErrNotInitiator):
		h.say(ctx, channelID, "Only the poll author can stop the poll.")
	case errors.Is(err, model.ErrNoPoll):
		h.say(ctx, channelID, "The poll is still being set up. Try again in a moment.")
	case errors.Is(err, model.ErrPollClosed):
		// Lost the race against the expiry timer; the results are
		// already out.
	case err != nil:
		log.Error().Err(err).Int64("channel", channelID).Msg("error stopping poll")
	}
}

// HandleReaction feeds a message_reaction update into the adapter's
// bookkeeping and routes any newly added symbols to the channel's live
// session.
func (h *PollBotHandler) HandleReaction(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
	u := update.MessageReaction
	added := h.platform.RecordReactionUpdate(u)
	if len(added) == 0 {
		return
	}
	s := h.registry.Active(u.Chat.ID)
	if s == nil {
		return
	}
	for _, symbol := range added {
		s.HandleVote(ctx, u.User.ID, u.MessageID, symbol)
	}
}

func (h *PollBotHandler) say(ctx context.Context, channelID int64, text string) {
	if _, err := h.platform.SendMessage(ctx, channelID, text); err != nil {
		log.Error().Err(err).Int64("channel", channelID).Msg("error sending message")
	}
}
