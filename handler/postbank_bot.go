package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"alphabot/model"
	"alphabot/postbank"
)

// listLimit is how many posts /recent and /need show.
const listLimit = 10

const (
	reviewedMark   = "✅"
	unreviewedMark = "⭕"
)

type PostBankHandler struct {
	svc *postbank.Service
}

func NewPostBankHandler(svc *postbank.Service) *PostBankHandler {
	return &PostBankHandler{svc: svc}
}

// Handle dispatches one postbank command.
func (h *PostBankHandler) Handle(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	cmd, args := splitCommand(msg.Text)

	switch cmd {
	case "/balance":
		h.balance(ctx, b, msg)
	case "/post":
		h.post(ctx, b, msg, args)
	case "/feedback":
		h.feedback(ctx, b, msg, args)
	case "/recent":
		h.list(ctx, b, msg, false)
	case "/need":
		h.list(ctx, b, msg, true)
	case "/edit":
		h.edit(ctx, b, msg, args)
	}
}

func (h *PostBankHandler) balance(ctx context.Context, b *bot.Bot, msg *botmodels.Message) {
	bal, err := h.svc.Balance(ctx, msg.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user", msg.From.ID).Msg("error fetching balance")
		say(ctx, b, msg.Chat.ID, "Could not fetch your balance. Please try again later.")
		return
	}
	say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: Your credit balance is: %d", displayName(msg.From), bal))
}

func (h *PostBankHandler) post(ctx context.Context, b *bot.Bot, msg *botmodels.Message, args string) {
	postID, err := h.svc.SubmitPost(ctx, msg.From.ID, args)
	switch {
	case errors.Is(err, model.ErrNoURL):
		say(ctx, b, msg.Chat.ID, "Include a link in your post: /post <url>")
	case errors.Is(err, model.ErrDuplicateLink):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: That link was already submitted.", displayName(msg.From)))
	case errors.Is(err, model.ErrInsufficientCredit):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf(
			"%s: Your post was removed because you don't have any credit. Give users feedback with /feedback to earn credit.",
			displayName(msg.From)))
		if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
		}); err != nil {
			log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("could not delete uncredited post")
		}
	case err != nil:
		log.Error().Err(err).Int64("user", msg.From.ID).Msg("error submitting post")
		say(ctx, b, msg.Chat.ID, "Could not record your post. Please try again later.")
	default:
		say(ctx, b, msg.Chat.ID, fmt.Sprintf(
			"%s submitted a track! Use /feedback %d <feedback post here> to give them some feedback!",
			displayName(msg.From), postID))
	}
}

func (h *PostBankHandler) feedback(ctx context.Context, b *bot.Bot, msg *botmodels.Message, args string) {
	idStr, text, _ := strings.Cut(args, " ")
	postID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		say(ctx, b, msg.Chat.ID, "Usage: /feedback <id> <feedback post here>")
		return
	}

	ownerID, err := h.svc.GiveFeedback(ctx, msg.From.ID, postID, strings.TrimSpace(text))
	switch {
	case errors.Is(err, model.ErrUnknownPost):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: %d is not a valid feedback ID.", displayName(msg.From), postID))
	case errors.Is(err, model.ErrOwnPost):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: You cannot review your own submissions.", displayName(msg.From)))
	case errors.Is(err, model.ErrFeedbackTooShort):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf(
			"%s: Your feedback needs to be %d characters or greater.",
			displayName(msg.From), postbank.MinFeedbackLength))
	case errors.Is(err, model.ErrAlreadyReviewed):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: You already submitted a review for this ID.", displayName(msg.From)))
	case err != nil:
		log.Error().Err(err).Int64("user", msg.From.ID).Msg("error recording feedback")
		say(ctx, b, msg.Chat.ID, "Could not record your feedback. Please try again later.")
	default:
		sayHTML(ctx, b, msg.Chat.ID, ownerMention(ownerID)+": You've got feedback!")
	}
}

func (h *PostBankHandler) list(ctx context.Context, b *bot.Bot, msg *botmodels.Message, unreviewedOnly bool) {
	var (
		posts []postbank.Post
		err   error
	)
	if unreviewedOnly {
		posts, err = h.svc.NeedingFeedback(ctx, listLimit)
	} else {
		posts, err = h.svc.Recent(ctx, listLimit)
	}
	if err != nil {
		log.Error().Err(err).Msg("error listing posts")
		say(ctx, b, msg.Chat.ID, "Could not list posts. Please try again later.")
		return
	}
	if len(posts) == 0 {
		if unreviewedOnly {
			say(ctx, b, msg.Chat.ID, "Every post has feedback. Nice work!")
		} else {
			say(ctx, b, msg.Chat.ID, "No posts yet. Submit one with /post <url>")
		}
		return
	}

	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		mark := unreviewedMark
		if p.Reviews > 0 {
			mark = reviewedMark
		}
		lines = append(lines, fmt.Sprintf("%s -- %d -- user %d -- %s", mark, p.ID, p.UserID, p.Link))
	}
	say(ctx, b, msg.Chat.ID, strings.Join(lines, "\n"))
}

func (h *PostBankHandler) edit(ctx context.Context, b *bot.Bot, msg *botmodels.Message, args string) {
	idStr, rest, _ := strings.Cut(args, " ")
	postID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		say(ctx, b, msg.Chat.ID, "Usage: /edit <id> <url>")
		return
	}

	switch err := h.svc.EditLink(ctx, msg.From.ID, postID, rest); {
	case errors.Is(err, model.ErrNoURL):
		say(ctx, b, msg.Chat.ID, "Usage: /edit <id> <url>")
	case errors.Is(err, model.ErrUnknownPost):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: %d is not a valid feedback ID.", displayName(msg.From), postID))
	case errors.Is(err, model.ErrNotOwner):
		say(ctx, b, msg.Chat.ID, fmt.Sprintf("%s: You cannot edit an ID that isn't yours.", displayName(msg.From)))
	case err != nil:
		log.Error().Err(err).Int64("user", msg.From.ID).Msg("error editing post")
		say(ctx, b, msg.Chat.ID, "Could not update your post. Please try again later.")
	default:
		say(ctx, b, msg.Chat.ID, fmt.Sprintf(
			"%s: Your link for Posting ID [%d] has been updated", displayName(msg.From), postID))
	}
}

// ownerMention builds an inline HTML mention that notifies the post owner
// even when they have no username.
func ownerMention(ownerID int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">poster</a>`, ownerID)
}

func displayName(u *botmodels.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

func say(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		log.Error().Err(err).Int64("chat", chatID).Msg("error sending message")
	}
}

func sayHTML(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: botmodels.ParseModeHTML,
	})
	if err != nil {
		log.Error().Err(err).Int64("chat", chatID).Msg("error sending message")
	}
}
