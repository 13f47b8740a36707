package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
)

const helpText = `Commands:
/apoll question;option1;option2...;n=2;t=60 – start a reaction poll
/apoll stop – end your running poll early
/balance – show your credit balance
/post <url> – submit a track for feedback (costs 1 credit)
/feedback <id> <text> – review a submission (earns 1 credit)
/recent – the last posts and their feedback status
/need – posts still waiting for feedback
/edit <id> <url> – replace the link on your own post`

// Router fans incoming updates out to the plugin handlers. It is
// installed as the bot's default handler.
type Router struct {
	poll     *PollBotHandler
	postbank *PostBankHandler
}

func NewRouter(poll *PollBotHandler, postbank *PostBankHandler) *Router {
	return &Router{poll: poll, postbank: postbank}
}

func (r *Router) Handle(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
	switch {
	case update.MessageReaction != nil:
		r.poll.HandleReaction(ctx, b, update)
	case update.Message != nil:
		r.handleMessage(ctx, b, update)
	}
}

func (r *Router) handleMessage(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
	msg := update.Message
	if msg.From == nil || msg.From.IsBot {
		return
	}

	switch cmd, _ := splitCommand(msg.Text); cmd {
	case "/apoll":
		r.poll.HandleCommand(ctx, b, update)
	case "/balance", "/post", "/feedback", "/recent", "/need", "/edit":
		r.postbank.Handle(ctx, b, update)
	case "/start", "/help":
		say(ctx, b, msg.Chat.ID, helpText)
	}
}

// splitCommand returns the leading bot command with any @botname suffix
// stripped, plus the rest of the message. Non-command text comes back
// with an empty command.
func splitCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd = text
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmd, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, args
}
