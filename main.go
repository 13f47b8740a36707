package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"alphabot/config"
	"alphabot/handler"
	"alphabot/poll"
	"alphabot/postbank"
	"alphabot/repo"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("error parsing configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bank, err := repo.NewFirebaseBank(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseDatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing credit bank")
	}

	postDB, err := repo.OpenPostDB(cfg.PostDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening postbank database")
	}
	defer postDB.Close()

	// The router is assembled after the bot exists; the default handler
	// closes over it.
	var router *handler.Router
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *botmodels.Update) {
			router.Handle(ctx, b, update)
		}),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message", "message_reaction"}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating bot")
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("error fetching bot identity")
	}

	platform := repo.NewTelegramPlatform(b, me.ID)
	registry := poll.NewRegistry()
	pollHandler := handler.NewPollBotHandler(platform, registry)
	postbankHandler := handler.NewPostBankHandler(postbank.NewService(postDB, bank))
	router = handler.NewRouter(pollHandler, postbankHandler)

	log.Info().Str("bot", me.Username).Msg("bot started")
	b.Start(ctx)
	log.Info().Msg("bot stopped")
}
