// Package config resolves bot configuration from CLI flags with
// environment-variable fallback. A .env file in the working directory is
// loaded first if present.
package config

import (
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken                string
	PostDBPath              string
	FirebaseCredentialsPath string
	FirebaseDatabaseURL     string
}

// Parse reads flags and environment variables into a Config.
func Parse(args []string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	fs := flag.NewFlagSet("alphabot", flag.ContinueOnError)
	fs.StringVar(&cfg.BotToken, "token", "", "Telegram bot token (prefer BOT_TOKEN env)")
	fs.StringVar(&cfg.PostDBPath, "db", "", "Path to the postbank sqlite database")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.BotToken == "" {
		cfg.BotToken = os.Getenv("BOT_TOKEN")
	}
	if cfg.BotToken == "" {
		return Config{}, errors.New("bot token required (use -token or BOT_TOKEN env)")
	}

	if cfg.PostDBPath == "" {
		cfg.PostDBPath = os.Getenv("POSTBANK_DB_PATH")
	}
	if cfg.PostDBPath == "" {
		cfg.PostDBPath = "postbank.db"
	}

	cfg.FirebaseCredentialsPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH")
	if cfg.FirebaseCredentialsPath == "" {
		return Config{}, errors.New("FIREBASE_SERVICE_ACCOUNT_KEY_PATH environment variable not set")
	}
	cfg.FirebaseDatabaseURL = os.Getenv("FIREBASE_DATABASE_URL")
	if cfg.FirebaseDatabaseURL == "" {
		return Config{}, errors.New("FIREBASE_DATABASE_URL environment variable not set")
	}

	return cfg, nil
}
