package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const defaultMaxAttempts = 3

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg, err := fromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("Error: invalid configuration: %v", err)
	}
	cfg.DBName = getEnv("DB_NAME")
	cfg.Port = getEnv("PORT")
	return cfg
}

// fromEnv reads the optional settings through lookup.
func fromEnv(lookup func(string) (string, bool)) (Config, error) {
	optional := func(key string) string {
		value, _ := lookup(key)
		return value
	}

	cfg := Config{
		Turso: TursoConfig{
			PrimaryURL: optional("TURSO_PRIMARY_URL"),
			AuthToken:  optional("TURSO_AUTH_TOKEN"),
		},
		Slack: SlackConfig{
			Token:     optional("SLACK_BOT_TOKEN"),
			ChannelID: optional("SLACK_CHANNEL_ID"),
		},
		Telegram: TelegramConfig{
			Token: optional("TELEGRAM_BOT_TOKEN"),
		},
		Inngest: InngestConfig{
			AppID:      optional("INNGEST_APP_ID"),
			SigningKey: optional("INNGEST_SIGNING_KEY"),
			EventKey:   optional("INNGEST_EVENT_KEY"),
		},
		ProjectID: optional("GCP_PROJECT"),
		Matching: MatchingConfig{
			RematchPolicy: optional("REMATCH_POLICY"),
			MaxAttempts:   defaultMaxAttempts,
		},
	}

	if v := optional("INNGEST_DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Inngest.Dev = dev
	}
	if v := optional("MATCH_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Matching.MaxAttempts = n
	}
	return cfg, nil
}
