package config

// Config holds all configuration for the application.
type Config struct {
	DBName    string
	Port      string
	Turso     TursoConfig
	Slack     SlackConfig
	Telegram  TelegramConfig
	Inngest   InngestConfig
	ProjectID string
	Matching  MatchingConfig
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

// Enabled reports whether Slack announcements are configured.
func (c SlackConfig) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

type TelegramConfig struct {
	Token string
}

type InngestConfig struct {
	AppID      string
	SigningKey string
	EventKey   string
	Dev        bool
}

func (c InngestConfig) Enabled() bool {
	return c.AppID != ""
}

type MatchingConfig struct {
	RematchPolicy string
	MaxAttempts   int
}
