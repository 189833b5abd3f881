package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := fromEnv(lookupFrom(nil))
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Matching.MaxAttempts)
		assert.Empty(t, cfg.Matching.RematchPolicy)
		assert.False(t, cfg.Slack.Enabled())
		assert.False(t, cfg.Inngest.Enabled())
		assert.False(t, cfg.Inngest.Dev)
	})

	t.Run("all set", func(t *testing.T) {
		cfg, err := fromEnv(lookupFrom(map[string]string{
			"SLACK_BOT_TOKEN":    "xoxb-1",
			"SLACK_CHANNEL_ID":   "C1",
			"TELEGRAM_BOT_TOKEN": "123:abc",
			"INNGEST_APP_ID":     "pairup",
			"INNGEST_DEV":        "true",
			"GCP_PROJECT":        "proj",
			"REMATCH_POLICY":     "prefer-new",
			"MATCH_MAX_ATTEMPTS": "5",
		}))
		require.NoError(t, err)
		assert.True(t, cfg.Slack.Enabled())
		assert.Equal(t, "123:abc", cfg.Telegram.Token)
		assert.True(t, cfg.Inngest.Enabled())
		assert.True(t, cfg.Inngest.Dev)
		assert.Equal(t, "proj", cfg.ProjectID)
		assert.Equal(t, "prefer-new", cfg.Matching.RematchPolicy)
		assert.Equal(t, 5, cfg.Matching.MaxAttempts)
	})

	t.Run("malformed numbers", func(t *testing.T) {
		_, err := fromEnv(lookupFrom(map[string]string{"MATCH_MAX_ATTEMPTS": "many"}))
		assert.Error(t, err)
		_, err = fromEnv(lookupFrom(map[string]string{"INNGEST_DEV": "perhaps"}))
		assert.Error(t, err)
	})
}
