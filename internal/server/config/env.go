package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, first loading
// an optional .env file from the working directory. Real environment
// variables win over .env values (godotenv does not overwrite existing
// ones). Unset variables leave the current value in place.
func parseEnv(config *Config) {

	_ = godotenv.Load()

	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("ADDRESS", &config.EndpointAddr)
	setString("PUBLIC_BASE_URL", &config.PublicBaseURL)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SESSION_SECRET", &config.SessionSecret)
	setDuration("SESSION_TTL", &config.SessionValidityDuration)
	setString("BOT_TOKEN", &config.BotToken)
	setString("WEBHOOK_SECRET", &config.WebhookSecret)
	setString("WEBHOOK_PATH", &config.WebhookPath)
	setDuration("BALANCE_CACHE_TTL", &config.BalanceCacheTTL)
	setString("BALANCE_CACHE_PATH", &config.BalanceCachePath)
	setString("LOG_LEVEL", &config.LogLevel)
	setString("LOG_FILE", &config.LogFile)

	if v, ok := os.LookupEnv("SECURE_COOKIES"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.SecureCookies = b
		}
	}

	if v, ok := os.LookupEnv("MASTER_KEYS"); ok {
		config.MasterKeys = splitKeys(v)
	}
}

func splitKeys(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
