package config

import (
	"encoding/json"
	"os"

	"github.com/kuzkabot/sellerbot/internal/flagx"
	"github.com/kuzkabot/sellerbot/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its non-empty fields are copied
// into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr            string         `json:"endpoint_addr"`
	PublicBaseURL           string         `json:"public_base_url"`
	DatabaseDSN             string         `json:"database_dsn"`
	SessionSecret           string         `json:"session_secret"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	MasterKeys              []string       `json:"master_keys"`
	BotToken                string         `json:"bot_token"`
	WebhookSecret           string         `json:"webhook_secret"`
	WebhookPath             string         `json:"webhook_path"`
	BalanceCacheTTL         timex.Duration `json:"balance_cache_ttl"`
	BalanceCachePath        string         `json:"balance_cache_path"`
	SecureCookies           *bool          `json:"secure_cookies"`
	LogLevel                string         `json:"log_level"`
	LogFile                 string         `json:"log_file"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a half-applied config is worse than a crash at startup.
//
// Only fields present in the file override the current values.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.PublicBaseURL != "" {
		config.PublicBaseURL = c.PublicBaseURL
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SessionSecret != "" {
		config.SessionSecret = c.SessionSecret
	}
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if len(c.MasterKeys) > 0 {
		config.MasterKeys = c.MasterKeys
	}
	if c.BotToken != "" {
		config.BotToken = c.BotToken
	}
	if c.WebhookSecret != "" {
		config.WebhookSecret = c.WebhookSecret
	}
	if c.WebhookPath != "" {
		config.WebhookPath = c.WebhookPath
	}
	if c.BalanceCacheTTL.Duration != 0 {
		config.BalanceCacheTTL = c.BalanceCacheTTL.Duration
	}
	if c.BalanceCachePath != "" {
		config.BalanceCachePath = c.BalanceCachePath
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		config.LogFile = c.LogFile
	}
}
