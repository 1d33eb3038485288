package config

import (
	"flag"
	"os"
	"time"

	"github.com/kuzkabot/sellerbot/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-u string   public base URL used in login links
//	-d string   PostgreSQL DSN
//	-s string   session JWT HMAC secret
//	-t int      session validity, minutes
//	-k string   master keys, comma-separated "version:base64key" entries
//	-b string   Telegram bot token
//	-w string   Telegram webhook secret
//	-l string   log level (debug, info, warn, error)
//	-f string   log file path (optional)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-d", "-s", "-t", "-k", "-b", "-w", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret key")

	sessionValidityMinutes := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session_validity_duration (in minutes)")
	masterKeys := fs.String("k", "", "master keys, comma-separated version:base64key entries")

	fs.StringVar(&config.BotToken, "b", config.BotToken, "Telegram bot token")
	fs.StringVar(&config.WebhookSecret, "w", config.WebhookSecret, "Telegram webhook secret")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidityMinutes) * time.Minute
	if *masterKeys != "" {
		config.MasterKeys = splitKeys(*masterKeys)
	}
}
