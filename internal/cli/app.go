// Package cli is the operator tool: master key generation, WB API key
// diagnostics and Telegram webhook management.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/kuzkabot/sellerbot/internal/bot"
	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/logging"
	"github.com/kuzkabot/sellerbot/internal/sanitize"
	"github.com/kuzkabot/sellerbot/internal/server/config"
	"github.com/kuzkabot/sellerbot/internal/wb"
)

// App runs one admin command per invocation.
type App struct {
	config *config.Config
	out    io.Writer
	logger logging.Logger
}

func NewApp(cfg *config.Config, out io.Writer) *App {
	return &App{
		config: cfg,
		out:    out,
		logger: logging.New("error", ""),
	}
}

func (a *App) Run(ctx context.Context, args []string) error {

	if len(args) == 0 {
		a.usage()
		return nil
	}

	switch args[0] {
	case "genkey":
		return a.genKey()
	case "checktoken":
		return a.checkToken(ctx)
	case "setwebhook":
		return a.setWebhook(ctx)
	case "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) usage() {
	fmt.Fprint(a.out, `Usage: cli <command>

Commands:
  genkey      generate a fresh 32-byte master key for the credential keyring
  checktoken  prompt for a WB API key (no echo) and probe the WB endpoints
  setwebhook  register the Telegram webhook for the configured bot
`)
}

// genKey prints a new random master key plus the keyring entry to put in
// MASTER_KEYS. The version is a suggestion; when rotating, use the next
// free version number instead.
func (a *App) genKey() error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	encoded := "base64:" + base64.URLEncoding.EncodeToString(key)
	fmt.Fprintf(a.out, "Master key:    %s\n", encoded)
	fmt.Fprintf(a.out, "Keyring entry: 1:%s\n", encoded)
	return nil
}

func (a *App) checkToken(ctx context.Context) error {

	raw, err := GetPassword(a.out, "Paste the WB API key: ")
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}

	token, err := sanitize.APIKey(string(raw))
	common.WipeByteArray(raw)
	if err != nil {
		return fmt.Errorf("key rejected: %w", err)
	}

	if claims := wb.PeekTokenClaims(token); claims != nil && !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Key expires: %s\n", claims.ExpiresAt.Format(time.RFC3339))
		if time.Now().After(claims.ExpiresAt) {
			fmt.Fprintln(a.out, "WARNING: the key is already expired")
		}
	}

	client := wb.NewClient(a.logger)
	results := client.Ping(ctx, token)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := 0
	for _, name := range names {
		r := results[name]
		if r.OK {
			fmt.Fprintf(a.out, "OK   %-16s %d ms\n", name, r.Duration.Milliseconds())
		} else {
			failures++
			fmt.Fprintf(a.out, "FAIL %-16s %s\n", name, r.Err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d probes failed", failures, len(results))
	}
	return nil
}

func (a *App) setWebhook(ctx context.Context) error {

	if a.config.BotToken == "" {
		return fmt.Errorf("bot token is not configured (-b or BOT_TOKEN)")
	}
	if a.config.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is not configured (-w or WEBHOOK_SECRET)")
	}

	url := a.config.PublicBaseURL + a.config.WebhookPath
	api := bot.NewAPI(a.config.BotToken, a.logger)
	if err := api.SetWebhook(ctx, url, a.config.WebhookSecret); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Webhook registered: %s\n", url)
	return nil
}
