// Package logintokens stores one-time login tokens issued by the bot and
// redeemed by the web layer. Implementations must make Redeem atomic: two
// concurrent redemptions of the same fresh token may not both observe it
// as unconsumed.
package logintokens

import (
	"context"
	"time"
)

const (
	// TokenTTL is how long an issued token stays redeemable.
	TokenTTL = 10 * time.Minute

	// GraceWindow is the extra period after first consumption during which
	// a repeat redemption still succeeds. Deliberate UX accommodation for
	// double-clicked links; see the token store docs before tightening.
	GraceWindow = 60 * time.Second
)

type Store interface {
	// Issue creates and persists a fresh token for the given Telegram
	// identity and returns the opaque token value.
	Issue(ctx context.Context, telegramID int64) (string, error)

	// Redeem atomically consumes the token and returns the identity it was
	// issued for. A repeat redemption inside the grace window succeeds with
	// the same identity; anything else returns
	// common.ErrTokenExpiredOrInvalid.
	Redeem(ctx context.Context, token string) (int64, error)
}
