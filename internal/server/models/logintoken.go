package models

import "time"

// LoginToken is a one-time token bridging a Telegram identity into a web
// session. Issued by the bot, redeemed by the web layer.
//
// Lifecycle: created unconsumed with a 10 minute TTL; the first redemption
// marks it consumed and starts a short grace window during which repeat
// redemptions (double-clicked links, redirects) still succeed; afterwards
// it is dead.
type LoginToken struct {
	Token      string
	TelegramID int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt time.Time
}
