// Package auth binds redeemed login tokens to web sessions. A session is a
// signed, expiring JWT carried in a cookie: tamper-evident and verifiable
// without any server-side session table.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kuzkabot/sellerbot/internal/common"
)

// SessionCookieName is the cookie the web layer stores the session in.
const SessionCookieName = "sb_session"

// Claims includes the standard registered claims plus the Telegram
// identity the session was bound to.
type Claims struct {
	jwt.RegisteredClaims
	TelegramID int64 `json:"tg_id"`
}

// Binder signs and verifies session tokens with an HMAC secret.
type Binder struct {
	secret   []byte
	validity time.Duration
}

func NewBinder(secret []byte, validity time.Duration) *Binder {
	return &Binder{secret: secret, validity: validity}
}

// Bind produces a signed session token for the given Telegram identity.
func (b *Binder) Bind(telegramID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.validity)),
		},
		TelegramID: telegramID,
	})

	signed, err := token.SignedString(b.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify checks the signature and expiry of a session token and returns the
// Telegram identity it carries. Any failure maps to
// common.ErrSessionInvalidOrExpired.
func (b *Binder) Verify(tokenString string) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return b.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, common.ErrSessionInvalidOrExpired
	}

	if claims.TelegramID == 0 {
		return 0, common.ErrSessionInvalidOrExpired
	}

	return claims.TelegramID, nil
}
