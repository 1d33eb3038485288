// Package sanitize normalizes raw WB API keys before encryption. Sellers
// paste keys with copy-paste artifacts (surrounding quotes, a "Bearer "
// prefix, zero-width characters) that would otherwise corrupt the stored
// secret silently.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kuzkabot/sellerbot/internal/common"
)

// WB API keys are JWTs: three base64url segments, each at least one character.
var jwtRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

// APIKey strips copy-paste artifacts from a raw API key and validates that
// the remainder has the three-segment JWT shape. It returns
// common.ErrCredentialMalformed when the value cannot be a WB key.
func APIKey(raw string) (string, error) {

	t := strings.TrimSpace(raw)
	t = strings.Trim(t, `"'`)
	t = strings.TrimSpace(t)

	if len(t) >= 7 && strings.EqualFold(t[:7], "bearer ") {
		t = strings.TrimSpace(t[7:])
	}

	// the scheme prefix may itself have been quoted: Bearer "abc..."
	t = strings.Trim(t, `"'`)

	// drop invisible junk: zero-width spaces, BOMs, stray control characters
	t = strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, t)

	if !jwtRe.MatchString(t) {
		return "", fmt.Errorf("value does not look like a WB API key (%s): %w", preview(t), common.ErrCredentialMalformed)
	}

	return t, nil
}

// preview returns a short non-sensitive prefix for error messages.
func preview(s string) string {
	const n = 10
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
