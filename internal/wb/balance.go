package wb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Balance is the normalized account balance. WB has shipped at least four
// field spellings for the same numbers; everything is folded into this.
type Balance struct {
	Currency    string  `json:"currency"`
	Current     float64 `json:"current"`
	ForWithdraw float64 `json:"for_withdraw"`
}

// GetAccountBalance fetches and normalizes the finance balance.
func (c *Client) GetAccountBalance(ctx context.Context, token string) (*Balance, error) {
	raw := map[string]any{}
	if err := c.request(ctx, "GET", c.financeBase+"/api/v1/account/balance", token, nil, &raw); err != nil {
		return nil, err
	}
	return normalizeBalance(raw)
}

// GetAccountBalanceCached serves the balance from cache when a value newer
// than ttl exists, keyed by sha256(token) so the key itself is never used
// as a cache key. Cache failures fall through to a live call.
func (c *Client) GetAccountBalanceCached(ctx context.Context, cache Cache, token string, ttl time.Duration) (*Balance, error) {

	key := "wb:balance:" + hashToken(token)

	if data, ok := cache.Get(key); ok {
		b := &Balance{}
		if err := json.Unmarshal(data, b); err == nil {
			return b, nil
		}
	}

	b, err := c.GetAccountBalance(ctx, token)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(b); err == nil {
		cache.Set(key, data, ttl)
	}
	return b, nil
}

// normalizeBalance folds the known WB balance payload variants:
//
//	{"currency":"RUB","current":...,"for_withdraw":...}
//	{"currency":"RUB","currentBalance":...,"forWithdraw":...}
//	{"currency":"RUB","balance":...,"forWithdrawPresent":...}
//	{"currency":"RUB","total":...,"available":...}
func normalizeBalance(raw map[string]any) (*Balance, error) {

	currency, ok := raw["currency"].(string)
	if !ok {
		return nil, &Error{Msg: fmt.Sprintf("unrecognized balance payload, keys: %v", keysOf(raw))}
	}

	current, ok1 := firstNumber(raw, "current", "currentBalance", "balance", "total")
	forWithdraw, ok2 := firstNumber(raw, "for_withdraw", "forWithdraw", "available", "forWithdrawPresent")
	if !ok1 || !ok2 {
		return nil, &Error{Msg: fmt.Sprintf("unrecognized balance payload, keys: %v", keysOf(raw))}
	}

	return &Balance{Currency: currency, Current: current, ForWithdraw: forWithdraw}, nil
}

func firstNumber(m map[string]any, names ...string) (float64, bool) {
	for _, n := range names {
		v, ok := m[n]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case float64:
			return x, true
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f, true
			}
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
