package wb

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"
)

// SellerInfo is the /api/v1/seller-info payload.
type SellerInfo struct {
	Name      string `json:"name"`
	SID       string `json:"sid"`
	TradeMark string `json:"tradeMark"`
}

// GetSellerInfo returns the seller profile for the given API key.
func (c *Client) GetSellerInfo(ctx context.Context, token string) (*SellerInfo, error) {
	info := &SellerInfo{}
	if err := c.request(ctx, "GET", c.commonBase+"/api/v1/seller-info", token, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// PingResult is the outcome of probing one endpoint with a token.
type PingResult struct {
	OK       bool
	Duration time.Duration
	Err      string
}

// Ping probes the main endpoints with the token in parallel. It reports
// per-endpoint outcomes and never returns an error itself: a dead token is
// a result, not a failure.
func (c *Client) Ping(ctx context.Context, token string) map[string]PingResult {

	probe := func(err error, took time.Duration) PingResult {
		r := PingResult{OK: err == nil, Duration: took}
		if err != nil {
			r.Err = err.Error()
		}
		return r
	}

	var sellerRes, balanceRes PingResult

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		_, err := c.GetSellerInfo(ctx, token)
		sellerRes = probe(err, time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		_, err := c.GetAccountBalance(ctx, token)
		balanceRes = probe(err, time.Since(start))
		return nil
	})
	_ = g.Wait()

	return map[string]PingResult{
		"seller-info":     sellerRes,
		"account-balance": balanceRes,
	}
}

// TokenClaims is the non-sensitive part of a WB API key's JWT payload,
// decoded without signature verification. Used only for diagnostics
// (showing the seller when their key expires).
type TokenClaims struct {
	SellerID  string
	ExpiresAt time.Time
}

// PeekTokenClaims decodes the key's claims without verifying the signature
// (we do not hold WB's keys). Returns nil if the key does not parse.
func PeekTokenClaims(token string) *TokenClaims {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	out := &TokenClaims{}
	if sid, ok := claims["sid"].(string); ok {
		out.SellerID = sid
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out
}
