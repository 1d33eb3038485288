package wb

import (
	"context"
	"time"
)

// Gateway bundles a Client with a balance cache so callers ask for data by
// token only and do not carry caching policy around.
type Gateway struct {
	client     *Client
	cache      Cache
	balanceTTL time.Duration
}

func NewGateway(client *Client, cache Cache, balanceTTL time.Duration) *Gateway {
	return &Gateway{client: client, cache: cache, balanceTTL: balanceTTL}
}

func (g *Gateway) SellerInfo(ctx context.Context, token string) (*SellerInfo, error) {
	return g.client.GetSellerInfo(ctx, token)
}

func (g *Gateway) AccountBalance(ctx context.Context, token string) (*Balance, error) {
	return g.client.GetAccountBalanceCached(ctx, g.cache, token, g.balanceTTL)
}

func (g *Gateway) Ping(ctx context.Context, token string) map[string]PingResult {
	return g.client.Ping(ctx, token)
}
