package profile

import (
	"context"
	"fmt"

	pkghttp "TapeWatch/pkg/http"
)

// GatewayLister expands block lists through the quote gateway's REST API.
type GatewayLister struct {
	client  *pkghttp.Client
	baseURL string
	token   string
}

// NewGatewayLister creates a lister against the quote gateway.
func NewGatewayLister(client *pkghttp.Client, baseURL, token string) *GatewayLister {
	return &GatewayLister{client: client, baseURL: baseURL, token: token}
}

func (g *GatewayLister) ListSecurities(ctx context.Context, blocks []string) ([]Quote, error) {
	var out struct {
		Data []Quote `json:"data"`
	}
	err := g.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         g.baseURL + "/securities",
		Headers:     map[string]string{"Authorization": "Bearer " + g.token},
		QueryParams: map[string][]string{"block": blocks},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("gateway list securities: %w", err)
	}
	return out.Data, nil
}
