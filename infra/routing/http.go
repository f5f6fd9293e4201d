package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/auth"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/geo"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

// HTTPProvider talks to an external routing service for geocoding and
// stop-order optimization. It implements both geo.Geocoder and
// geo.RouteOptimizer; callers degrade to fallbacks on error, so the
// provider reports failures instead of masking them.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	cred    *auth.ClientCred
	log     logger.Logger
}

var (
	_ geo.Geocoder       = (*HTTPProvider)(nil)
	_ geo.RouteOptimizer = (*HTTPProvider)(nil)
)

// NewHTTPProvider creates a provider for the configured endpoint. A
// credential client is created only when auth settings are present.
func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("routing: base_url is required for the http provider")
	}
	cfg.SetDefaults()
	p := &HTTPProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("routing-http"),
	}
	if cfg.Auth.AuthURL != "" {
		p.cred = auth.NewClientCred(cfg.Auth)
	}
	return p, nil
}

// Resolve implements geo.Geocoder against GET /geocode.
func (p *HTTPProvider) Resolve(ctx context.Context, address string) (model.Coordinate, error) {
	u := fmt.Sprintf("%s/geocode?address=%s", p.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("routing: create request: %w", err)
	}
	var out struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := p.do(req, &out); err != nil {
		return model.Coordinate{}, err
	}
	c := model.Coordinate{Lat: out.Lat, Lng: out.Lng}
	if err := c.Validate(); err != nil {
		return model.Coordinate{}, fmt.Errorf("routing: geocode result: %w", err)
	}
	return c, nil
}

// Optimize implements geo.RouteOptimizer against POST /optimize.
func (p *HTTPProvider) Optimize(ctx context.Context, origin model.Coordinate, waypoints []geo.Waypoint) ([]int, error) {
	type point struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	body := struct {
		Origin    point   `json:"origin"`
		Waypoints []point `json:"waypoints"`
	}{Origin: point{origin.Lat, origin.Lng}}
	for _, w := range waypoints {
		body.Waypoints = append(body.Waypoints, point{w.Location.Lat, w.Location.Lng})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/optimize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("routing: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var out struct {
		Order []int `json:"order"`
	}
	if err := p.do(req, &out); err != nil {
		return nil, err
	}
	if !geo.ValidPermutation(out.Order, len(waypoints)) {
		return nil, fmt.Errorf("routing: service returned an invalid order for %d waypoints", len(waypoints))
	}
	return out.Order, nil
}

func (p *HTTPProvider) do(req *http.Request, out any) error {
	if p.cred != nil {
		if err := p.cred.SetAuthHeader(req); err != nil {
			return fmt.Errorf("routing: set auth header: %w", err)
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("routing: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("routing: unexpected status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("routing: decode response: %w", err)
	}
	return nil
}
