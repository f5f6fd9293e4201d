package routing

import (
	"github.com/ngochaukiet2005/shuttle-dispatch/core/factory"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/geo"
)

// Provider bundles the two routing concerns so one backend can serve
// both, the way the HTTP provider does.
type Provider struct {
	Geocoder  geo.Geocoder
	Optimizer geo.RouteOptimizer
}

var registry = factory.NewRegistry[Provider]()

// Register adds a provider factory identified by mode name.
func Register(mode string, f factory.Factory[Provider]) error {
	return registry.Register(mode, f)
}

// New creates the provider selected by cfg.Mode.
func New(cfg Config) (Provider, error) {
	cfg.SetDefaults()
	conf := map[string]any{
		"base_url":               cfg.BaseURL,
		"timeout_seconds":        cfg.TimeoutSeconds,
		"max_improvement_rounds": cfg.MaxImprovementRounds,
		"auth": map[string]any{
			"client_id":     cfg.Auth.ClientID,
			"client_secret": cfg.Auth.ClientSecret,
			"auth_url":      cfg.Auth.AuthURL,
		},
	}
	return registry.Create(factory.ModuleConfig{Type: cfg.Mode, Conf: conf})
}

// init registers the built-in providers.
func init() {
	_ = Register("identity", func(map[string]any) (Provider, error) {
		return Provider{Geocoder: geo.StaticGeocoder{}, Optimizer: geo.IdentityOptimizer{}}, nil
	})

	_ = Register("nearest", func(conf map[string]any) (Provider, error) {
		var c struct {
			MaxImprovementRounds int `json:"max_improvement_rounds"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return Provider{}, err
		}
		return Provider{
			Geocoder:  geo.StaticGeocoder{},
			Optimizer: geo.NearestNeighborOptimizer{MaxImprovementRounds: c.MaxImprovementRounds},
		}, nil
	})

	_ = Register("http", func(conf map[string]any) (Provider, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return Provider{}, err
		}
		c.Mode = "http"
		p, err := NewHTTPProvider(c)
		if err != nil {
			return Provider{}, err
		}
		return Provider{Geocoder: p, Optimizer: p}, nil
	})
}
