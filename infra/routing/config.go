package routing

import (
	"github.com/ngochaukiet2005/shuttle-dispatch/auth"
)

// Config selects and configures the routing provider. Mode picks the
// registered provider; the remaining fields only apply to the HTTP one.
type Config struct {
	// Mode is one of "http", "nearest" or "identity".
	Mode string `json:"mode"`

	// BaseURL is the routing service endpoint for the HTTP provider.
	BaseURL string `json:"base_url"`

	// TimeoutSeconds bounds each geocode or optimize call.
	TimeoutSeconds int `json:"timeout_seconds"`

	// Auth holds the OAuth2 client credentials. Leave empty for
	// unauthenticated services.
	Auth auth.Conf `json:"auth"`

	// MaxImprovementRounds tunes the in-process optimizer.
	MaxImprovementRounds int `json:"max_improvement_rounds"`
}

// SetDefaults fills in defaults for unset fields.
func (c *Config) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "nearest"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}
