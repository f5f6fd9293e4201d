package metrics

import "github.com/ngochaukiet2005/shuttle-dispatch/core/factory"

// InfluxConfig defines the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool         `json:"prometheus_enabled"`
	PrometheusPort    string       `json:"prometheus_port"`
	InfluxEnabled     bool         `json:"influx_enabled"`
	Influx            InfluxConfig `json:"influx"`
}

// Modules translates the flag-style configuration into factory module
// configs consumed by NewMetricsSink.
func (c Config) Modules() []factory.ModuleConfig {
	var mods []factory.ModuleConfig
	if c.PrometheusEnabled {
		mods = append(mods, factory.ModuleConfig{Type: "prometheus"})
	}
	if c.InfluxEnabled {
		mods = append(mods, factory.ModuleConfig{Type: "influx", Conf: map[string]any{
			"url":    c.Influx.URL,
			"token":  c.Influx.Token,
			"org":    c.Influx.Org,
			"bucket": c.Influx.Bucket,
		}})
	}
	return mods
}
