package main

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Config holds parameters for the driver-app simulator.
type Config struct {
	Broker       string
	Drivers      []string
	Count        int
	AckTopic     string
	AckLatency   time.Duration
	DropRate     float64
	WalkStops    bool
	WalkInterval time.Duration
	Verbose      bool
}

func parseFlags() Config {
	var cfg Config
	var ids string
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&ids, "drivers", "", "comma-separated driver ids, overrides -count")
	flag.IntVar(&cfg.Count, "count", 1, "number of generated drivers")
	flag.StringVar(&cfg.AckTopic, "ack-topic", "driver/ack", "acknowledgment topic")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "delay before acknowledging")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "probability of dropping an ack")
	flag.BoolVar(&cfg.WalkStops, "walk", false, "walk the stop sequence after acknowledging")
	flag.DurationVar(&cfg.WalkInterval, "walk-interval", time.Second, "delay between stop updates")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable logging")
	flag.Parse()
	if ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Drivers = append(cfg.Drivers, id)
			}
		}
	}
	return cfg
}

// Validate checks the simulator parameters.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if len(c.Drivers) == 0 && c.Count <= 0 {
		return fmt.Errorf("at least one driver is required")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate must be within [0,1]")
	}
	return nil
}

// DriverIDs returns the configured ids, generating drv0001..drvNNNN
// when none were listed.
func (c *Config) DriverIDs() []string {
	if len(c.Drivers) > 0 {
		return c.Drivers
	}
	ids := make([]string, c.Count)
	for i := range ids {
		ids[i] = fmt.Sprintf("drv%04d", i+1)
	}
	return ids
}
