package config

// ObservabilityConfig holds the StatsD-compatible metrics sink configuration.
type ObservabilityConfig struct {
	// StatsdEnabled toggles metric emission.
	StatsdEnabled bool `env:"STATSD_ENABLED" envDefault:"false"`

	// StatsdAddr is the UDP address of the StatsD endpoint.
	StatsdAddr string `env:"STATSD_ADDR" envDefault:"127.0.0.1:8125"`

	// StatsdPrefix is prepended to every metric name.
	StatsdPrefix string `env:"STATSD_PREFIX" envDefault:"dms_export"`
}
