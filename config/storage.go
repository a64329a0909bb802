package config

// StateConfig holds the flat-document state location. Jobs, history, and the
// session cache each persist as one JSON document under this directory.
type StateConfig struct {
	// Dir is the state directory.
	Dir string `env:"STATE_DIR" envDefault:"./state"`
}

// PostgresConfig configures the optional external-database export sink. Jobs
// with a postgres storage target require it.
type PostgresConfig struct {
	// URL is the pgx connection string; empty disables the database sink.
	URL string `env:"URL"`
}

// Enabled reports whether the database sink is configured.
func (c PostgresConfig) Enabled() bool {
	return c.URL != ""
}

// RedisConfig configures the optional shared session cache. When Addr is
// empty, the session persists to a local file instead.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Enabled reports whether the Redis session cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}
