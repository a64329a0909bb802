package config

import "time"

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	// Dir is the root directory for file exports.
	Dir string `env:"EXPORT_DIR" envDefault:"./exports"`

	// Delimiter is the single-character value separator for file exports.
	Delimiter string `env:"EXPORT_DELIMITER" envDefault:";"`

	// SearchLimit caps the result set of a collection search.
	SearchLimit int `env:"EXPORT_SEARCH_LIMIT" envDefault:"1000"`

	// RequestTimeout bounds every outbound platform call. This is distinct
	// from cooperative run cancellation.
	RequestTimeout time.Duration `env:"EXPORT_REQUEST_TIMEOUT" envDefault:"2m"`
}

const (
	defaultSearchLimit    = 1000
	defaultRequestTimeout = 2 * time.Minute
)

// Sanitize applies guardrails to export configuration.
func (c *ExportConfig) Sanitize() {
	if c.SearchLimit <= 0 {
		c.SearchLimit = defaultSearchLimit
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if len([]rune(c.Delimiter)) != 1 {
		c.Delimiter = ";"
	}
}

// DelimiterRune returns the delimiter as a rune.
func (c ExportConfig) DelimiterRune() rune {
	return []rune(c.Delimiter)[0]
}
