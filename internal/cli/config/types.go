// Package config provides configuration management for the querybinder CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	QueriesDir  string `koanf:"queries_dir"`
	CatalogPath string `koanf:"catalog_path"`
	Output      string `koanf:"output"`
	Color       string `koanf:"color"`
	Verbose     bool   `koanf:"verbose"`
	LogLevel    string `koanf:"log_level"`
	Concurrency int    `koanf:"concurrency"`
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultQueriesDir  = "queries"
	DefaultCatalogPath = ".querybinder/catalog.db"
	DefaultOutput      = "text"
	DefaultColor       = "auto"
	DefaultLogLevel    = "warn"
	DefaultConcurrency = 4
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		QueriesDir:  DefaultQueriesDir,
		CatalogPath: DefaultCatalogPath,
		Output:      DefaultOutput,
		Color:       DefaultColor,
		LogLevel:    DefaultLogLevel,
		Concurrency: DefaultConcurrency,
	}
}
