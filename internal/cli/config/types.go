// Package config provides configuration management for the leapcalc CLI.
//
// Configuration is layered with koanf. Precedence (highest to lowest):
// explicit flags > LEAPCALC_ environment variables > leapcalc.yaml > defaults.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	LogLevel     string        `koanf:"log_level"`
	LogFormat    string        `koanf:"log_format"`
	Lexer        LexerConfig   `koanf:"lexer"`
	Eval         EvalConfig    `koanf:"eval"`
	History      HistoryConfig `koanf:"history"`
	Server       ServerConfig  `koanf:"server"`
	Batch        BatchConfig   `koanf:"batch"`
}

// LexerConfig holds tokenizer options.
type LexerConfig struct {
	RadixPrefixes bool `koanf:"radix_prefixes"`
}

// EvalConfig bounds the work a single evaluation may do.
type EvalConfig struct {
	MaxDepth       int `koanf:"max_depth"`
	MaxInputLength int `koanf:"max_input_length"`
}

// HistoryConfig selects the evaluation history store.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"`
	DSN     string `koanf:"dsn"`
}

// ServerConfig holds configuration for the HTTP service.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	CacheSize         int           `koanf:"cache_size"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// BatchConfig holds configuration for batch evaluation.
type BatchConfig struct {
	Workers       int           `koanf:"workers"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// Default configuration values.
const (
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultMaxDepth       = 1000
	DefaultMaxInputLength = 64 * 1024
	DefaultHistoryDriver  = "sqlite"
	DefaultHistoryDSN     = ".leapcalc/history.db"
	DefaultServerAddr     = ":8787"
	DefaultCacheSize      = 1024
	DefaultHistoryFile    = ".leapcalc/repl_history"
)

// ConfigFileNames lists the config files searched in the working directory.
var ConfigFileNames = []string{"leapcalc.yaml", "leapcalc.yml"}

// Supported values for enumerated options.
var (
	OutputFormats  = []string{"auto", "text", "json", "yaml", "markdown", "md"}
	LogLevels      = []string{"debug", "info", "warn", "error"}
	LogFormats     = []string{"text", "json"}
	HistoryDrivers = []string{"sqlite", "postgres"}
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		Eval: EvalConfig{
			MaxDepth:       DefaultMaxDepth,
			MaxInputLength: DefaultMaxInputLength,
		},
		History: HistoryConfig{
			Driver: DefaultHistoryDriver,
			DSN:    DefaultHistoryDSN,
		},
		Server: ServerConfig{
			Addr:              DefaultServerAddr,
			CacheSize:         DefaultCacheSize,
			ReadHeaderTimeout: 10 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Batch: BatchConfig{
			WatchDebounce: 200 * time.Millisecond,
		},
	}
}
