package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the config.
// A double underscore separates nesting levels: LEAPCALC_SERVER__ADDR.
const EnvPrefix = "LEAPCALC_"

// flagKeys maps flag names onto config keys when the kebab-to-snake rule
// does not produce the right key.
var flagKeys = map[string]string{
	"history":          "history.enabled",
	"history-driver":   "history.driver",
	"history-dsn":      "history.dsn",
	"radix-prefixes":   "lexer.radix_prefixes",
	"max-depth":        "eval.max_depth",
	"max-input-length": "eval.max_input_length",
	"addr":             "server.addr",
	"cache-size":       "server.cache_size",
	"workers":          "batch.workers",
}

// Package-level config file tracking
var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// findConfigFile finds the config file to use.
// Priority: explicit path > leapcalc.yaml > leapcalc.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// defaults flattens Default() into koanf keys.
func defaults() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"verbose":                    d.Verbose,
		"output":                     d.OutputFormat,
		"log_level":                  d.LogLevel,
		"log_format":                 d.LogFormat,
		"lexer.radix_prefixes":       d.Lexer.RadixPrefixes,
		"eval.max_depth":             d.Eval.MaxDepth,
		"eval.max_input_length":      d.Eval.MaxInputLength,
		"history.enabled":            d.History.Enabled,
		"history.driver":             d.History.Driver,
		"history.dsn":                d.History.DSN,
		"server.addr":                d.Server.Addr,
		"server.cache_size":          d.Server.CacheSize,
		"server.read_header_timeout": d.Server.ReadHeaderTimeout.String(),
		"server.request_timeout":     d.Server.RequestTimeout.String(),
		"server.shutdown_timeout":    d.Server.ShutdownTimeout.String(),
		"batch.workers":              d.Batch.Workers,
		"batch.watch_debounce":       d.Batch.WatchDebounce.String(),
	}
}

// envKey transforms LEAPCALC_SERVER__CACHE_SIZE into server.cache_size.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// flagKey transforms a flag name into its config key.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// flagConfigKey returns the config key a flag sets, or "" when the flag is
// not part of the configuration tree (such as --file or --fail-fast).
func flagConfigKey(k *koanf.Koanf, name string) string {
	key := flagKey(name)
	if !k.Exists(key) {
		return ""
	}
	return key
}

// FlagConfigKey returns the configuration key bound to the named flag, or ""
// when the flag only affects its command.
func FlagConfigKey(name string) string {
	key := flagKey(name)
	if _, ok := defaults()[key]; !ok {
		return ""
	}
	return key
}

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers.
func LoadConfig(cfgFile string, flagSets ...*pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (LEAPCALC_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	for _, flags := range flagSets {
		if flags == nil {
			continue
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := flagConfigKey(k, f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.History.Driver = strings.ToLower(cfg.History.Driver)
	cfg.History.DSN = os.ExpandEnv(cfg.History.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}
