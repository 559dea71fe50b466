// Package config manages user preferences stored in
// ~/.config/stackpilot/config.toml. Config holds only local preferences
// (region, polling cadence, default capability); the provider is the source
// of truth for all stack state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPollIntervalMs is the event polling interval applied when the
// config file does not set one.
const DefaultPollIntervalMs = 5000

// Config holds user preferences from ~/.config/stackpilot/config.toml.
// All fields use flat snake_case TOML keys.
type Config struct {
	Region         string `mapstructure:"region"           toml:"region"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms" toml:"poll_interval_ms"`
	Capability     string `mapstructure:"capability"       toml:"capability"`
	NoWait         bool   `mapstructure:"no_wait"          toml:"no_wait"`
}

// validator is a function that validates a string value for a config key.
type validator func(value string) error

// validators maps config keys to their validation functions.
var validators = map[string]validator{
	"region":           validateRegion,
	"poll_interval_ms": validatePollIntervalMs,
	"capability":       validateCapability,
	"no_wait":          validateNoWait,
}

// ValidKeys returns the sorted list of valid config key names.
func ValidKeys() []string {
	keys := make([]string, 0, len(validators))
	for k := range validators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultConfigDir returns the default config directory path
// (~/.config/stackpilot). If STACKPILOT_CONFIG_DIR is set, that value is
// used instead.
func DefaultConfigDir() string {
	if dir := os.Getenv("STACKPILOT_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "stackpilot")
	}
	return filepath.Join(home, ".config", "stackpilot")
}

// Load reads the config file from configDir/config.toml and returns a
// Config with defaults applied for any missing keys. A missing file is not
// an error; all defaults are returned.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("region", "")
	v.SetDefault("poll_interval_ms", DefaultPollIntervalMs)
	v.SetDefault("capability", "CAPABILITY_IAM")
	v.SetDefault("no_wait", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to configDir/config.toml, creating the directory
// if it does not exist.
func Save(cfg *Config, configDir string) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.Set("region", cfg.Region)
	v.Set("poll_interval_ms", cfg.PollIntervalMs)
	v.Set("capability", cfg.Capability)
	v.Set("no_wait", cfg.NoWait)

	path := filepath.Join(configDir, "config.toml")
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Set validates and applies a single key-value pair to the config.
// Returns an error if the key is unknown or the value fails validation.
func (c *Config) Set(key, value string) error {
	validate, ok := validators[key]
	if !ok {
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys(), ", "))
	}

	if err := validate(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	switch key {
	case "region":
		c.Region = value
	case "poll_interval_ms":
		n, _ := strconv.Atoi(value) // already validated
		c.PollIntervalMs = n
	case "capability":
		c.Capability = value
	case "no_wait":
		c.NoWait = value == "true"
	}

	return nil
}

// regionPattern matches valid AWS region formats like us-west-2, eu-central-1.
var regionPattern = regexp.MustCompile(`^[a-z]{2}-[a-z]+-\d+$`)

func validateRegion(value string) error {
	if value == "" {
		return nil // empty clears the region
	}
	if !regionPattern.MatchString(value) {
		return fmt.Errorf("%q does not match AWS region format (e.g., us-west-2)", value)
	}
	return nil
}

func validatePollIntervalMs(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%q is not a valid integer", value)
	}
	if n < 500 {
		return fmt.Errorf("must be >= 500 (got %d)", n)
	}
	return nil
}

// validCapabilities are the capability tokens CloudFormation accepts.
var validCapabilities = map[string]bool{
	"":                       true, // empty clears back to the default
	"CAPABILITY_IAM":         true,
	"CAPABILITY_NAMED_IAM":   true,
	"CAPABILITY_AUTO_EXPAND": true,
}

func validateCapability(value string) error {
	if !validCapabilities[value] {
		return fmt.Errorf("%q is not a CloudFormation capability (use CAPABILITY_IAM, CAPABILITY_NAMED_IAM, or CAPABILITY_AUTO_EXPAND)", value)
	}
	return nil
}

func validateNoWait(value string) error {
	if value != "true" && value != "false" {
		return fmt.Errorf("%q is not a valid boolean (use true or false)", value)
	}
	return nil
}
