// Package config implements the simulator's flat key/value
// configuration surface (spec.md §6): a string-keyed option map with
// documented defaults, loaded from TOML (github.com/BurntSushi/toml,
// the format and library the teacher's ecosystem favors for simple
// flat configuration) and read back through typed accessors.
package config

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is a flat option map with typed accessors, mirroring the
// original source's Config::options/defaults split: Defaults() supplies
// a value whenever the loaded file (or caller) did not set one.
type Config struct {
	options map[string]string
}

// New builds a Config over opts, falling back to Defaults() for any key
// not present.
func New(opts map[string]string) *Config {
	if opts == nil {
		opts = map[string]string{}
	}
	return &Config{options: opts}
}

// Load reads a TOML file into a Config. Every top-level key must be a
// scalar (string, integer, float, or bool); nested tables are rejected,
// keeping the surface flat per spec.md §6.
func Load(path string) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	opts := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			opts[k] = t
		case bool:
			opts[k] = strconv.FormatBool(t)
		case int64:
			opts[k] = strconv.FormatInt(t, 10)
		case float64:
			opts[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("config: key %q has an unsupported (non-scalar) TOML type %T", k, v)
		}
	}
	return New(opts), nil
}

// Set overrides a single option (used by cmd/smdsim for --set flags).
func (c *Config) Set(key, value string) { c.options[key] = value }

func (c *Config) raw(key string) string {
	if v, ok := c.options[key]; ok {
		return v
	}
	return Defaults()[key]
}

// GetString returns key's value, or its default if unset.
func (c *Config) GetString(key string) string { return c.raw(key) }

// GetBool parses key's value as a bool.
func (c *Config) GetBool(key string) bool {
	v, _ := strconv.ParseBool(c.raw(key))
	return v
}

// GetInt parses key's value as an int.
func (c *Config) GetInt(key string) int {
	v, _ := strconv.ParseInt(c.raw(key), 10, 64)
	return int(v)
}

// GetUint parses key's value as a uint64.
func (c *Config) GetUint(key string) uint64 {
	v, _ := strconv.ParseUint(c.raw(key), 10, 64)
	return v
}

// GetFloat parses key's value as a float64.
func (c *Config) GetFloat(key string) float64 {
	v, _ := strconv.ParseFloat(c.raw(key), 64)
	return v
}
