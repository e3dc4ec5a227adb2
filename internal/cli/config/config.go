// Package config loads CLI configuration with koanf. Precedence, highest to
// lowest: flags > environment variables (ROWBRIDGE_) > rowbridge.yaml >
// defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the user-facing conversion options.
type Config struct {
	PreserveTypes bool   `koanf:"preserve_types"`
	CSVDelimiter  string `koanf:"csv_delimiter"`
	JSONIndent    int    `koanf:"json_indent"`
	Overwrite     bool   `koanf:"overwrite"`
	BatchSize     int    `koanf:"batch_size"`
	FlattenPaths  bool   `koanf:"flatten_paths"`
	SheetName     string `koanf:"sheet_name"`
	Verbose       bool   `koanf:"verbose"`
}

// Defaults.
const (
	DefaultDelimiter = ","
	DefaultIndent    = 2
	DefaultBatchSize = 5
	DefaultSheetName = "Sheet1"
)

// configFileUsed tracks which config file was loaded, for verbose output.
var configFileUsed string

// findConfigFile returns the config file to use: the explicit path if given,
// otherwise the first of rowbridge.yaml / rowbridge.yml that exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"rowbridge.yaml", "rowbridge.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration from defaults, config file, environment, and
// the given flag set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"preserve_types": true,
		"csv_delimiter":  DefaultDelimiter,
		"json_indent":    DefaultIndent,
		"overwrite":      false,
		"batch_size":     DefaultBatchSize,
		"flatten_paths":  false,
		"sheet_name":     DefaultSheetName,
		"verbose":        false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// ROWBRIDGE_JSON_INDENT -> json_indent
	if err := k.Load(env.Provider("ROWBRIDGE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ROWBRIDGE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// The CLI spells the delimiter flag --delimiter for brevity; the
			// config key stays csv_delimiter.
			if key == "delimiter" {
				key = "csv_delimiter"
			}
			if key == "indent" {
				key = "json_indent"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("csv_delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if c.JSONIndent < 0 {
		return fmt.Errorf("json_indent must be >= 0, got %d", c.JSONIndent)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	return nil
}

// Delimiter returns the delimiter as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// FileUsed returns the path of the config file that was loaded, if any.
func FileUsed() string {
	return configFileUsed
}
