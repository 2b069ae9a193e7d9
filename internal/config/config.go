package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Andrei-Barwood/secretgate/internal/filter"
	"github.com/Andrei-Barwood/secretgate/internal/scanner"
)

const (
	EnvPrefix = "SECRETGATE"
	FileName  = ".secretgate"
)

// Keys shared by the config file, SECRETGATE_* variables and CLI overrides.
const (
	KeyWhitelist      = "whitelist"
	KeyRequire        = "require"
	KeyFormat         = "format"
	KeyLogLevel       = "log-level"
	KeyScannerCommand = "scanner.command"
	KeyScannerDir     = "scanner.dir"
	KeyScannerTimeout = "scanner.timeout"
)

type Scanner struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

type Config struct {
	Whitelist []string
	Require   []string
	Format    string
	LogLevel  string
	Scanner   Scanner
	// File is the config file that was read, empty when none was found.
	File string
}

type LoadOptions struct {
	// File is an explicit config file; it must exist.
	File string
	// SearchPaths are probed for .secretgate.{yaml,yml,json,toml} when File is empty.
	SearchPaths []string
	// Overrides take precedence over the file and the environment.
	Overrides map[string]any
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetDefault(KeyWhitelist, filter.DefaultWhitelist.Entries())
	v.SetDefault(KeyRequire, filter.DefaultRequired)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyScannerCommand, scanner.DefaultCommand)
	v.SetDefault(KeyScannerDir, ".")
	v.SetDefault(KeyScannerTimeout, scanner.DefaultTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else if len(opts.SearchPaths) > 0 {
		v.SetConfigName(FileName)
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	cfg := Config{
		Whitelist: stringList(v.Get(KeyWhitelist)),
		Require:   stringList(v.Get(KeyRequire)),
		Format:    v.GetString(KeyFormat),
		LogLevel:  v.GetString(KeyLogLevel),
		Scanner: Scanner{
			Command: commandList(v.Get(KeyScannerCommand)),
			Dir:     v.GetString(KeyScannerDir),
			Timeout: v.GetDuration(KeyScannerTimeout),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Scanner.Command) == 0 {
		return errors.New("scanner.command must not be empty")
	}
	if c.Scanner.Timeout <= 0 {
		return fmt.Errorf("scanner.timeout must be positive, got %s", c.Scanner.Timeout)
	}
	return nil
}

// stringList accepts YAML lists as well as comma separated strings, the form
// lists take in environment variables.
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case nil:
		return []string{}
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// commandList splits a command given as a single string on whitespace.
func commandList(raw any) []string {
	if s, ok := raw.(string); ok {
		return strings.Fields(s)
	}
	return stringList(raw)
}
