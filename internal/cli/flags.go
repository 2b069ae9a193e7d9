package cli

import (
	"flag"
	"strings"

	"github.com/Andrei-Barwood/secretgate/internal/config"
)

// stringList is a repeatable flag. Values may also be comma separated.
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s = append(*s, item)
		}
	}
	return nil
}

type gateFlags struct {
	configPath string
	outPath    string
	whitelist  stringList
	require    stringList
}

// flag name -> config key for flags that map onto config.
var flagKeys = map[string]string{
	"whitelist": config.KeyWhitelist,
	"require":   config.KeyRequire,
	"format":    config.KeyFormat,
	"log-level": config.KeyLogLevel,
	"dir":       config.KeyScannerDir,
	"timeout":   config.KeyScannerTimeout,
}

func newFlagSet(name string, streams Streams) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(streams.Err)
	return fs
}

func bindGateFlags(fs *flag.FlagSet) *gateFlags {
	gf := &gateFlags{}
	fs.StringVar(&gf.configPath, "config", "", "Config file (default: ./.secretgate.yaml when present)")
	fs.StringVar(&gf.outPath, "out", "", "Also save the rendered result to this path")
	fs.Var(&gf.whitelist, "whitelist", "Whitelisted path or glob, repeatable; replaces the configured whitelist")
	fs.Var(&gf.require, "require", "Path that must appear in the report, repeatable; replaces the configured list")
	fs.String("format", "text", "Output format: text|json|yaml|markdown|sarif")
	fs.String("log-level", "warn", "Log level for stderr diagnostics")
	return gf
}

// overrides returns config overrides for the flags given on the command line.
// Unset flags leave the config file and environment in charge.
func (gf *gateFlags) overrides(fs *flag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if list, isList := f.Value.(*stringList); isList {
			out[key] = []string(*list)
			return
		}
		out[key] = f.Value.String()
	})
	return out
}
