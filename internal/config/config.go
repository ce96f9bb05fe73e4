// Package config holds the rayvn CLI's tunables: the knobs a language
// toolchain needs (strict variable lookup, default output paths, log
// format), loadable from an optional rayvn.yaml project file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBytecodeExt is the file extension build emits and run/disasm
// expect for compiled chunks.
const DefaultBytecodeExt = ".rvnc"

// Config is the resolved set of toolchain options: CLI flags override
// a loaded file, which overrides these defaults.
type Config struct {
	// StrictVariables makes reading an unbound variable a runtime
	// error instead of silently yielding Int(0).
	StrictVariables bool `yaml:"strict_variables"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address for the duration of a run invocation.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the toolchain's built-in defaults.
func Default() Config {
	return Config{
		StrictVariables: false,
		LogFormat:       "text",
	}
}

// Load reads a YAML config file, falling back to Default for any
// field the file doesn't set. A missing file is not an error — it
// just means "use the defaults."
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
