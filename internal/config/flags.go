package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile   = "/usr/local/etc/hydro.yaml"
	DefaultFallbackFile = "/etc/hydro/hydro.yaml"
	DefaultEnvFile      = "/etc/default/hydro-controller"
)

// Flags are the command-line settings that locate and tune the config.
type Flags struct {
	ConfigFile   string
	FallbackFile string
	EnvFile      string
	LogLevel     string
}

// ParseFlags reads args, then fills any flag not given explicitly from the env file
// and the HYDRO_* environment variables.
func ParseFlags(name string, args []string) (Flags, error) {
	var f Flags
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.StringVar(&f.ConfigFile, "config", DefaultConfigFile, "Path to controller config file")
	fset.StringVar(&f.FallbackFile, "config-fallback", DefaultFallbackFile, "Config file used when the primary cannot be loaded")
	fset.StringVar(&f.EnvFile, "env-file", DefaultEnvFile, "Optional environment file with HYDRO_* overrides")
	fset.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	if err := fset.Parse(args); err != nil {
		return f, err
	}

	if f.EnvFile != "" {
		if err := godotenv.Load(f.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return f, err
		}
	}

	set := map[string]bool{}
	fset.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	override := func(flagName, envName string, dst *string) {
		if set[flagName] {
			return
		}
		if v, ok := os.LookupEnv(envName); ok && v != "" {
			*dst = v
		}
	}
	override("config", "HYDRO_CONFIG", &f.ConfigFile)
	override("config-fallback", "HYDRO_CONFIG_FALLBACK", &f.FallbackFile)
	override("log-level", "HYDRO_LOG_LEVEL", &f.LogLevel)

	return f, nil
}

// Load parses flags and loads the config they point at.
func Load(name string, args []string) (*Config, error) {
	f, err := ParseFlags(name, args)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFiles(f.ConfigFile, f.FallbackFile)
	if err != nil {
		return nil, err
	}
	if f.LogLevel != "" {
		cfg.LogLevelName = f.LogLevel
		cfg.LogLevel = ParseLogLevel(f.LogLevel)
	}
	return cfg, nil
}
