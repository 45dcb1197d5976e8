package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/twmangle"
	"github.com/yacobolo/twmangle/internal/logging"
	"github.com/yacobolo/twmangle/internal/report"
)

var k = koanf.New(".")

// defaultPaths are the inputs rewritten when neither args nor config name any.
var defaultPaths = []string{"**/*.{html,htm,css,js,mjs,cjs,vue}"}

// flagKeys maps CLI flags onto their config file keys. Flags not listed use
// their own name as the key.
var flagKeys = map[string]string{
	"candidates-css":  "candidates.css",
	"candidates-file": "candidates.file",
	"paths":           "rewrite.paths",
	"out-dir":         "rewrite.out-dir",
	"workers":         "rewrite.workers",
	"ignore-scoped":   "rewrite.ignore-scoped",
	"emit":            "rewrite.emit",
	"inline":          "rewrite.inline",
	"ignore-marker":   "rewrite.ignore-marker",
	"ignore-tag":      "rewrite.ignore-tag",
	"scope-marker":    "rewrite.scope-marker",
	"map-out":         "map.out",
	"map-in":          "map.in",
	"map-format":      "map.format",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"debounce":        "watch.debounce",
}

func configKey(flagName string) string {
	if key, ok := flagKeys[flagName]; ok {
		return key
	}
	return flagName
}

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	// Resolve config file path from flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".twmangle.yaml"
	}

	// Load config file and env vars
	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags (highest precedence). Unchanged flags only fill keys
	// nothing else has set.
	fs := cmd.Flags()
	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		return configKey(f.Name), posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2. Environment variables (TWMANGLE_* prefix)
	if err := k.Load(env.Provider("TWMANGLE_", ".", func(s string) string {
		// TWMANGLE_PREFIX -> prefix
		// TWMANGLE_MAP_OUT -> map.out
		// TWMANGLE_LOG_LEVEL -> log.level
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "TWMANGLE_")),
			"_", ".",
		)
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// runConfig is everything one rewrite run needs, resolved from koanf state.
type runConfig struct {
	Build         twmangle.Options
	CandidateCSS  []string
	CandidateFile string
	Paths         []string
	OutDir        string
	Workers       int
	MapOut        string
	MapIn         string
	MapFormat     report.Format
	Verbose       bool
	Quiet         bool
	Color         string
	Output        report.OutputFormat
	LogLevel      logging.LogLevel
	LogFormat     string
}

// buildRunConfig constructs the run configuration. Positional args replace
// the configured input paths.
func buildRunConfig(args []string) (runConfig, error) {
	emit, err := twmangle.ParseEmitMode(getStringWithFallback("rewrite.emit", "splice"))
	if err != nil {
		return runConfig{}, err
	}
	level, err := logging.ParseLevel(getStringWithFallback("log.level", "warn"))
	if err != nil {
		return runConfig{}, err
	}

	cfg := runConfig{
		Build: twmangle.Options{
			Alphabet: k.String("alphabet"),
			Reserved: k.Strings("reserved"),
			Preserve: k.Strings("preserve"),
			Include:  k.Strings("include"),
			Exclude:  k.Strings("exclude"),
			Adapter: twmangle.AdapterOptions{
				IgnoreScoped:  getBoolWithFallback("rewrite.ignore-scoped", false),
				ScopeMarker:   k.String("rewrite.scope-marker"),
				RewriteInline: getBoolWithFallback("rewrite.inline", false),
				IgnoreMarker:  k.String("rewrite.ignore-marker"),
				IgnoreTag:     k.String("rewrite.ignore-tag"),
				Emit:          emit,
			},
		},
		CandidateCSS:  k.Strings("candidates.css"),
		CandidateFile: k.String("candidates.file"),
		Paths:         args,
		OutDir:        getStringWithFallback("rewrite.out-dir", "dist"),
		Workers:       getIntWithFallback("rewrite.workers", runtime.NumCPU()),
		MapOut:        k.String("map.out"),
		MapIn:         k.String("map.in"),
		Verbose:       getBoolWithFallback("verbose", false),
		Quiet:         getBoolWithFallback("quiet", false),
		Color:         getStringWithFallback("color", "auto"),
		Output:        report.DetermineOutputFormat(k.String("output")),
		LogLevel:      level,
		LogFormat:     getStringWithFallback("log.format", "text"),
	}

	// An explicit empty prefix disables it.
	if k.Exists("prefix") {
		prefix := k.String("prefix")
		cfg.Build.Prefix = &prefix
	}

	if len(cfg.Paths) == 0 {
		cfg.Paths = k.Strings("rewrite.paths")
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = defaultPaths
	}

	if format := k.String("map.format"); format != "" {
		if cfg.MapFormat, err = report.ParseFormat(format); err != nil {
			return runConfig{}, err
		}
	} else if cfg.MapOut != "" {
		cfg.MapFormat = report.FormatFromPath(cfg.MapOut)
	}

	return cfg, nil
}

// newLogger builds the process logger; quiet runs only log errors.
func newLogger(cfg runConfig, w io.Writer) logging.Logger {
	level := cfg.LogLevel
	if cfg.Quiet {
		level = logging.LevelError
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    w,
		Component: "twmangle",
	})
}

// getStringWithFallback returns the value at key, or the default when unset or empty.
func getStringWithFallback(key, defaultVal string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback returns the value at key, or the default when unset.
func getBoolWithFallback(key string, defaultVal bool) bool {
	if k.Exists(key) {
		return k.Bool(key)
	}
	return defaultVal
}

// getIntWithFallback returns the value at key, or the default when unset or not positive.
func getIntWithFallback(key string, defaultVal int) int {
	if v := k.Int(key); v > 0 {
		return v
	}
	return defaultVal
}
