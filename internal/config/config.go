// Package config loads the generator configuration.
//
// Values are layered: built-in defaults, then the YAML file (modwire.yaml by default), then
// variables from a .env file, then MODWIRE_* environment variables. Command line flags are
// applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "modwire.yaml"

// Config is the generator configuration.
type Config struct {
	// Environment selects the logger flavour: "production" or "development".
	Environment string `yaml:"environment" validate:"oneof=production development"`
	LogLevel    string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Roots are the directories scanned for declaration files.
	Roots []string `yaml:"roots" validate:"min=1,dive,required"`
	// ArtifactDir holds the module artifacts of previous passes.
	ArtifactDir string `yaml:"artifactDir" validate:"required"`
	// ArtifactCache is the number of artifact surfaces kept in memory.
	ArtifactCache int `yaml:"artifactCache" validate:"gte=1"`
	// Workers bounds the number of generated files written concurrently.
	Workers int `yaml:"workers" validate:"gte=1"`
	// Suffix is appended to the declaration base name to name the generated file.
	Suffix string `yaml:"suffix" validate:"required"`

	// MetricsAddr is the listen address of the /metrics endpoint in watch mode; empty disables it.
	MetricsAddr string `yaml:"metricsAddr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment:   "development",
		LogLevel:      "info",
		Roots:         []string{"."},
		ArtifactDir:   ".modwire",
		ArtifactCache: 128,
		Workers:       4,
		Suffix:        "_modwire.go",
	}
}

var validate = validator.New()

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid configuration")

// Load builds the configuration from path (DefaultFile when empty), the .env file and the
// environment. A missing default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("MODWIRE_ENV", c.Environment)
	c.LogLevel = getEnv("MODWIRE_LOG_LEVEL", c.LogLevel)
	c.ArtifactDir = getEnv("MODWIRE_ARTIFACT_DIR", c.ArtifactDir)
	c.Suffix = getEnv("MODWIRE_SUFFIX", c.Suffix)
	c.MetricsAddr = getEnv("MODWIRE_METRICS_ADDR", c.MetricsAddr)
	c.ArtifactCache = getEnvInt("MODWIRE_ARTIFACT_CACHE", c.ArtifactCache)
	c.Workers = getEnvInt("MODWIRE_WORKERS", c.Workers)
	if v := os.Getenv("MODWIRE_ROOTS"); v != "" {
		var roots []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roots = append(roots, r)
			}
		}
		c.Roots = roots
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
