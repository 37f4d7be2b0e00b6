package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "ukcgt.yaml"

// Config holds the settings that may be given in a config file. Command line
// flags take precedence over these.
type Config struct {
	FullValues   bool   `yaml:"full_values"`
	CSVOutputDir string `yaml:"csv_output_dir"`
	XLSXOutput   string `yaml:"xlsx_output"`
	JSONOutput   string `yaml:"json_output"`
	TaxYear      string `yaml:"tax_year"`
	LogLevel     string `yaml:"log_level"`

	// Each formatted as SYM:quantity:totalCostGBP
	OpeningPools []string `yaml:"opening_pools"`
}

func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load reads the YAML config at path. A missing file is only an error if
// required is set; otherwise the defaults are returned.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("Error reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level '%s'", c.LogLevel)
	}
	return nil
}

// LoadEnv loads .env files into the environment if they exist, then applies
// the UKCGT_* overrides to c.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("Error loading %s: %w", f, err)
		}
	}
	if lvl := os.Getenv("UKCGT_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	if full := os.Getenv("UKCGT_FULL_VALUES"); full != "" {
		v, err := strconv.ParseBool(full)
		if err != nil {
			return fmt.Errorf("Invalid UKCGT_FULL_VALUES '%s': %w", full, err)
		}
		c.FullValues = v
	}
	return c.Validate()
}
