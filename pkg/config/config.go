// Package config provides configuration management for fx-sync.
// It loads configuration from an optional YAML file, environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no config file is given explicitly. It is optional.
const DefaultConfigFile = "fx-sync.yaml"

// Config represents the application configuration.
type Config struct {
	YNAB                    YNABConfig              `yaml:"ynab"`
	CurrencyConverter       CurrencyConverterConfig `yaml:"currency_converter"`
	DatabaseFile            string                  `yaml:"database_file"`
	AutoApproveTransactions bool                    `yaml:"auto_approve_transactions"`
	AutoApproveAdjustments  bool                    `yaml:"auto_approve_adjustments"`
	HTTPTimeout             time.Duration           `yaml:"http_timeout"`
	Debug                   bool                    `yaml:"-"`
}

// YNABConfig represents YNAB API configuration.
type YNABConfig struct {
	AccessToken               string `yaml:"-"`
	BudgetID                  string `yaml:"budget_id"`
	APIURL                    string `yaml:"api_url"`
	MaxTransactionsPerRequest int    `yaml:"max_transactions_per_request"`
}

// CurrencyConverterConfig represents exchange rate provider configuration.
type CurrencyConverterConfig struct {
	APIKey             string `yaml:"-"`
	BaseURL            string `yaml:"base_url"`
	MaxPairsPerRequest int    `yaml:"max_pairs_per_request"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		YNAB: YNABConfig{
			APIURL:                    "https://api.ynab.com/v1",
			MaxTransactionsPerRequest: 100,
		},
		CurrencyConverter: CurrencyConverterConfig{
			BaseURL:            "https://free.currconv.com",
			MaxPairsPerRequest: 2,
		},
		DatabaseFile: defaultDatabaseFile(),
		HTTPTimeout:  30 * time.Second,
	}
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	return LoadWithFile("", envPath...)
}

// LoadWithFile is like Load but first applies the YAML file at configFile.
// An empty configFile means DefaultConfigFile, which may be absent.
func LoadWithFile(configFile string, envPath ...string) (*Config, error) {
	config := Default()

	if err := config.applyFile(configFile); err != nil {
		return nil, err
	}

	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyFile(configFile string) error {
	optional := configFile == ""
	if optional {
		configFile = DefaultConfigFile
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.YNAB.AccessToken = os.Getenv("YNAB_ACCESS_TOKEN")
	c.YNAB.BudgetID = getEnvOrDefault("YNAB_BUDGET_ID", c.YNAB.BudgetID)
	c.YNAB.APIURL = getEnvOrDefault("YNAB_API_URL", c.YNAB.APIURL)
	c.CurrencyConverter.APIKey = os.Getenv("CURRENCY_CONVERTER_API_KEY")
	c.CurrencyConverter.BaseURL = getEnvOrDefault("CURRENCY_CONVERTER_API_BASE_URL", c.CurrencyConverter.BaseURL)
	c.DatabaseFile = getEnvOrDefault("FX_SYNC_DATABASE_FILE", c.DatabaseFile)
	c.Debug = os.Getenv("DEBUG") == "true"

	var err error
	if c.YNAB.MaxTransactionsPerRequest, err = parseIntEnv("YNAB_MAX_TRANSACTIONS_PER_REQUEST", c.YNAB.MaxTransactionsPerRequest); err != nil {
		return err
	}
	if c.CurrencyConverter.MaxPairsPerRequest, err = parseIntEnv("CURRENCY_CONVERTER_API_MAX_CURRENCY_PAIRS_PER_REQUEST", c.CurrencyConverter.MaxPairsPerRequest); err != nil {
		return err
	}
	if c.AutoApproveTransactions, err = parseBoolEnv("FX_SYNC_AUTO_APPROVE_TRANSACTIONS", c.AutoApproveTransactions); err != nil {
		return err
	}
	if c.AutoApproveAdjustments, err = parseBoolEnv("FX_SYNC_AUTO_APPROVE_ADJUSTMENTS", c.AutoApproveAdjustments); err != nil {
		return err
	}
	if value := os.Getenv("FX_SYNC_HTTP_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for FX_SYNC_HTTP_TIMEOUT: %s", value)
		}
		c.HTTPTimeout = timeout
	}
	return nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "ynab":
			switch path[1] {
			case "accessToken":
				value = c.YNAB.AccessToken
			case "budgetId":
				value = c.YNAB.BudgetID
			case "apiUrl":
				value = c.YNAB.APIURL
			}
		case "currencyConverter":
			switch path[1] {
			case "apiKey":
				value = c.CurrencyConverter.APIKey
			case "baseUrl":
				value = c.CurrencyConverter.BaseURL
			}
		case "database":
			if path[1] == "file" {
				value = c.DatabaseFile
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	if c.YNAB.MaxTransactionsPerRequest <= 0 {
		return fmt.Errorf("ynab.max_transactions_per_request must be positive, got %d", c.YNAB.MaxTransactionsPerRequest)
	}
	if c.CurrencyConverter.MaxPairsPerRequest <= 0 {
		return fmt.Errorf("currency_converter.max_pairs_per_request must be positive, got %d", c.CurrencyConverter.MaxPairsPerRequest)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}

	return parsed, nil
}

// defaultDatabaseFile follows the XDG data directory convention.
func defaultDatabaseFile() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "fx-sync", "data.sqlite3")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "fx-sync", "data.sqlite3")
}
