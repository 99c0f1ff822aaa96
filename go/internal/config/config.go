// Package config loads process settings from the environment and the game
// rules from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration.
type Config struct {
	Port             string
	NATSURL          string
	OperatorUsername string
	LogLevel         string
	LogFormat        string
	Game             GameConfig
}

// GameConfig holds the rules every new game is created with.
type GameConfig struct {
	Countries          []string      `yaml:"countries"`
	Products           []string      `yaml:"products"`
	DefaultTotalRounds int           `yaml:"default_total_rounds"`
	RoundDuration      time.Duration `yaml:"round_duration"`
	TimerTickInterval  time.Duration `yaml:"timer_tick_interval"`
	MaxMessageLength   int           `yaml:"max_message_length"`
}

// DefaultGameConfig returns the standard five-country setup.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		Countries:          []string{"USA", "China", "Germany", "Japan", "India"},
		Products:           []string{"Steel", "Grain", "Oil", "Electronics", "Textiles"},
		DefaultTotalRounds: 5,
		RoundDuration:      900 * time.Second,
		TimerTickInterval:  5 * time.Second,
		MaxMessageLength:   1000,
	}
}

// QuorumSize is the number of distinct online players needed to start.
func (g GameConfig) QuorumSize() int {
	return len(g.Countries)
}

// Validate checks the game rules are usable.
func (g GameConfig) Validate() error {
	if len(g.Countries) != 5 {
		return fmt.Errorf("exactly 5 countries are required, got %d", len(g.Countries))
	}
	if len(g.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}
	if err := unique("country", g.Countries); err != nil {
		return err
	}
	if err := unique("product", g.Products); err != nil {
		return err
	}
	if g.DefaultTotalRounds < 1 {
		return fmt.Errorf("default_total_rounds must be at least 1")
	}
	if g.RoundDuration <= 0 {
		return fmt.Errorf("round_duration must be positive")
	}
	if g.TimerTickInterval <= 0 {
		return fmt.Errorf("timer_tick_interval must be positive")
	}
	if g.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive")
	}
	return nil
}

func unique(kind string, values []string) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("empty %s name", kind)
		}
		if seen[v] {
			return fmt.Errorf("duplicate %s %q", kind, v)
		}
		seen[v] = true
	}
	return nil
}

// Load reads the environment and, when GAME_CONFIG is set, the YAML game rules.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		NATSURL:          os.Getenv("NATS_URL"),
		OperatorUsername: getEnv("OPERATOR_USERNAME", "operator"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		Game:             DefaultGameConfig(),
	}

	if path := os.Getenv("GAME_CONFIG"); path != "" {
		game, err := LoadGameConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Game = *game
	}

	if secs := getEnvInt("ROUND_DURATION_SEC", 0); secs > 0 {
		cfg.Game.RoundDuration = time.Duration(secs) * time.Second
	}

	if err := cfg.Game.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return cfg, nil
}

// LoadGameConfig reads a YAML file on top of the defaults.
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseGameConfig(data)
}

// ParseGameConfig decodes YAML on top of the defaults. Omitted keys keep their default.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	cfg := DefaultGameConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
