package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/foguetinho/go/internal/dbconfig"
	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/ledger"
	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/outbox"
	"github.com/mcdev12/foguetinho/go/internal/users"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Game struct {
		Mode             models.Mode   `yaml:"mode"`
		TickInterval     time.Duration `yaml:"tick_interval"`
		RoundDuration    time.Duration `yaml:"round_duration"`
		NaturalDelay     time.Duration `yaml:"natural_delay"`
		ForcedDelay      time.Duration `yaml:"forced_delay"`
		NominalThreshold float64       `yaml:"nominal_threshold"`
	} `yaml:"game"`

	Users struct {
		InitialBalance int64 `yaml:"initial_balance"`
	} `yaml:"users"`

	Admin struct {
		User       string        `yaml:"user"`
		Password   string        `yaml:"password"`
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"admin"`

	Outbox struct {
		NATSURL      string        `yaml:"nats_url"`
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int           `yaml:"batch_size"`
		MaxRetries   int           `yaml:"max_retries"`
	} `yaml:"outbox"`

	Database dbconfig.Config `yaml:"-"`
}

func defaultConfig() *Config {
	gameCfg := game.DefaultConfig()
	outboxCfg := outbox.DefaultConfig()

	cfg := &Config{Port: "8080", LogLevel: "info"}
	cfg.Game.Mode = models.ModeAuto
	cfg.Game.TickInterval = gameCfg.TickInterval
	cfg.Game.RoundDuration = gameCfg.RoundDuration
	cfg.Game.NaturalDelay = gameCfg.NaturalDelay
	cfg.Game.ForcedDelay = gameCfg.ForcedDelay
	cfg.Game.NominalThreshold = gameCfg.NominalThreshold
	cfg.Users.InitialBalance = users.DefaultInitialBalance
	cfg.Outbox.PollInterval = outboxCfg.PollInterval
	cfg.Outbox.BatchSize = outboxCfg.BatchSize
	cfg.Outbox.MaxRetries = outboxCfg.MaxRetries
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path, if any, then applies environment
// overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Port = getEnv("PORT", config.Port)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.Game.Mode = models.Mode(getEnv("GAME_MODE", string(config.Game.Mode)))
	config.Users.InitialBalance = int64(getEnvAsInt("INITIAL_BALANCE", int(config.Users.InitialBalance)))
	config.Admin.User = getEnv("ADMIN_USER", config.Admin.User)
	config.Admin.Password = getEnv("ADMIN_PASSWORD", config.Admin.Password)
	config.Outbox.NATSURL = getEnv("NATS_URL", config.Outbox.NATSURL)
	config.Database = dbconfig.NewConfigFromEnv()

	if !config.Game.Mode.Valid() {
		return nil, fmt.Errorf("invalid game mode %q", config.Game.Mode)
	}
	if config.Users.InitialBalance < 0 || config.Users.InitialBalance > ledger.MaxBalance {
		return nil, fmt.Errorf("initial balance %d out of range", config.Users.InitialBalance)
	}
	return config, nil
}

func (c *Config) gameConfig() game.Config {
	return game.Config{
		TickInterval:     c.Game.TickInterval,
		RoundDuration:    c.Game.RoundDuration,
		NaturalDelay:     c.Game.NaturalDelay,
		ForcedDelay:      c.Game.ForcedDelay,
		NominalThreshold: c.Game.NominalThreshold,
	}
}

func (c *Config) outboxConfig() outbox.Config {
	cfg := outbox.DefaultConfig()
	cfg.PollInterval = c.Outbox.PollInterval
	cfg.BatchSize = c.Outbox.BatchSize
	cfg.MaxRetries = c.Outbox.MaxRetries
	return cfg
}
