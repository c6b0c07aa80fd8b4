package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from defaults, an optional
// YAML file, and TASKHIVE_* environment variables, in that precedence order.
type Config struct {
	Host                string            `yaml:"host"`
	Port                int               `yaml:"port"`
	DBPath              string            `yaml:"db_path"`
	Debug               bool              `yaml:"debug"`
	SchedulerBuffer     int               `yaml:"scheduler_buffer"`
	ReminderPollSeconds int               `yaml:"reminder_poll_seconds"`
	AuthTokens          map[string]string `yaml:"auth_tokens"` // token -> user id
}

func Default() Config {
	return Config{
		Host:                "127.0.0.1",
		Port:                8080,
		DBPath:              "taskhive.db",
		SchedulerBuffer:     64,
		ReminderPollSeconds: 30,
		AuthTokens:          map[string]string{},
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg = FromEnv(cfg)
	if cfg.AuthTokens == nil {
		cfg.AuthTokens = map[string]string{}
	}
	return cfg, cfg.Validate()
}

func FromEnv(base Config) Config {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("TASKHIVE_HOST")); v != "" {
		cfg.Host = v
	}
	if v, ok := getEnvInt("TASKHIVE_PORT"); ok && v > 0 {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKHIVE_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v, ok := getEnvBool("TASKHIVE_DEBUG"); ok {
		cfg.Debug = v
	}
	if v, ok := getEnvInt("TASKHIVE_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvInt("TASKHIVE_REMINDER_POLL_SECONDS"); ok && v > 0 {
		cfg.ReminderPollSeconds = v
	}
	// TASKHIVE_AUTH_TOKENS=token1:alice,token2:bob
	if v := strings.TrimSpace(os.Getenv("TASKHIVE_AUTH_TOKENS")); v != "" {
		tokens := map[string]string{}
		for _, pair := range strings.Split(v, ",") {
			token, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if !ok || token == "" || user == "" {
				continue
			}
			tokens[token] = user
		}
		cfg.AuthTokens = tokens
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.SchedulerBuffer <= 0 {
		return fmt.Errorf("config: scheduler_buffer must be positive")
	}
	if c.ReminderPollSeconds <= 0 {
		return fmt.Errorf("config: reminder_poll_seconds must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
