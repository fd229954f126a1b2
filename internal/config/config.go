package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// GetDSN returns a lib/pq keyword/value connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig configures the optional activity bridge.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Config is the memberhub process configuration.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	DBEnabled    bool           `yaml:"db_enabled"`
	Database     DatabaseConfig `yaml:"database"`
	RedisEnabled bool           `yaml:"redis_enabled"`
	Redis        RedisConfig    `yaml:"redis"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Session struct {
		TTLHours   int    `yaml:"ttl_hours"`
		CookieName string `yaml:"cookie_name"`
	} `yaml:"session"`
	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Webhook struct {
		URL    string `yaml:"url"`
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`
	MQTT MQTTConfig `yaml:"mqtt"`
	Jobs struct {
		Enabled           bool `yaml:"enabled"`
		ReminderLeadHours int  `yaml:"reminder_lead_hours"`
	} `yaml:"jobs"`
	Seed struct {
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"seed"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"

	// DB on by default; serve falls back to memory repositories when unreachable.
	cfg.DBEnabled = true
	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "memberhub",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}

	cfg.RedisEnabled = true
	cfg.Redis.Addr = "localhost:6379"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.Session.TTLHours = 24 * 7
	cfg.Session.CookieName = "memberhub_session"
	cfg.Cache.TTLSeconds = 60

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "memberhub"
	cfg.MQTT.TopicPrefix = "memberhub/activity"

	cfg.Jobs.ReminderLeadHours = 24
	return cfg
}

// Load reads .env (if present), then the YAML file named by MEMBERHUB_CONFIG
// (if set), then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("MEMBERHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)

	c.DBEnabled = parseBool(getEnv("DB_ENABLED", ""), c.DBEnabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = parseInt(getEnv("DB_PORT", ""), c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", ""), c.Database.MaxConns)

	c.RedisEnabled = parseBool(getEnv("REDIS_ENABLED", ""), c.RedisEnabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = parseInt(getEnv("REDIS_DB", ""), c.Redis.DB)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Session.TTLHours = parseInt(getEnv("SESSION_TTL_HOURS", ""), c.Session.TTLHours)
	c.Session.CookieName = getEnv("SESSION_COOKIE", c.Session.CookieName)
	c.Cache.TTLSeconds = parseInt(getEnv("CACHE_TTL_SECONDS", ""), c.Cache.TTLSeconds)

	c.Webhook.URL = getEnv("WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = getEnv("WEBHOOK_SECRET", c.Webhook.Secret)

	c.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", ""), c.MQTT.Enabled)
	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)

	c.Jobs.Enabled = parseBool(getEnv("JOBS_ENABLED", ""), c.Jobs.Enabled)
	c.Jobs.ReminderLeadHours = parseInt(getEnv("REMINDER_LEAD_HOURS", ""), c.Jobs.ReminderLeadHours)

	c.Seed.AdminEmail = getEnv("SEED_ADMIN_EMAIL", c.Seed.AdminEmail)
	c.Seed.AdminPassword = getEnv("SEED_ADMIN_PASSWORD", c.Seed.AdminPassword)
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http addr is required")
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("session ttl must be positive, got %d", c.Session.TTLHours)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Jobs.ReminderLeadHours < 0 {
		return fmt.Errorf("reminder lead hours must not be negative")
	}
	if c.Seed.AdminEmail != "" && len(c.Seed.AdminPassword) < 8 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters when SEED_ADMIN_EMAIL is set")
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.Jobs.ReminderLeadHours) * time.Hour
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
