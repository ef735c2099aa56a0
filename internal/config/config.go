package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Discord   DiscordConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	CoinGecko CoinGeckoConfig
	Pager     PagerConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DiscordConfig holds the bot credentials and command prefix
type DiscordConfig struct {
	Token  string
	Prefix string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	PositionsTopic string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	QuoteTTL time.Duration
}

// CoinGeckoConfig holds price service configuration
type CoinGeckoConfig struct {
	BaseURL     string
	Timeout     time.Duration
	AliasesFile string
}

// PagerConfig holds position pager configuration
type PagerConfig struct {
	IdleTimeout time.Duration
}

// SchedulerConfig holds cron specs for background jobs
type SchedulerConfig struct {
	AliasRefreshSpec string
}

// LogConfig selects the slog handler
type LogConfig struct {
	Format string
	Level  slog.Level
}

// Load reads configuration from a .env file (when present) and environment variables
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Discord: DiscordConfig{
			Token:  getEnv("DISCORD_BOT_TOKEN", ""),
			Prefix: getEnv("COMMAND_PREFIX", "!"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "postgres"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "flexbot"),
			Password:       getEnv("DB_PASSWORD", "flexbot"),
			DBName:         getEnv("DB_NAME", "flexbot"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "file://./db/migrations"),
		},
		Kafka: KafkaConfig{
			Enabled:        getBool("KAFKA_ENABLED", false),
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			PositionsTopic: getEnv("KAFKA_POSITIONS_TOPIC", "flexbot.positions"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			QuoteTTL: getDuration("REDIS_QUOTE_TTL", 30*time.Second),
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL:     getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			Timeout:     getDuration("COINGECKO_TIMEOUT", 10*time.Second),
			AliasesFile: getEnv("COINGECKO_ALIASES_FILE", ""),
		},
		Pager: PagerConfig{
			IdleTimeout: getDuration("PAGER_IDLE_TIMEOUT", 120*time.Second),
		},
		Scheduler: SchedulerConfig{
			AliasRefreshSpec: getEnv("ALIAS_REFRESH_CRON", "0 0 4 * * *"),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "text"),
			Level:  parseLevel(getEnv("LOG_LEVEL", "info")),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

// AliasFile is the TOML layout of the pinned alias overrides, e.g.
//
//	[aliases]
//	eth = "ethereum"
type AliasFile struct {
	Aliases map[string]string `toml:"aliases"`
}

// LoadAliases reads pinned search-term to coin id overrides from a TOML file.
// An empty path yields no overrides.
func LoadAliases(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	var f AliasFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode aliases file %s: %w", path, err)
	}
	out := make(map[string]string, len(f.Aliases))
	for term, id := range f.Aliases {
		out[strings.ToLower(strings.TrimSpace(term))] = strings.TrimSpace(id)
	}
	return out, nil
}

// NewLogger builds the process logger
func NewLogger(cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
