package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string           `yaml:"app_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Database    DatabaseConfig   `yaml:"database"`
	Redis       RedisConfig      `yaml:"redis"`
	Auth        AuthConfig       `yaml:"auth"`
	Context     ContextConfig    `yaml:"context"`
	Logger      LoggerConfig     `yaml:"logger"`
	Migrations  MigrationsConfig `yaml:"migrations"`
	Monitor     MonitorConfig    `yaml:"monitor"`
}

type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	SSLMode         string        `yaml:"sslmode"`
}

// Driver reports which repository implementation the URL selects.
func (d DatabaseConfig) Driver() string {
	if strings.HasPrefix(d.URL, "sqlite://") || strings.HasPrefix(d.URL, "file:") {
		return "sqlite"
	}
	return "postgres"
}

// SQLitePath strips the scheme from a sqlite:// URL.
func (d DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(d.URL, "sqlite://")
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig describes the external identity provider.
type AuthConfig struct {
	Domain         string        `yaml:"domain"`
	Audience       string        `yaml:"audience"`
	Algorithms     []string      `yaml:"algorithms"`
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	CallbackURL    string        `yaml:"callback_url"`
	JWKSTimeout    time.Duration `yaml:"jwks_timeout"`
	// JWKSCache selects the key set cache store: memory, redis or bolt.
	JWKSCache      string        `yaml:"jwks_cache"`
	JWKSCacheTTL   time.Duration `yaml:"jwks_cache_ttl"`
	JWKSRefresh    time.Duration `yaml:"jwks_refresh"`
	JWKSBoltPath   string        `yaml:"jwks_bolt_path"`
	// JWKSMinRefresh is the minimum gap between two remote key set fetches.
	JWKSMinRefresh time.Duration `yaml:"jwks_min_refresh"`
}

// Issuer is the expected iss claim.
func (a AuthConfig) Issuer() string {
	return fmt.Sprintf("https://%s/", a.Domain)
}

// JWKSURL is the well-known key set location.
func (a AuthConfig) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", a.Domain)
}

type ContextConfig struct {
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type MigrationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE), then
// environment variables (optionally .env). Environment values win over the
// file, and defaults fill whatever neither sets.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	file := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	cfg := &Config{
		AppName:     getString("APP_NAME", or(file.AppName, "volunteers")),
		Environment: getString("APP_ENV", or(file.Environment, "development")),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", or(file.HTTP.Host, "0.0.0.0")),
			Port:         getString("SERVER_PORT", or(file.HTTP.Port, "8080")),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", orDuration(file.HTTP.ReadTimeout, 10*time.Second)),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", orDuration(file.HTTP.WriteTimeout, 10*time.Second)),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", orDuration(file.HTTP.IdleTimeout, 120*time.Second)),
		},
		Database: DatabaseConfig{
			URL:             getString("DATABASE_URL", file.Database.URL),
			Host:            getString("DB_HOST", or(file.Database.Host, "localhost")),
			Port:            getString("DB_PORT", or(file.Database.Port, "5432")),
			Name:            getString("DB_NAME", or(file.Database.Name, "volunteers")),
			User:            getString("DB_USER", or(file.Database.User, "volunteers")),
			Password:        getString("DB_PASSWORD", file.Database.Password),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", orInt(file.Database.MaxOpenConns, 25)),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", orInt(file.Database.MaxIdleConns, 5)),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", orDuration(file.Database.MaxConnLifetime, time.Hour)),
			SSLMode:         getString("DB_SSLMODE", or(file.Database.SSLMode, "disable")),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", or(file.Redis.URL, "redis://localhost:6379")),
			Password: getString("REDIS_PASSWORD", file.Redis.Password),
			DB:       getInt("REDIS_DB", file.Redis.DB),
		},
		Auth: AuthConfig{
			Domain:       getString("AUTH0_DOMAIN", file.Auth.Domain),
			Audience:     getString("API_AUDIENCE", file.Auth.Audience),
			Algorithms:   getList("ALGORITHMS", orList(file.Auth.Algorithms, []string{"RS256"})),
			ClientID:     getString("AUTH0_CLIENT_ID", file.Auth.ClientID),
			ClientSecret: getString("AUTH0_CLIENT_SECRET", file.Auth.ClientSecret),
			CallbackURL:  getString("AUTH0_CALLBACK_URL", file.Auth.CallbackURL),
			JWKSTimeout:  getDuration("AUTH_JWKS_TIMEOUT", orDuration(file.Auth.JWKSTimeout, 5*time.Second)),
			JWKSCache:    getString("AUTH_JWKS_CACHE", or(file.Auth.JWKSCache, "memory")),
			JWKSCacheTTL: getDuration("AUTH_JWKS_CACHE_TTL", orDuration(file.Auth.JWKSCacheTTL, 10*time.Minute)),
			JWKSRefresh:  getDuration("AUTH_JWKS_REFRESH", file.Auth.JWKSRefresh),
			JWKSBoltPath: getString("AUTH_JWKS_BOLT_PATH", or(file.Auth.JWKSBoltPath, "./data/jwks.db")),
			JWKSMinRefresh: getDuration("AUTH_JWKS_MIN_REFRESH",
				orDuration(file.Auth.JWKSMinRefresh, 30*time.Second)),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", orDuration(file.Context.RequestTimeout, 5*time.Second)),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", orDuration(file.Context.ShutdownTimeout, 15*time.Second)),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", or(file.Logger.Level, "info")),
			Encoding: getString("LOG_ENCODING", or(file.Logger.Encoding, "json")),
		},
		Migrations: MigrationsConfig{
			// A config file that sets a migrations path must enable them explicitly.
			Enabled: getBool("RUN_MIGRATIONS", file.Migrations.Enabled || file.Migrations.Path == ""),
			Path:    getString("MIGRATIONS_PATH", or(file.Migrations.Path, "./assets/migrations")),
		},
		Monitor: MonitorConfig{
			Interval: getDuration("MONITOR_INTERVAL", orDuration(file.Monitor.Interval, 10*time.Second)),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Domain == "" {
		errs = append(errs, errors.New("AUTH0_DOMAIN must not be empty"))
	}
	if c.Auth.Audience == "" {
		errs = append(errs, errors.New("API_AUDIENCE must not be empty"))
	}
	if len(c.Auth.Algorithms) == 0 {
		errs = append(errs, errors.New("ALGORITHMS must list at least one algorithm"))
	}
	switch c.Auth.JWKSCache {
	case "memory", "redis", "bolt":
	default:
		errs = append(errs, fmt.Errorf("AUTH_JWKS_CACHE %q must be memory, redis or bolt", c.Auth.JWKSCache))
	}
	return errors.Join(errs...)
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getList splits a comma separated value.
func getList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func or(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}

func orInt(val, fallback int) int {
	if val != 0 {
		return val
	}
	return fallback
}

func orDuration(val, fallback time.Duration) time.Duration {
	if val != 0 {
		return val
	}
	return fallback
}

func orList(val, fallback []string) []string {
	if len(val) > 0 {
		return val
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
