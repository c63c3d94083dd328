package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/charlesng35/inventra/internal/auth"
	"github.com/charlesng35/inventra/internal/database"
	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/internal/staticmap"
)

// Config represents the runtime configuration for the Inventra backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Maps          MapsConfig          `mapstructure:"maps"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	AuthRateLimit   RateLimitConfig `mapstructure:"auth_rate_limit"`
}

// RateLimitConfig bounds requests per client within a window. Zero disables it.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// MapsConfig configures the static map provider. Without an API key no map
// URLs are produced.
type MapsConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	Scale     int    `mapstructure:"scale"`
	MapType   string `mapstructure:"map_type"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

// NotificationsConfig holds defaults for new users and the retention job.
type NotificationsConfig struct {
	Defaults  NotificationDefaults `mapstructure:"defaults"`
	Retention RetentionConfig      `mapstructure:"retention"`
}

// NotificationDefaults seeds the thresholds of newly provisioned settings.
type NotificationDefaults struct {
	LowStockThreshold      int `mapstructure:"low_stock_threshold"`
	CriticalStockThreshold int `mapstructure:"critical_stock_threshold"`
}

// RetentionConfig controls purging of old read notifications.
type RetentionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ReadDays int    `mapstructure:"read_days"`
	Schedule string `mapstructure:"schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("INVENTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.auth_rate_limit.requests", 20)
	v.SetDefault("server.auth_rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/inventra.sqlite")

	v.SetDefault("auth.jwt.issuer", "inventra")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.base_url", staticmap.DefaultBaseURL)
	v.SetDefault("maps.width", 1024)
	v.SetDefault("maps.height", 640)
	v.SetDefault("maps.scale", 2)
	v.SetDefault("maps.map_type", "roadmap")
	v.SetDefault("maps.chunk_size", 80)

	v.SetDefault("notifications.defaults.low_stock_threshold", 10)
	v.SetDefault("notifications.defaults.critical_stock_threshold", 5)
	v.SetDefault("notifications.retention.enabled", false)
	v.SetDefault("notifications.retention.read_days", 30)
	v.SetDefault("notifications.retention.schedule", "@daily")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// DatabaseOptions translates the database section into driver options.
// Host based settings apply only when the matching block is enabled.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var host DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql", "mariadb":
		host = c.MySQL
	}
	if host.Enabled {
		cfg.Host = host.Host
		cfg.Port = host.Port
		cfg.Name = host.Database
		cfg.User = host.Username
		cfg.Password = host.Password
	}
	return cfg
}

// JWTConfig converts the JWT settings into the token service configuration.
func (c AuthConfig) JWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: c.JWT.TTL,
	}
}

// StaticMapConfig converts the maps section for the static map builder.
func (c MapsConfig) StaticMapConfig() staticmap.Config {
	return staticmap.Config{
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Width:     c.Width,
		Height:    c.Height,
		Scale:     c.Scale,
		MapType:   c.MapType,
		ChunkSize: c.ChunkSize,
	}
}

// SettingsDefaults converts the notification defaults for the settings service.
func (c NotificationsConfig) SettingsDefaults() services.SettingsDefaults {
	return services.SettingsDefaults{
		LowStockThreshold:      c.Defaults.LowStockThreshold,
		CriticalStockThreshold: c.Defaults.CriticalStockThreshold,
	}
}
