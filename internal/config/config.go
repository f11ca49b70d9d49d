// Package config loads the service configuration from defaults, an optional
// YAML file, INVENTURA_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/erazemk/inventura/internal/importer"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// INVENTURA_HTTP_ADDR.
const EnvPrefix = "INVENTURA"

// Config is the complete service configuration.
type Config struct {
	DB      string             `mapstructure:"db"`
	LogFile string             `mapstructure:"log"`
	Admin   string             `mapstructure:"admin"`
	HTTP    HTTPConfig         `mapstructure:"http"`
	Auth    AuthConfig         `mapstructure:"auth"`
	Import  importer.ColumnMap `mapstructure:"import"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	Metrics           bool          `mapstructure:"metrics"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

// AuthConfig configures identity tokens.
type AuthConfig struct {
	TokenExpiry  time.Duration `mapstructure:"token_expiry"`
	UserCacheTTL time.Duration `mapstructure:"user_cache_ttl"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "inventura.sqlite3")
	v.SetDefault("log", "")
	v.SetDefault("admin", "Admin")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metrics", true)
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.idle_timeout", 120*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.max_upload_bytes", 10<<20)

	v.SetDefault("auth.token_expiry", 12*time.Hour)
	v.SetDefault("auth.user_cache_ttl", time.Minute)

	columns := importer.DefaultColumnMap()
	v.SetDefault("import.primary_key", columns.PrimaryKey)
	v.SetDefault("import.location_code", columns.LocationCode)
	v.SetDefault("import.room", columns.Room)
	v.SetDefault("import.description", columns.Description)
	v.SetDefault("import.temperature", columns.Temperature)
	v.SetDefault("import.expiry_date", columns.ExpiryDate)
}

// Load reads the configuration into a Config. If file is empty, an
// inventura.yaml in the working directory is used when present.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("inventura")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("config: db path is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr is required")
	}
	if len(c.Import.PrimaryKey) == 0 || len(c.Import.LocationCode) == 0 {
		return fmt.Errorf("config: import.primary_key and import.location_code need at least one header")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: http.max_upload_bytes must be positive")
	}
	return nil
}
