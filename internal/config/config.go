package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "AGRIAPP"

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Subpath       string `mapstructure:"subpath"`
	Mode          string `mapstructure:"mode"`
	JWTSecret     string `mapstructure:"jwtSecret"`
	TokenTTLHours int    `mapstructure:"tokenTtlHours"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"logMode"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	OnlineMinutes int    `mapstructure:"onlineMinutes"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcryptCost"`
}

type UsersConfig struct {
	DefaultPageSize int `mapstructure:"defaultPageSize"`
	MaxPageSize     int `mapstructure:"maxPageSize"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Users    UsersConfig    `mapstructure:"users"`
	Log      LogConfig      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.subpath", "/api")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.jwtSecret", "")
	v.SetDefault("server.tokenTtlHours", 24)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.logMode", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.onlineMinutes", 30)
	v.SetDefault("security.bcryptCost", 10)
	v.SetDefault("users.defaultPageSize", 50)
	v.SetDefault("users.maxPageSize", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads the JSON config at path. Any key can be overridden from
// the environment, e.g. AGRIAPP_SERVER_JWTSECRET or AGRIAPP_DATABASE_DSN.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate performs the minimal checks the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return errors.New("jwtSecret must be set in config")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}
	if c.Server.Subpath != "" && (!strings.HasPrefix(c.Server.Subpath, "/") || strings.HasSuffix(c.Server.Subpath, "/")) {
		return fmt.Errorf("subpath %q must start with '/' and have no trailing slash", c.Server.Subpath)
	}
	if c.Users.DefaultPageSize <= 0 || c.Users.MaxPageSize < c.Users.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.Users.DefaultPageSize, c.Users.MaxPageSize)
	}
	return nil
}
