package config

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

const (
	UsageSourceDatabase = "database"
	UsageSourceS3       = "s3"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Redis    RedisConfig    `mapstructure:"Redis"`
	Quota    QuotaConfig    `mapstructure:"Quota"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port     string `mapstructure:"Port"`
	GRPCPort string `mapstructure:"GRPCPort"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

// RedisConfig is optional; an empty URL disables the quota cache.
type RedisConfig struct {
	URL      string `mapstructure:"URL"`
	Password string `mapstructure:"Password"`
	// DB overrides the database index in URL when not negative.
	DB int `mapstructure:"DB"`
}

type QuotaConfig struct {
	// DefaultStorage is a human readable size ("10GiB") applied when the
	// default feature row is missing.
	DefaultStorage        string        `mapstructure:"DefaultStorage"`
	DefaultFeature        string        `mapstructure:"DefaultFeature"`
	DefaultFeatureVersion int           `mapstructure:"DefaultFeatureVersion"`
	CacheTTL              time.Duration `mapstructure:"CacheTTL"`
	UsageSource           string        `mapstructure:"UsageSource"`
	S3ConfigPath          string        `mapstructure:"S3ConfigPath"`
}

type LogConfig struct {
	Level  string `mapstructure:"Level"`
	Format string `mapstructure:"Format"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Redis.DB", -1)
	v.SetDefault("Quota.DefaultStorage", "10GiB")
	v.SetDefault("Quota.DefaultFeature", "free_plan_v1")
	v.SetDefault("Quota.DefaultFeatureVersion", 1)
	v.SetDefault("Quota.CacheTTL", 5*time.Minute)
	v.SetDefault("Quota.UsageSource", UsageSourceDatabase)
	v.SetDefault("Quota.S3ConfigPath", ".s3.env")
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Format", "text")

	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.GRPCPort", "GRPC_PORT")
	v.BindEnv("Redis.URL", "REDIS_URL")
	v.BindEnv("Redis.Password", "REDIS_PASSWORD")
	v.BindEnv("Redis.DB", "REDIS_DB")
	v.BindEnv("Quota.DefaultStorage", "QUOTA_DEFAULT_STORAGE")
	v.BindEnv("Quota.DefaultFeature", "QUOTA_DEFAULT_FEATURE")
	v.BindEnv("Quota.DefaultFeatureVersion", "QUOTA_DEFAULT_FEATURE_VERSION")
	v.BindEnv("Quota.CacheTTL", "QUOTA_CACHE_TTL")
	v.BindEnv("Quota.UsageSource", "QUOTA_USAGE_SOURCE")
	v.BindEnv("Quota.S3ConfigPath", "QUOTA_S3_CONFIG_PATH")
	v.BindEnv("Log.Level", "LOG_LEVEL")
	v.BindEnv("Log.Format", "LOG_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" ||
		c.Database.Port == "" ||
		c.Database.User == "" ||
		c.Database.Password == "" ||
		c.Database.Name == "" {
		return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
	}

	if _, err := c.Quota.DefaultStorageBytes(); err != nil {
		return err
	}

	switch c.Quota.UsageSource {
	case UsageSourceDatabase, UsageSourceS3:
	default:
		return fmt.Errorf("unknown usage source %q", c.Quota.UsageSource)
	}

	return nil
}

// DefaultStorageBytes parses DefaultStorage with binary units, so "10GB" and
// "10GiB" are both 10*1024^3.
func (c *QuotaConfig) DefaultStorageBytes() (int64, error) {
	n, err := units.RAMInBytes(c.DefaultStorage)
	if err != nil {
		return 0, fmt.Errorf("invalid default storage quota %q: %w", c.DefaultStorage, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("default storage quota must be positive, got %q", c.DefaultStorage)
	}
	return n, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
