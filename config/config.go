package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/asset-worker/internal/httpserver"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DriverDir    = "dir"
	DriverOrigin = "origin"
	DriverS3     = "s3"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type AdminConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DirConfig struct {
	Root string `mapstructure:"root"`
}

type OriginConfig struct {
	URL              string `mapstructure:"url"`
	Timeout          string `mapstructure:"timeout"`
	HealthPath       string `mapstructure:"health_path"`
	HealthInterval   string `mapstructure:"health_interval"`
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	BreakerTimeout   string `mapstructure:"breaker_timeout"`
}

type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

type AssetsConfig struct {
	Driver string       `mapstructure:"driver"`
	Dir    DirConfig    `mapstructure:"dir"`
	Origin OriginConfig `mapstructure:"origin"`
	S3     S3Config     `mapstructure:"s3"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Logging LoggingConfig `mapstructure:"logging"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("admin.address", "127.0.0.1:9090")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", "")
	v.SetDefault("assets.driver", DriverDir)
	v.SetDefault("assets.dir.root", "./dist")
	v.SetDefault("assets.origin.url", "")
	v.SetDefault("assets.origin.timeout", "10s")
	v.SetDefault("assets.origin.health_path", "")
	v.SetDefault("assets.origin.health_interval", "5s")
	v.SetDefault("assets.origin.breaker_threshold", 5)
	v.SetDefault("assets.origin.breaker_timeout", "30s")
	v.SetDefault("assets.s3.bucket", "")
	v.SetDefault("assets.s3.region", "")
	v.SetDefault("assets.s3.prefix", "")
	v.SetDefault("metrics.buffer_size", 1000)
}

// Load reads config.yaml from the given directories, or from ./config and
// the working directory when none are given. A .env file in the working
// directory is loaded into the environment first; environment variables
// override file values (ASSETS_DRIVER overrides assets.driver).
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Admin),
		validation.Field(&c.Logging),
		validation.Field(&c.Assets),
		validation.Field(&c.Metrics),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&s.Address,
			validation.Required,
			validation.By(httpserver.ValidateAddress),
		),
		validation.Field(&s.ReadTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&s.WriteTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&s.IdleTimeout, validation.Required, validation.By(validateDuration)),
	)
}

func (a AdminConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address,
			validation.Required,
			validation.By(httpserver.ValidateAddress),
		),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&l.Format,
			validation.In("json", "text"),
		),
	)
}

func (a AssetsConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Driver,
			validation.Required,
			validation.In(DriverDir, DriverOrigin, DriverS3),
		),
		validation.Field(&a.Dir, validation.Skip.When(a.Driver != DriverDir)),
		validation.Field(&a.Origin, validation.Skip.When(a.Driver != DriverOrigin)),
		validation.Field(&a.S3, validation.Skip.When(a.Driver != DriverS3)),
	)
}

func (d DirConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Root, validation.Required),
	)
}

func (o OriginConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.URL, validation.Required, validation.By(validateOriginURL)),
		validation.Field(&o.Timeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&o.HealthPath, validation.By(validateAbsolutePath)),
		validation.Field(&o.HealthInterval, validation.When(o.HealthPath != "", validation.Required, validation.By(validateDuration))),
		validation.Field(&o.BreakerThreshold, validation.Required, validation.Min(1)),
		validation.Field(&o.BreakerTimeout, validation.Required, validation.By(validateDuration)),
	)
}

func (s S3Config) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Bucket, validation.Required),
		validation.Field(&s.Region, validation.Required),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.BufferSize, validation.Required, validation.Min(1)),
	)
}

// Duration parses one of the duration strings of the config. Values are
// validated on Load, so a parse failure here means the config was built by hand.
func Duration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	return d, nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateAbsolutePath(value interface{}) error {
	p, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if p != "" && !strings.HasPrefix(p, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}

	return nil
}

func validateOriginURL(value interface{}) error {
	originURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(originURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
