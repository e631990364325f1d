package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/leaflens/leaflens-host/internal/credential"
)

type CacheConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type WeatherConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Interval       time.Duration `mapstructure:"interval"`
	LocateTimeout  time.Duration `mapstructure:"locate_timeout"`
	LocationMaxAge time.Duration `mapstructure:"location_max_age"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ChatConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PushConfig struct {
	VAPIDKey string `mapstructure:"vapid_key"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	TokenInfoURL string `mapstructure:"token_info_url"`
}

type StorageConfig struct {
	Driver         string `mapstructure:"driver"`
	Endpoint       string `mapstructure:"endpoint"`
	PublicEndpoint string `mapstructure:"public_endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Bucket         string `mapstructure:"bucket"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	PublicUseSSL   bool   `mapstructure:"public_use_ssl"`
}

type EmailConfig struct {
	From             string `mapstructure:"from"`
	ResendAPIKey     string `mapstructure:"resend_api_key"`
	SMTPHost         string `mapstructure:"smtp_host"`
	SMTPPort         int    `mapstructure:"smtp_port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	ResetURLTemplate string `mapstructure:"reset_url_template"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type ScanConfig struct {
	IdentifyLatency time.Duration `mapstructure:"identify_latency"`
}

type KeyringConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	FileDir      string `mapstructure:"file_dir"`
	FilePassword string `mapstructure:"file_password"`
}

type Config struct {
	ServerPort       string         `mapstructure:"server_port"`
	DatabaseURL      string         `mapstructure:"database_url"`
	JWTSecret        string         `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration  `mapstructure:"token_ttl"`
	PasswordResetTTL time.Duration  `mapstructure:"password_reset_ttl"`
	PublicURL        string         `mapstructure:"public_url"`
	AllowedOrigins   []string       `mapstructure:"allowed_origins"`
	LogLevel         string         `mapstructure:"log_level"`
	Cache            CacheConfig    `mapstructure:"cache"`
	Weather          WeatherConfig  `mapstructure:"weather"`
	Chat             ChatConfig     `mapstructure:"chat"`
	Push             PushConfig     `mapstructure:"push"`
	Google           GoogleConfig   `mapstructure:"google"`
	Storage          StorageConfig  `mapstructure:"storage"`
	Email            EmailConfig    `mapstructure:"email"`
	Temporal         TemporalConfig `mapstructure:"temporal"`
	Scan             ScanConfig     `mapstructure:"scan"`
	Keyring          KeyringConfig  `mapstructure:"keyring"`
}

// EnvPrefix namespaces environment overrides, e.g. LEAFLENS_WEATHER_API_KEY.
const EnvPrefix = "LEAFLENS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("password_reset_ttl", time.Hour)
	v.SetDefault("public_url", "http://localhost:5173")
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("log_level", "info")

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.sqlite_path", "leaflens-cache.db")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_prefix", "leaflens:")

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.interval", 30*time.Minute)
	v.SetDefault("weather.locate_timeout", 10*time.Second)
	v.SetDefault("weather.location_max_age", 5*time.Minute)
	v.SetDefault("weather.request_timeout", 15*time.Second)

	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("chat.model", "meta-llama/llama-3.1-8b-instruct:free")
	v.SetDefault("chat.timeout", 60*time.Second)

	v.SetDefault("push.vapid_key", "")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.token_info_url", "https://oauth2.googleapis.com/tokeninfo")

	v.SetDefault("storage.driver", "inline")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.public_endpoint", "")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "leaflens-scans")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_use_ssl", false)

	v.SetDefault("email.from", "")
	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.reset_url_template", "")

	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")

	v.SetDefault("scan.identify_latency", 1500*time.Millisecond)

	v.SetDefault("keyring.enabled", false)
	v.SetDefault("keyring.service_name", credential.DefaultServiceName)
	v.SetDefault("keyring.file_dir", "~/.config/leaflens/credentials")
	v.SetDefault("keyring.file_password", "")
}

// Load reads .env, then an optional config.yaml from . or ./config, then
// LEAFLENS_* environment overrides. Empty secrets are looked up in the
// system keyring when keyring.enabled is set.
func Load() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, readFiles bool) (*Config, error) {
	if readFiles {
		// a missing .env is fine
		_ = godotenv.Load()
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if readFiles {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Keyring.Enabled {
		store, err := credential.Open(cfg.Keyring.ServiceName, cfg.Keyring.FileDir, cfg.Keyring.FilePassword)
		if err != nil {
			return nil, err
		}
		if err := cfg.resolveSecrets(store); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets(store *credential.Store) error {
	secrets := []struct {
		value *string
		key   string
	}{
		{&c.JWTSecret, credential.KeyJWTSecret},
		{&c.Weather.APIKey, credential.KeyWeatherAPIKey},
		{&c.Chat.APIKey, credential.KeyChatAPIKey},
		{&c.Email.ResendAPIKey, credential.KeyResendAPIKey},
		{&c.Push.VAPIDKey, credential.KeyVAPIDKey},
		{&c.Storage.SecretKey, credential.KeyMinIOSecret},
	}
	for _, s := range secrets {
		v, err := store.Resolve(*s.value, s.key)
		if err != nil {
			return err
		}
		*s.value = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url must be set")
	}
	switch c.Cache.Driver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisURL == "" {
		return errors.New("cache.redis_url must be set for the redis cache")
	}
	switch c.Storage.Driver {
	case "inline", "minio":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.ResetURLTemplate == "" {
		c.Email.ResetURLTemplate = strings.TrimRight(c.PublicURL, "/") + "/reset-password?token=%s"
	}
	return nil
}
