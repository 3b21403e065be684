// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", "config.toml", "Path to the TOML config file")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validEnvs         = []string{"local", "dev", "prod"}
	validDrivers      = []string{"sqlite", "postgres"}
	validStorageTypes = []string{"s3", "r2", "local"}
)

var (
	ErrConfigMissing = errors.New("config file is missing")
	ErrNoJWTSecret   = errors.New("no JWT secret provided")
)

// envKeys are bound to upper-cased, underscore separated environment
// variables, e.g. jwt.secret -> JWT_SECRET
var envKeys = []string{
	"app.env",
	"app.log_level",

	"host.port",
	"host.domain",
	"host.cors_origins",
	"host.ssl.enabled",
	"host.ssl.certificate_path",
	"host.ssl.certificate_key_path",

	"database.driver",
	"database.dsn",
	"database.path",

	"jwt.secret",
	"jwt.access_ttl",
	"jwt.refresh_ttl",
	"jwt.update_last_login",

	"tokens.activation_ttl",
	"tokens.reset_ttl",
	"tokens.cleanup_after",
	"tokens.cleanup_every",

	"accounts.unverified_ttl",
	"accounts.cleanup_every",

	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.from",
	"mail.async",
	"mail.resend_cooldown",

	"redis.addr",
	"redis.password",
	"redis.db",

	"storage.type",
	"storage.bucket",
	"storage.region",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.public_url",
	"storage.local_dir",

	"upload.max_image_size",

	"security.rate_limit",
	"security.body_limit",

	"cloudflare.account_id",
	"cloudflare.turnstile.enabled",
	"cloudflare.turnstile.secret_token",

	"tasks.page_size",
}

type Config struct {
	App        App        `mapstructure:"app"`
	Host       Host       `mapstructure:"host"`
	Database   Database   `mapstructure:"database"`
	JWT        JWT        `mapstructure:"jwt"`
	Tokens     Tokens     `mapstructure:"tokens"`
	Accounts   Accounts   `mapstructure:"accounts"`
	Mail       Mail       `mapstructure:"mail"`
	Redis      Redis      `mapstructure:"redis"`
	Storage    Storage    `mapstructure:"storage"`
	Upload     Upload     `mapstructure:"upload"`
	Security   Security   `mapstructure:"security"`
	Cloudflare Cloudflare `mapstructure:"cloudflare"`
	Tasks      Tasks      `mapstructure:"tasks"`
}

type App struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type Host struct {
	Port        int      `mapstructure:"port"`
	Domain      string   `mapstructure:"domain"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	SSL         SSL      `mapstructure:"ssl"`
}

type SSL struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertificatePath    string `mapstructure:"certificate_path"`
	CertificateKeyPath string `mapstructure:"certificate_key_path"`
}

// BaseURL is used to build links that leave the server, like the ones in mails
func (h Host) BaseURL() string {
	scheme := "http"
	if h.SSL.Enabled {
		scheme = "https"
	}

	if h.Port == 80 || h.Port == 443 {
		return fmt.Sprintf("%s://%s", scheme, h.Domain)
	}

	return fmt.Sprintf("%s://%s:%d", scheme, h.Domain, h.Port)
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

type JWT struct {
	Secret          string        `mapstructure:"secret"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	UpdateLastLogin bool          `mapstructure:"update_last_login"`
}

type Tokens struct {
	ActivationTTL time.Duration `mapstructure:"activation_ttl"`
	ResetTTL      time.Duration `mapstructure:"reset_ttl"`
	CleanupAfter  time.Duration `mapstructure:"cleanup_after"`
	CleanupEvery  time.Duration `mapstructure:"cleanup_every"`
}

type Accounts struct {
	// UnverifiedTTL is how long a fresh account has to activate before
	// it's removed. Zero keeps unverified accounts forever.
	UnverifiedTTL time.Duration `mapstructure:"unverified_ttl"`
	CleanupEvery  time.Duration `mapstructure:"cleanup_every"`
}

type Mail struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	From           string        `mapstructure:"from"`
	Async          bool          `mapstructure:"async"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Storage struct {
	Type            string `mapstructure:"type"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url"`
	LocalDir        string `mapstructure:"local_dir"`
}

type Upload struct {
	// MaxImageSize is read in megabytes and converted to bytes
	MaxImageSize int64 `mapstructure:"max_image_size"`
}

type Security struct {
	RateLimit int   `mapstructure:"rate_limit"`
	BodyLimit int64 `mapstructure:"body_limit"`
}

type Cloudflare struct {
	AccountID string    `mapstructure:"account_id"`
	Turnstile Turnstile `mapstructure:"turnstile"`
}

type Turnstile struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
}

type Tasks struct {
	PageSize int `mapstructure:"page_size"`
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() (*Config, error) {
	pflag.Parse()

	cfg, err := Read(*configPath)
	if errors.Is(err, ErrNoJWTSecret) {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return cfg, err
}

// Read loads the config file at path, applies environment overrides and
// defaults and validates the result
func Read(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	for _, k := range envKeys {
		v.BindEnv(k, strings.ToUpper(strings.ReplaceAll(k, ".", "_")))
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file, %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Upload.MaxImageSize <<= 20
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "database.db")

	v.SetDefault("jwt.access_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.refresh_ttl", 8*24*time.Hour)
	v.SetDefault("jwt.update_last_login", false)

	v.SetDefault("tokens.activation_ttl", 24*time.Hour)
	v.SetDefault("tokens.reset_ttl", 30*time.Minute)
	v.SetDefault("tokens.cleanup_after", 60*24*time.Hour)
	v.SetDefault("tokens.cleanup_every", 24*time.Hour)

	v.SetDefault("accounts.unverified_ttl", 7*24*time.Hour)
	v.SetDefault("accounts.cleanup_every", 24*time.Hour)

	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.async", false)
	v.SetDefault("mail.resend_cooldown", time.Minute)

	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "media")
	v.SetDefault("storage.public_url", "/media")

	v.SetDefault("upload.max_image_size", 5)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.body_limit", 1<<20)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("tasks.page_size", 7)
}

func validate(cfg *Config) error {
	if !slices.Contains(validLogLevels, cfg.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if !slices.Contains(validEnvs, cfg.App.Env) {
		return errors.New("invalid app environment provided")
	}

	if cfg.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if cfg.Host.SSL.Enabled {
		if cfg.Host.SSL.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if cfg.Host.SSL.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if cfg.JWT.Secret == "" {
		return ErrNoJWTSecret
	}

	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("jwt lifetimes must be bigger than 0")
	}

	if cfg.Tokens.ActivationTTL <= 0 || cfg.Tokens.ResetTTL <= 0 {
		return errors.New("token lifetimes must be bigger than 0")
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return errors.New("sqlite database path can't be empty")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return errors.New("postgres dsn can't be empty")
		}
	default:
		return fmt.Errorf("invalid database driver provided, expected one of %v", validDrivers)
	}

	switch cfg.Storage.Type {
	case "s3":
		if cfg.Storage.Region == "" {
			return errors.New("region can't be empty")
		}
		fallthrough
	case "r2":
		if cfg.Storage.Type == "r2" && cfg.Cloudflare.AccountID == "" {
			return errors.New("account id can't be empty")
		}
		if cfg.Storage.AccessKeyID == "" {
			return errors.New("account access id can't be empty")
		}
		if cfg.Storage.SecretAccessKey == "" {
			return errors.New("secret access key can't be empty")
		}
		if cfg.Storage.Bucket == "" {
			return errors.New("bucket can't be empty")
		}
	case "local":
		if cfg.Storage.LocalDir == "" {
			return errors.New("local storage directory can't be empty")
		}
	default:
		return fmt.Errorf("invalid storage type provided, expected one of %v", validStorageTypes)
	}

	if cfg.Upload.MaxImageSize <= 0 {
		return errors.New("upload.max_image_size must be bigger than 0")
	}

	if cfg.Security.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if cfg.Security.BodyLimit <= 0 {
		return errors.New("security.body_limit must be bigger than 0")
	}

	if cfg.Mail.Async && cfg.Redis.Addr == "" {
		return errors.New("mail.async requires redis.addr")
	}

	if cfg.Cloudflare.Turnstile.Enabled && cfg.Cloudflare.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	if cfg.Tasks.PageSize <= 0 {
		return errors.New("tasks.page_size must be bigger than 0")
	}

	return nil
}
