package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// AuthConfig holds both sides of sign-in: the identity provider whose ID
// tokens we accept, and our own session tokens.
type AuthConfig struct {
	Secret         string `mapstructure:"secret"`
	Issuer         string `mapstructure:"issuer"`
	ExpireHours    int    `mapstructure:"expire_hours"`
	ProviderSecret string `mapstructure:"provider_secret"`
	ProviderIssuer string `mapstructure:"provider_issuer"`
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type AppSubConfig struct {
	PageSize       int    `mapstructure:"page_size"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

type LedgerConfig struct {
	MaxRetries             int  `mapstructure:"max_retries"`
	RetryBackoffMs         int  `mapstructure:"retry_backoff_ms"`
	ZeroSettledReceivables bool `mapstructure:"zero_settled_receivables"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
	App      AppSubConfig   `mapstructure:"app"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

var (
	appConfig *Config
	once      sync.Once
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/finance.db")
	v.SetDefault("auth.issuer", "stan-finance")
	v.SetDefault("auth.expire_hours", 24)
	v.SetDefault("log.file", "logs/finance.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("app.page_size", 20)
	v.SetDefault("app.currency_symbol", "₱")
	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.retry_backoff_ms", 20)
	v.SetDefault("ledger.zero_settled_receivables", false)
}

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it looks for config.yaml in the working directory and
// falls back to defaults plus environment when no file is found.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		var c *Config
		c, err = read(path)
		if err == nil {
			appConfig = c
		}
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

func read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. FIN_SERVER_PORT=9000
	v.SetEnvPrefix("FIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
