package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"internship-hub/internal/service"
)

type Config struct {
	App struct {
		Env      string `mapstructure:"env"`
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Security struct {
		InternalToken     string `mapstructure:"internal_token"`
		InternalTokenFile string `mapstructure:"internal_token_file"`
	} `mapstructure:"security"`
	JWT struct {
		PublicKey     string `mapstructure:"public_key"`
		PublicKeyFile string `mapstructure:"public_key_file"`
		Issuer        string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Announcement struct {
		ScanOnRead       bool          `mapstructure:"scan_on_read"`
		DeferredAudience string        `mapstructure:"deferred_audience"`
		ReminderWindow   time.Duration `mapstructure:"reminder_window"`
	} `mapstructure:"announcement"`
	Scheduler struct {
		ReconcileSpec string `mapstructure:"reconcile_spec"`
	} `mapstructure:"scheduler"`
	Debug struct {
		PprofEnabled bool `mapstructure:"pprof_enabled"`
	} `mapstructure:"debug"`
}

func loadConfig() (Config, error) {
	return loadConfigFrom(".")
}

func loadConfigFrom(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("INTERNSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "INTERNSHIP_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "Asia/Shanghai")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("jwt.public_key", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("announcement.scan_on_read", true)
	v.SetDefault("announcement.deferred_audience", service.DeferredAudienceAll)
	v.SetDefault("announcement.reminder_window", service.DefaultReminderWindow.String())
	v.SetDefault("scheduler.reconcile_spec", "@every 1m")
	v.SetDefault("debug.pprof_enabled", false)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.InternalToken) == "" && strings.TrimSpace(cfg.Security.InternalTokenFile) != "" {
		raw, err := readSecretFile(cfg.Security.InternalTokenFile)
		if err != nil {
			return Config{}, fmt.Errorf("read security.internal_token_file failed: %w", err)
		}
		cfg.Security.InternalToken = raw
	}
	if strings.TrimSpace(cfg.JWT.PublicKey) == "" && strings.TrimSpace(cfg.JWT.PublicKeyFile) != "" {
		raw, err := readSecretFile(cfg.JWT.PublicKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("read jwt.public_key_file failed: %w", err)
		}
		cfg.JWT.PublicKey = raw
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Database.MaxConns <= 0 {
		return errors.New("database.max_conns must be greater than 0")
	}
	if cfg.Database.PingTimeout <= 0 {
		return errors.New("database.ping_timeout must be greater than 0")
	}

	if _, err := time.LoadLocation(strings.TrimSpace(cfg.App.Timezone)); err != nil {
		return fmt.Errorf("invalid app.timezone: %w", err)
	}

	cfg.Announcement.DeferredAudience = strings.ToLower(strings.TrimSpace(cfg.Announcement.DeferredAudience))
	switch cfg.Announcement.DeferredAudience {
	case service.DeferredAudienceAll, service.DeferredAudienceOriginal:
	default:
		return fmt.Errorf("announcement.deferred_audience must be %q or %q", service.DeferredAudienceAll, service.DeferredAudienceOriginal)
	}
	if cfg.Announcement.ReminderWindow <= 0 {
		return errors.New("announcement.reminder_window must be greater than 0")
	}
	if strings.TrimSpace(cfg.Scheduler.ReconcileSpec) == "" {
		return errors.New("scheduler.reconcile_spec is required")
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		return errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return nil
}

func readSecretFile(path string) (string, error) {
	// #nosec G304 -- path is provided by operator config.
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
