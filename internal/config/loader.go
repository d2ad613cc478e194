package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath        = "WIRERELAY_CONFIG"
	envConfigDefaultPath = "WIRERELAY_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, an optional config file and env vars,
// and returns the resolved path. Precedence: defaults < config file < env vars.
// A missing file is not an error. When WIRERELAY_CONFIG_DEFAULT_PATH names a
// directory without a config file, the defaults are written there.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("port", cfg.Port)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("linger", cfg.Linger)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("max_payload_bytes", cfg.MaxPayloadBytes)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("ws_rate_limit", cfg.WSRateLimit)
	v.SetDefault("audit_path", cfg.AuditPath)
	v.SetDefault("audit_buffer", cfg.AuditBuffer)

	v.SetEnvPrefix("WIRERELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, writeDefault := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}

		if writeDefault {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil {
				logWarn(logger, writeErr, configPath, "failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		} else if logger != nil {
			logger.Debug().Str("path", configPath).Msg("no config file, using defaults")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func resolveConfigPath(explicitPath string) (string, bool) {
	if explicitPath != "" {
		return explicitPath, false
	}
	if p := os.Getenv(envConfigPath); p != "" {
		return p, false
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName), true
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName, false
	}
	return filepath.Join(cwd, defaultConfigName), false
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func logWarn(logger *zerolog.Logger, err error, path, msg string) {
	if logger == nil {
		return
	}
	logger.Warn().Err(err).Str("path", path).Msg(msg)
}
