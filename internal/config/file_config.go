package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	clienterrors "github.com/jrsteele09/callscreen-client/internal/errors"
)

// ConfigFileVar names the environment variable pointing at an optional TOML file.
const ConfigFileVar = "CONFIG_FILE"

// FileValues is the TOML configuration file structure. Empty values fall back
// to the environment.
type FileValues struct {
	App     FileAppValues     `toml:"app"`
	API     FileAPIValues     `toml:"api"`
	Storage FileStorageValues `toml:"storage"`
	Session FileSessionValues `toml:"session"`
}

// FileAppValues holds process level settings.
type FileAppValues struct {
	Name     string `toml:"name"`
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
}

// FileAPIValues holds the remote API location.
type FileAPIValues struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout string `toml:"request_timeout"`
}

// FileStorageValues selects where the credential is persisted.
type FileStorageValues struct {
	CredentialFile string `toml:"credential_file"`
	RedisURL       string `toml:"redis_url"`
	RedisKey       string `toml:"redis_key"`
}

// FileSessionValues holds credential lifetime settings as Go duration strings.
type FileSessionValues struct {
	CredentialLifetime string `toml:"credential_lifetime"`
	RenewalInterval    string `toml:"renewal_interval"`
}

type fileConfig struct {
	Config
	values FileValues

	credentialLifetime time.Duration
	renewalInterval    time.Duration
	requestTimeout     time.Duration
}

// Load returns the environment configuration overridden by the TOML file at path.
// An empty path falls back to CONFIG_FILE; if that is empty too the environment
// configuration is returned as is.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(ConfigFileVar)
	}
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var values FileValues
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return fromValues(New(), values)
}

func fromValues(base Config, values FileValues) (Config, error) {
	fc := fileConfig{Config: base, values: values}

	var err error
	if fc.credentialLifetime, err = parseDuration("session.credential_lifetime", values.Session.CredentialLifetime); err != nil {
		return nil, err
	}
	if fc.renewalInterval, err = parseDuration("session.renewal_interval", values.Session.RenewalInterval); err != nil {
		return nil, err
	}
	if fc.requestTimeout, err = parseDuration("api.request_timeout", values.API.RequestTimeout); err != nil {
		return nil, err
	}
	if fc.renewalInterval > 0 && fc.GetCredentialLifetime() <= fc.renewalInterval {
		return nil, fmt.Errorf("%w: renewal_interval must be shorter than credential_lifetime", clienterrors.ErrInvalidConfig)
	}
	return fc, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, clienterrors.Wrapf(clienterrors.ErrInvalidConfig, "%s %q", key, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", clienterrors.ErrInvalidConfig, key)
	}
	return d, nil
}

func (f fileConfig) GetAppName() string {
	return orDefault(f.values.App.Name, f.Config.GetAppName())
}

func (f fileConfig) GetEnv() string {
	return orDefault(f.values.App.Env, f.Config.GetEnv())
}

func (f fileConfig) GetLogLevel() string {
	return strings.ToLower(orDefault(f.values.App.LogLevel, f.Config.GetLogLevel()))
}

func (f fileConfig) GetAPIBaseURL() string {
	return strings.TrimRight(orDefault(f.values.API.BaseURL, f.Config.GetAPIBaseURL()), "/")
}

func (f fileConfig) GetCredentialFile() string {
	return orDefault(f.values.Storage.CredentialFile, f.Config.GetCredentialFile())
}

func (f fileConfig) GetRedisURL() string {
	return orDefault(f.values.Storage.RedisURL, f.Config.GetRedisURL())
}

func (f fileConfig) GetRedisKey() string {
	return orDefault(f.values.Storage.RedisKey, f.Config.GetRedisKey())
}

func (f fileConfig) GetCredentialLifetime() time.Duration {
	if f.credentialLifetime > 0 {
		return f.credentialLifetime
	}
	return f.Config.GetCredentialLifetime()
}

func (f fileConfig) GetRenewalInterval() time.Duration {
	if f.renewalInterval > 0 {
		return f.renewalInterval
	}
	if f.credentialLifetime > 0 && os.Getenv(renewalIntervalVar) == "" {
		return RenewalIntervalFor(f.credentialLifetime)
	}
	return f.Config.GetRenewalInterval()
}

func (f fileConfig) GetRequestTimeout() time.Duration {
	if f.requestTimeout > 0 {
		return f.requestTimeout
	}
	return f.Config.GetRequestTimeout()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
