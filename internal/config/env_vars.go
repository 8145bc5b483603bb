package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	apiBaseURLVar     = "API_BASE_URL"
	credentialFileVar = "CREDENTIAL_FILE"
	redisURLVar       = "REDIS_URL"
	redisKeyVar       = "REDIS_KEY"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Call Screen")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, "info"))
}

// GetAPIBaseURL returns the base URL of the remote API (e.g., "https://api.example.com")
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8080"), "/")
}

// GetCredentialFile returns where the bearer credential is persisted between runs.
func (EnvVars) GetCredentialFile() string {
	if path := os.Getenv(credentialFileVar); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "credential.json")
	}
	return filepath.Join(dir, "callscreen", "credential.json")
}

// GetRedisURL returns the Redis URL used instead of the credential file when set.
func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

func (EnvVars) GetRedisKey() string {
	return GetEnv(redisKeyVar, "callscreen:credential")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
