package config

import (
	"os"
	"time"
)

const (
	credentialLifetimeVar = "CREDENTIAL_LIFETIME"
	renewalIntervalVar    = "RENEWAL_INTERVAL"
	requestTimeoutVar     = "REQUEST_TIMEOUT"

	// renewalPercent is the point of the credential lifetime at which it is renewed.
	renewalPercent = 85
)

type SessionConfig interface {
	GetCredentialLifetime() time.Duration
	GetRenewalInterval() time.Duration
	GetRequestTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetCredentialLifetime() time.Duration {
	return getDuration(credentialLifetimeVar, 30*24*time.Hour) // 30 days
}

func (s Session) GetRenewalInterval() time.Duration {
	if d := getDuration(renewalIntervalVar, 0); d > 0 {
		return d
	}
	return RenewalIntervalFor(s.GetCredentialLifetime())
}

func (Session) GetRequestTimeout() time.Duration {
	return getDuration(requestTimeoutVar, 15*time.Second)
}

// RenewalIntervalFor returns the renewal interval for a credential lifetime,
// placed well inside the validity window.
func RenewalIntervalFor(lifetime time.Duration) time.Duration {
	return lifetime / 100 * renewalPercent
}

// getDuration parses a Go duration from the environment, ignoring invalid or
// non-positive values.
func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
