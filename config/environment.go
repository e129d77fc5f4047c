package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	EnvironmentDevelopment = environmentDevelopment
	EnvironmentProduction  = environmentProduction
	EnvironmentStaging     = environmentStaging
)

var environmentAliases = map[string]string{
	"prod": environmentProduction,
	"stag": environmentStaging,
	"dev":  environmentDevelopment,
}

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "config.yml"

// EnvPaths maps each environment to its own configuration file.
func EnvPaths() map[string]string {
	return map[string]string{
		environmentProduction: "config.production.yml",
		environmentStaging:    "config.staging.yml",
	}
}

func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// resolveEnvSpecificPath swaps the default file for the current
// environment's file when that file exists. Explicit paths are kept.
func resolveEnvSpecificPath(path, defaultPath string, envPaths map[string]string) string {
	if path == "" {
		path = defaultPath
	}
	if path != defaultPath {
		return path
	}
	if envPath, ok := envPaths[getAppEnvironment()]; ok {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	return path
}

// AppEnvironment returns the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether env trades against real funds. The CLI
// refuses testnet base URLs there.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}

// IsTestnet reports whether baseURL points at the Binance spot testnet.
func IsTestnet(baseURL string) bool {
	return strings.Contains(strings.ToLower(baseURL), "testnet")
}
