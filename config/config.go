// Package config provides configuration management utilities for the
// application, including version information, logging levels, listen address,
// session settings and database paths. Every value comes from the environment.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	defaultPort          = 8080
	defaultSessionMaxAge = 60 * 24 // minutes
	defaultLoginRate     = 20      // requests per minute per client
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("CAPA_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("CAPA_DEBUG") == "true"
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("CAPA_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetListen() string {
	return os.Getenv("CAPA_LISTEN")
}

func GetPort() int {
	return getInt("CAPA_PORT", defaultPort)
}

// GetSessionSecret returns the key used to sign session cookies. An empty
// value means the server generates a random key at start-up.
func GetSessionSecret() string {
	return os.Getenv("CAPA_SESSION_SECRET")
}

// GetSessionMaxAge returns the session lifetime in minutes.
func GetSessionMaxAge() int {
	return getInt("CAPA_SESSION_MAX_AGE", defaultSessionMaxAge)
}

// GetRedisAddr returns the address of an external Redis server. Empty means
// an embedded instance is used.
func GetRedisAddr() string {
	return os.Getenv("CAPA_REDIS_ADDR")
}

// GetLoginRate returns the number of login/register attempts allowed per
// client per minute. Zero disables rate limiting.
func GetLoginRate() int {
	return getInt("CAPA_LOGIN_RATE", defaultLoginRate)
}

// GetDomain returns the host name the server answers to. Empty accepts any
// host.
func GetDomain() string {
	return os.Getenv("CAPA_DOMAIN")
}

// IsSecureCookie reports whether session cookies carry the Secure flag.
func IsSecureCookie() bool {
	return os.Getenv("CAPA_SECURE_COOKIE") == "true"
}

// IsNameLoginEnabled reports whether users may log in with their first name
// instead of their email address.
func IsNameLoginEnabled() bool {
	v := os.Getenv("CAPA_NAME_LOGIN")
	if v == "" {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	return err == nil && enabled
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
