package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/directory"
)

type Config struct {
	DBDriver string // Database engine: sqlite, mysql or postgres (default: sqlite)
	DBDSN    string // Driver DSN (default: ./userdir.db for sqlite)

	JWTSecret string        // HS256 secret for session tokens; generated when empty
	TokenTTL  time.Duration // Session token lifetime (default: 1h)

	// Directory delegation. A non-empty LDAPHost switches every account
	// operation into directory mode; the key names mirror the legacy
	// [LDAP] config section.
	LDAPHost      string        // LDAP URL, e.g. ldap://ldap.example.com:389
	LDAPBase      string        // search base DN
	LDAPUserDN    string        // service bind DN; empty means anonymous bind
	LDAPPassword  string        // service bind secret
	LDAPLoginAttr string        // login attribute (default: mail)
	LDAPTimeout   time.Duration // per-call dial/bind/search timeout (default: 10s)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		DBDriver: getEnvOrDefault("USERDIR_DB_DRIVER", "sqlite"),
		DBDSN:    getEnvOrDefault("USERDIR_DB_DSN", "userdir.db"),

		JWTSecret: os.Getenv("USERDIR_JWT_SECRET"),
		TokenTTL:  getEnvDurationOrDefault("USERDIR_TOKEN_TTL", time.Hour),

		LDAPHost:      os.Getenv("LDAP_HOST"),
		LDAPBase:      os.Getenv("LDAP_BASE"),
		LDAPUserDN:    os.Getenv("LDAP_USER_DN"),
		LDAPPassword:  os.Getenv("LDAP_PASSWORD"),
		LDAPLoginAttr: getEnvOrDefault("LDAP_LOGIN_ATTR", directory.DefaultLoginAttr),
		LDAPTimeout:   getEnvDurationOrDefault("LDAP_TIMEOUT", 10*time.Second),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// DirectoryConfig maps the LDAP settings into the directory package's
// immutable config value.
func (c Config) DirectoryConfig() directory.Config {
	return directory.Config{
		Host:      c.LDAPHost,
		Base:      c.LDAPBase,
		UserDN:    c.LDAPUserDN,
		Password:  c.LDAPPassword,
		LoginAttr: c.LDAPLoginAttr,
		Timeout:   c.LDAPTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are taken as seconds.
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}
