package app

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	CognitoUserPoolID string // Required: Cognito user pool id (e.g. us-east-1_Abc123)
	CognitoClientID   string // Required: expected audience for issued tokens
	CognitoRegion     string // Required: AWS region hosting the pool
	CognitoDomain     string // Optional: hosted-UI domain for OAuth metadata
	OAuthScopes       string // Optional: space-delimited scopes advertised in metadata

	ServerBaseURL      string   // Public base URL of this gateway (default: http://localhost:{port})
	CORSAllowedOrigins []string // Explicit origin allow-list

	DatabaseFile string // Path to SQLite database file (default: ./gateway.db)

	Env                 string        // Environment (development, production) (default: production)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	LogSensitive        bool          // Log token previews instead of [redacted] (default: false)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// defaultAllowedOrigins covers the MCP clients the gateway is deployed for.
var defaultAllowedOrigins = []string{
	"https://claude.ai",
	"https://claude.com",
	"https://julius.ai",
}

// LoadConfig reads configuration from the environment. Missing required
// Cognito settings are a startup error, not a runtime surprise.
func LoadConfig() (Config, error) {
	cfg := Config{
		CognitoUserPoolID: os.Getenv("COGNITO_USER_POOL_ID"),
		CognitoClientID:   os.Getenv("COGNITO_CLIENT_ID"),
		CognitoRegion:     os.Getenv("COGNITO_REGION"),
		CognitoDomain:     os.Getenv("COGNITO_DOMAIN"),
		OAuthScopes:       getEnvOrDefault("OAUTH_SCOPES", "openid email profile"),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "gateway.db"),

		Env:                 getEnvOrDefault("ENVIRONMENT", "production"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		LogSensitive:        getEnvBoolOrDefault("LOG_SENSITIVE_DATA", false),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	var missing []string
	for _, v := range []struct{ name, val string }{
		{"COGNITO_USER_POOL_ID", cfg.CognitoUserPoolID},
		{"COGNITO_CLIENT_ID", cfg.CognitoClientID},
		{"COGNITO_REGION", cfg.CognitoRegion},
	} {
		if v.val == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg.ServerBaseURL = getEnvOrDefault("SERVER_BASE_URL",
		fmt.Sprintf("http://localhost:%d", cfg.Port))

	origins, err := parseAllowedOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), cfg.Env)
	if err != nil {
		return Config{}, err
	}
	cfg.CORSAllowedOrigins = origins

	return cfg, nil
}

// Issuer is the exact token issuer the pool produces.
func (c Config) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.CognitoRegion, c.CognitoUserPoolID)
}

// JWKSURL is the pool's key-set endpoint.
func (c Config) JWKSURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}

// parseAllowedOrigins validates a comma-separated origin list. Origins must
// be https; plain http is tolerated only for localhost in development.
func parseAllowedOrigins(raw, env string) ([]string, error) {
	if raw == "" {
		return defaultAllowedOrigins, nil
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: wildcard origin is not allowed")
		}

		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: invalid origin %q", o)
		}
		switch u.Scheme {
		case "https":
		case "http":
			if env != "development" || !isLocalhost(u.Hostname()) {
				return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: http origin %q only allowed for localhost in development", o)
			}
		default:
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: invalid origin %q", o)
		}

		origins = append(origins, o)
	}

	if len(origins) == 0 {
		return defaultAllowedOrigins, nil
	}
	return origins, nil
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
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
