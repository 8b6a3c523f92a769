package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the reference sync server configuration.
type Config struct {
	MongoURI            string
	MongoDatabase       string
	PostgresURI         string
	RedisURI            string
	Port                string
	Storage             string   // STORAGE: "mongo" (default) or "memory"
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	AdminKeyHash        string   // argon2id hash of the shared admin key
	SnapshotTTL         time.Duration
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	Host                string // Raw HOST env (e.g. https://sync.wellsync.app)
	AllowedHost         string // Hostname only for strict host check (production only)
	Environment         string // ENV: production, development, etc.
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/wellsync")),
		MongoDatabase:       getEnv("MONGODB_DATABASE", "wellsync"),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/wellsync?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:                getEnv("PORT", "8080"),
		Storage:             strings.ToLower(strings.TrimSpace(getEnv("STORAGE", "mongo"))),
		AllowedOrigins:      allowedOrigins,
		AdminKeyHash:        getEnv("ADMIN_KEY_HASH", ""),
		SnapshotTTL:         getDuration("SNAPSHOT_TTL", 5*time.Minute),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// InMemory reports whether the server runs without external databases.
func (c *Config) InMemory() bool {
	return c.Storage == "memory"
}

// HasCloudinary reports whether avatar offloading is configured.
func (c *Config) HasCloudinary() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// ClientConfig configures the wellsync terminal client. Flags override it.
type ClientConfig struct {
	Store     string
	Endpoint  string
	RulesPath string
	Timeout   time.Duration
}

const (
	appDirName    = "wellsync"
	storeFileName = "wellsync.db"
)

// LoadClient reads the WELLSYNC_* environment. An empty Store means
// DefaultStorePath.
func LoadClient() *ClientConfig {
	return &ClientConfig{
		Store:     getEnv("WELLSYNC_STORE", ""),
		Endpoint:  getEnv("WELLSYNC_ENDPOINT", ""),
		RulesPath: getEnv("WELLSYNC_RULES", ""),
		Timeout:   getDuration("WELLSYNC_TIMEOUT", 15*time.Second),
	}
}

// DefaultStorePath is the local SQLite slot file under the user config dir.
func DefaultStorePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, storeFileName), nil
}

func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
