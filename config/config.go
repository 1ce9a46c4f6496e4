package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the bridge configuration. Everything comes from the
// environment (optionally seeded by a .env file) with workable defaults so
// the bridge can start with zero setup next to a local NeteaseCloudMusicApi
// service.
type Config struct {
	Host          string
	Port          string
	NeteaseAPIURL string // base URL of the NeteaseCloudMusicApi service
	CookieFile    string // session cookie file override; empty means platform default
	OwnerPID      int    // owner process for the liveness monitor; 0 disables it
	LogLevel      string
	LogPath       string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		Host:          getEnv("HOST", "127.0.0.1"),
		Port:          getEnv("PORT", "46321"),
		NeteaseAPIURL: getEnv("NETEASE_API_URL", "http://localhost:3000"),
		CookieFile:    getEnv("NCM_BRIDGE_COOKIE_FILE", ""),
		OwnerPID:      getEnvInt("NCM_BRIDGE_OWNER_PID", 0),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
	}
}

// Addr joins host and port into a listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
