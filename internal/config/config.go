package config

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Session SessionConfig
	Storage StorageConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	Host           string
	Env            string // "development" or "production"
	AllowedOrigins []string
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers       int
	MaxPlayers       int
	DrawSeconds      int
	VoteSeconds      int
	CountdownSeconds int
	RoomCodeLength   int
	MaxRoundAge      time.Duration
	StaleRoomTimeout time.Duration
	CleanupInterval  time.Duration
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	Secret          string
	TTL             time.Duration
	GeneratedSecret bool
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DatabaseURL string
	UploadDir   string
	// JSON file of prompt pairs added to the database at startup
	PromptSeedFile string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from a .env file, if any, and environment
// variables with defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "0.0.0.0"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Game: GameConfig{
			MinPlayers:       getEnvInt("MIN_PLAYERS", 3),
			MaxPlayers:       getEnvInt("MAX_PLAYERS", 8),
			DrawSeconds:      getEnvInt("DRAW_SECONDS", 120),
			VoteSeconds:      getEnvInt("VOTE_SECONDS", 60),
			CountdownSeconds: getEnvInt("COUNTDOWN_SECONDS", 3),
			RoomCodeLength:   getEnvInt("ROOM_CODE_LENGTH", 6),
			MaxRoundAge:      getEnvDuration("MAX_ROUND_AGE", 10*time.Minute),
			StaleRoomTimeout: getEnvDuration("STALE_ROOM_TIMEOUT", 2*time.Hour),
			CleanupInterval:  getEnvDuration("CLEANUP_INTERVAL", time.Minute),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Storage: StorageConfig{
			DatabaseURL:    getEnv("DATABASE_URL", ""),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			PromptSeedFile: getEnv("PROMPT_SEED_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Session.Secret == "" {
		cfg.Session.Secret = randomSecret()
		cfg.Session.GeneratedSecret = true
	}
	cfg.Game.RoomCodeLength = max(4, min(cfg.Game.RoomCodeLength, 8))
	cfg.Game.MaxPlayers = max(cfg.Game.MinPlayers, cfg.Game.MaxPlayers)

	return cfg
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration parses values like "90s" or "10m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func randomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
