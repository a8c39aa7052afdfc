package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken    string
	MongoURI    string
	MongoDBName string

	// Static administration surface, immutable after Load.
	SuperAdmins []int64
	Groups      []int64

	DefaultAttempts int
	DeleteAfter     time.Duration

	AdminAPIAddr  string
	AdminAPIToken string

	Debug bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))

	return &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "quiz_gatekeeper"),
		SuperAdmins:     splitIDs(os.Getenv("SUPER_ADMINS")),
		Groups:          splitIDs(os.Getenv("GROUPS")),
		DefaultAttempts: getEnvInt("DEFAULT_ATTEMPTS", 3),
		DeleteAfter:     time.Duration(getEnvInt("DELETE_AFTER", 30)) * time.Second,
		AdminAPIAddr:    getEnv("ADMIN_API_ADDR", ":8080"),
		AdminAPIToken:   os.Getenv("ADMIN_API_TOKEN"),
		Debug:           debug,
	}
}

// IsSuperAdmin reports whether id is in the static super-admin list.
func (c *Config) IsSuperAdmin(id int64) bool {
	for _, a := range c.SuperAdmins {
		if a == id {
			return true
		}
	}
	return false
}

// IsKnownGroup reports whether chatID is one of the enabled groups.
func (c *Config) IsKnownGroup(chatID int64) bool {
	for _, g := range c.Groups {
		if g == chatID {
			return true
		}
	}
	return false
}

func splitIDs(s string) []int64 {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping invalid id %q: %v", trimmed, err)
			continue
		}
		result = append(result, id)
	}

	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
