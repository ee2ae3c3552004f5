// Package config reads process settings from the environment, loading a
// .env file first when one exists.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Defaults for settings without an environment value.
const (
	DefaultProfilesPath = "./config/profiles.yaml"
	DefaultMCPAddr      = "127.0.0.1:8013"
)

// Settings are the process-level knobs. Profile-level values win over the
// embedding and vector store entries here.
type Settings struct {
	ProfilesPath string
	DataDir      string
	JobsDBPath   string
	BadgerDir    string
	MCPAddr      string
	LogFormat    string

	// CloudflareRPS caps Cloudflare requests per second; zero keeps the
	// backend default.
	CloudflareRPS float64

	Profiles file.Defaults
}

// Load reads .env (or the given files) into the environment without
// overriding variables that are already set, then builds Settings.
func Load(envFiles ...string) *Settings {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		logger.Warn("config.env.load files=%s err=%v", strings.Join(envFiles, ","), err)
	}
	return FromEnv()
}

// FromEnv builds Settings from the current environment only.
func FromEnv() *Settings {
	dataDir := getEnv("SERCHA_DATA_DIR", "")
	if dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".sercha-ingest")
		} else {
			dataDir = ".sercha-ingest"
		}
	}

	return &Settings{
		ProfilesPath:  getEnv("SERCHA_PROFILES_PATH", DefaultProfilesPath),
		DataDir:       dataDir,
		JobsDBPath:    getEnv("JOBS_DB_PATH", filepath.Join(dataDir, "jobs.db")),
		BadgerDir:     getEnv("SERCHA_BADGER_DIR", filepath.Join(dataDir, "cache")),
		MCPAddr:       getEnv("SERCHA_MCP_ADDR", DefaultMCPAddr),
		LogFormat:     getEnv("SERCHA_LOG_FORMAT", "text"),
		CloudflareRPS: getEnvFloat("CF_REQUESTS_PER_SECOND", 0),
		Profiles: file.Defaults{
			VectorDBURL:         getEnv("VECTOR_DB_URL", ""),
			Primary:             getEnv("EMBED_PRIMARY", ""),
			Fallback:            getEnv("EMBED_FALLBACK", ""),
			KeepAlive:           getEnv("EMBED_KEEP_ALIVE", ""),
			OllamaHost:          getEnv("OLLAMA_HOST", ""),
			OllamaModel:         getEnv("EMBED_MODEL", ""),
			CloudflareAccountID: getEnv("CF_ACCOUNT_ID", ""),
			CloudflareAPIToken:  getEnv("CF_API_TOKEN", ""),
			CloudflareModel:     getEnv("CF_EMBED_MODEL", ""),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			TimeoutSeconds:      lookupFloat("EMBED_TIMEOUT_SECONDS"),
			MaxRetries:          lookupInt("EMBED_MAX_RETRIES"),
			Concurrency:         lookupInt("EMBED_CONCURRENCY"),
			PacingMS:            lookupInt("EMBED_PACING_MS"),
			MaxChars:            lookupInt("EMBED_MAX_CHARS"),
		},
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvFloat(key string, def float64) float64 {
	if v := lookupFloat(key); v != nil {
		return *v
	}
	return def
}

// lookupInt returns nil when key is unset or not an integer.
func lookupInt(key string) *int {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("config.env.invalid key=%s value=%q want=int", key, v)
		return nil
	}
	return &n
}

func lookupFloat(key string) *float64 {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("config.env.invalid key=%s value=%q want=number", key, v)
		return nil
	}
	return &f
}
