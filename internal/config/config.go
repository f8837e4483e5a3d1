// Package config loads go-mockmate configuration from the environment.
// A .env file in the working directory is honored when present so local
// development does not need exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need at startup. Credentials are
// injected here and never compiled into the packages that use them.
type Config struct {
	LogLevel string

	Vapi      VapiConfig
	Server    ServerConfig
	Gemini    GeminiConfig
	Firestore FirestoreConfig
}

// VapiConfig configures the voice engine client and token issuance.
type VapiConfig struct {
	// PublicKey is the browser-safe key, also the fallback token when
	// minting is unavailable.
	PublicKey string
	// PrivateKey signs minted session tokens and authorizes REST calls.
	PrivateKey string
	OrgID      string
	WorkflowID string
	BaseURL    string
	SampleRate int
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Port            string
	CORSOrigins     string
	RequestLogging  bool
	ShutdownTimeout time.Duration
}

// GeminiConfig configures question generation and feedback scoring.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// FirestoreConfig configures interview and feedback persistence. When
// ProjectID is empty the server runs on the in-memory store.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// Load reads configuration from the environment, after loading .env if
// one exists. Missing optional values fall back to defaults; required
// values are validated by the callers that need them.
func Load() *Config {
	// Ignore the error: a missing .env simply means real env vars.
	_ = godotenv.Load()

	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Vapi: VapiConfig{
			PublicKey:  getEnv("VAPI_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPI_PRIVATE_KEY", ""),
			OrgID:      getEnv("VAPI_ORG_ID", ""),
			WorkflowID: getEnv("VAPI_WORKFLOW_ID", ""),
			BaseURL:    getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
			SampleRate: getEnvAsInt("VAPI_SAMPLE_RATE", 16000),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
			RequestLogging:  getEnvAsBool("REQUEST_LOGGING", false),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		},
		Firestore: FirestoreConfig{
			ProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
	}
}

// RequireVapiKeys exits with a usage message when the engine credentials
// are absent. Commands that talk to the engine call this up front.
func (c *Config) RequireVapiKeys() {
	if c.Vapi.PublicKey == "" && c.Vapi.PrivateKey == "" {
		fmt.Fprintln(os.Stderr, "Error: VAPI_PUBLIC_KEY or VAPI_PRIVATE_KEY is required")
		fmt.Fprintln(os.Stderr, "Usage: VAPI_PRIVATE_KEY=... go run ./cmd/...")
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
