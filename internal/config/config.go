// Package config provides configuration for the tool-call gateway.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MCPServer identifies one configured remote tool server.
type MCPServer struct {
	Name string
	URL  string
}

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Discovery
	DiscoveryTTL time.Duration
	MCPServers   []MCPServer

	// Execution
	RetryMax       int
	RetryBaseDelay time.Duration

	// Approval
	AutoApprove bool
	PendingTTL  time.Duration

	// Summarizer LLM
	LLMURL     string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Media
	UploadURL                string
	AllowGlobalMediaFallback bool

	// Notifications
	WebhookURL string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:    getEnv("DATABASE_URL", "file:toolgate.db?cache=shared&mode=rwc"),
		DiscoveryTTL:   time.Duration(getEnvInt("DISCOVERY_TTL_MS", 900000)) * time.Millisecond,
		MCPServers:     parseMCPServers(getEnv("MCP_SERVERS", "")),
		RetryMax:       getEnvInt("RETRY_MAX", 2),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
		AutoApprove:    getEnvBool("AUTO_APPROVE", false),
		PendingTTL:     time.Duration(getEnvInt("PENDING_TTL_MS", 600000)) * time.Millisecond,
		LLMURL:         getEnv("LLM_URL", ""),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_MS", 10000)) * time.Millisecond,
		UploadURL:      getEnv("UPLOAD_URL", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		AllowGlobalMediaFallback: getEnvBool("ALLOW_GLOBAL_MEDIA_FALLBACK", false),
	}
	return cfg
}

// parseMCPServers reads "name=url,name=url" pairs.
func parseMCPServers(raw string) []MCPServer {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []MCPServer
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		if !ok || name == "" || url == "" {
			continue
		}
		out = append(out, MCPServer{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
