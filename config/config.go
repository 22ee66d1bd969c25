// Package config provides configuration for the donor bot.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the bot configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Hosted model
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Payment provider
	AsaasBaseURL   string
	AsaasAPIKey    string
	AsaasTimeout   time.Duration
	OrgName        string
	DonationCapBRL int

	// WhatsApp channel
	GraphBaseURL  string
	GraphTimeout  time.Duration
	PhoneNumberID string
	AccessToken   string
	VerifyToken   string

	// Knowledge base (ask_org)
	KnowledgeURL     string
	KnowledgeTimeout time.Duration

	// Audio transcription
	TranscribeBaseURL string
	TranscribeAPIKey  string
	TranscribeModel   string

	// Session windows
	HistoryLimit  int
	SummaryWindow int

	// Logging
	LogLevel string
}

// Load loads configuration from the environment. A .env file is read first
// when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:donorbot.db?cache=shared&mode=rwc"),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		AsaasBaseURL:      getEnv("ASAAS_BASE_URL", "https://sandbox.asaas.com/api/v3"),
		AsaasAPIKey:       getEnv("ASAAS_API_KEY", ""),
		AsaasTimeout:      time.Duration(getEnvInt("ASAAS_TIMEOUT_MS", 30000)) * time.Millisecond,
		OrgName:           getEnv("ORG_NAME", "O Pequeno Nazareno"),
		DonationCapBRL:    getEnvInt("DONATION_CAP_BRL", 100000),
		GraphBaseURL:      getEnv("GRAPH_BASE_URL", "https://graph.facebook.com/v20.0"),
		GraphTimeout:      time.Duration(getEnvInt("GRAPH_TIMEOUT_MS", 30000)) * time.Millisecond,
		PhoneNumberID:     getEnv("PHONE_NUMBER_ID", ""),
		AccessToken:       getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		VerifyToken:       getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		KnowledgeURL:      getEnv("KNOWLEDGE_URL", ""),
		KnowledgeTimeout:  time.Duration(getEnvInt("KNOWLEDGE_TIMEOUT_MS", 30000)) * time.Millisecond,
		TranscribeBaseURL: getEnv("TRANSCRIBE_BASE_URL", "https://api.groq.com/openai"),
		TranscribeAPIKey:  getEnv("TRANSCRIBE_API_KEY", ""),
		TranscribeModel:   getEnv("TRANSCRIBE_MODEL", "whisper-large-v3"),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 20),
		SummaryWindow:     getEnvInt("SUMMARY_WINDOW", 10),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
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
