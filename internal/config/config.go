package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ReplyModeSync  = "sync"
	ReplyModeAsync = "async"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Chat     ChatConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type ChatConfig struct {
	ReplyMode     string // "sync" or "async"
	ReplyTopic    string
	HistoryWindow int
}

type AIConfig struct {
	LLMProvider       string // "canned", "ollama" or "huggingface"
	LLMModel          string
	OllamaBaseURL     string
	HuggingFaceURL    string
	HuggingFaceAPIKey string
	SystemPrompt      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Chat: ChatConfig{
			ReplyMode:     normalizeReplyMode(getEnv("CHAT_REPLY_MODE", ReplyModeSync)),
			ReplyTopic:    getEnv("CHAT_REPLY_TOPIC", "CHAT_REPLY_REQUESTED"),
			HistoryWindow: getEnvAsInt("CHAT_HISTORY_WINDOW", 10),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "canned"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", ""),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
			SystemPrompt:      getEnv("LLM_SYSTEM_PROMPT", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func normalizeReplyMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), ReplyModeAsync) {
		return ReplyModeAsync
	}
	return ReplyModeSync
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
