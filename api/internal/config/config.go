package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	ClovaOCRURL    string
	ClovaOCRSecret string
	YCOAuthToken   string
	YCFolderID     string

	DocAIProjectID    string
	DocAILocation     string
	DocAIProcessorID  string
	GoogleCredentials string

	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	DefaultOCR string
	DefaultLLM string

	TelegramBotToken string
	WebhookURL       string

	SegmentRulesFile string
	PromptDir        string
	LogLevel         string
	RequestTimeout   time.Duration
	OCRCacheMaxAge   time.Duration
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getSeconds(k string, def int) time.Duration {
	n, err := strconv.Atoi(getEnv(k, ""))
	if err != nil || n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// Load reads the environment. A .env file in the working directory is applied
// first without overriding variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8000"),
		DatabaseURL: resolveDSN(),

		ClovaOCRURL:    getEnv("CLOVA_OCR_URL", ""),
		ClovaOCRSecret: getEnv("CLOVA_OCR_SECRET", ""),
		YCOAuthToken:   getEnv("YC_OAUTH_TOKEN", ""),
		YCFolderID:     getEnv("YC_FOLDER_ID", ""),

		DocAIProjectID:    getEnv("DOCAI_PROJECT_ID", ""),
		DocAILocation:     getEnv("DOCAI_LOCATION", "us"),
		DocAIProcessorID:  getEnv("DOCAI_PROCESSOR_ID", ""),
		GoogleCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		DefaultOCR: getEnv("DEFAULT_OCR", "clova"),
		DefaultLLM: getEnv("DEFAULT_LLM", "gpt"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		SegmentRulesFile: getEnv("SEGMENT_RULES_FILE", ""),
		PromptDir:        getEnv("PROMPT_DIR", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RequestTimeout:   getSeconds("REQUEST_TIMEOUT_SEC", 180),
		OCRCacheMaxAge:   getSeconds("OCR_CACHE_TTL_SEC", 30*24*3600),
	}
}

// LoadBot is Load for the Telegram bot, which cannot start without a token.
func LoadBot() *Config {
	cfg := Load()
	cfg.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	return cfg
}

// resolveDSN prefers DATABASE_URL and otherwise builds a DSN from
// POSTGRES_* / PG* variables.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "contractlens"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "contractlens"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "disable"),
	}
	return u.String()
}
