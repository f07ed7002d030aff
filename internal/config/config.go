package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
)

var ErrUnknownDefaultModel = errors.New("default model is not in the catalog")

type Config struct {
	HTTPAddr            string
	OpenAIKey           string
	OpenAIBaseURL       string
	GeminiKey           string
	GatewayURL          string
	TelegramToken       string
	AdminUserIDs        []int64
	AllowedUserIDs      []int64
	DefaultModel        string
	Models              []Model
	GatewayLoadTimeout  time.Duration
	SubmitPerMinute     int
	MaxCompletionTokens int
	LogLevel            slog.Level
	Greeting            string
}

// Model is one entry of the model picker.
type Model struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Provider      string `yaml:"provider" json:"provider"`
	ProviderModel string `yaml:"provider_model" json:"-"`
}

type catalogFile struct {
	Default string  `yaml:"default"`
	Models  []Model `yaml:"models"`
}

var defaultModels = []Model{
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: ProviderOpenAI, ProviderModel: "gpt-4o-mini"},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, ProviderModel: "gpt-4o"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Provider: ProviderGemini, ProviderModel: "gemini-1.5-flash"},
	{ID: "gateway-default", Name: "HTTP gateway", Provider: ProviderHTTP, ProviderModel: "default"},
}

func Load(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		slog.Debug("could not read .env", "path", path, "error", err)
	}

	cfg := Config{
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		GatewayURL:          strings.TrimRight(os.Getenv("GATEWAY_URL"), "/"),
		GatewayLoadTimeout:  time.Duration(getenvIntDefault("GATEWAY_LOAD_TIMEOUT_SECONDS", 10)) * time.Second,
		SubmitPerMinute:     getenvIntDefault("SUBMIT_RATE_PER_MINUTE", 30),
		MaxCompletionTokens: getenvIntDefault("MAX_TOKENS", 2048),
		LogLevel:            parseLevel(os.Getenv("LOG_LEVEL")),
		Greeting:            getenvDefault("GREETING", "Welcome! Pick a model and say something."),
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.AdminUserIDs = parseIDs(os.Getenv("ADMIN_USER_IDS"))
	cfg.AllowedUserIDs = parseIDs(os.Getenv("ALLOWED_TELEGRAM_USER_IDS"))

	catalog := catalogFile{Models: defaultModels}
	if file := os.Getenv("MODELS_FILE"); file != "" {
		loaded, err := loadCatalog(file)
		if err != nil {
			return cfg, err
		}
		catalog = loaded
	}
	cfg.Models = catalog.Models

	cfg.DefaultModel = getenvDefault("DEFAULT_MODEL", catalog.Default)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = cfg.Models[0].ID
	}
	if _, ok := cfg.Model(cfg.DefaultModel); !ok {
		return cfg, fmt.Errorf("%w: %s", ErrUnknownDefaultModel, cfg.DefaultModel)
	}

	return cfg, nil
}

// Model looks up a catalog entry by id.
func (c Config) Model(id string) (Model, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func loadCatalog(path string) (catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalogFile{}, fmt.Errorf("read models file: %w", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return catalogFile{}, fmt.Errorf("parse models file %s: %w", path, err)
	}
	if len(catalog.Models) == 0 {
		return catalogFile{}, fmt.Errorf("models file %s lists no models", path)
	}

	seen := make(map[string]bool, len(catalog.Models))
	for i, m := range catalog.Models {
		if m.ID == "" || m.Provider == "" {
			return catalogFile{}, fmt.Errorf("models file %s: entry %d needs id and provider", path, i)
		}
		if seen[m.ID] {
			return catalogFile{}, fmt.Errorf("models file %s: duplicate model %q", path, m.ID)
		}
		seen[m.ID] = true
		if m.Name == "" {
			catalog.Models[i].Name = m.ID
		}
		if m.ProviderModel == "" {
			catalog.Models[i].ProviderModel = m.ID
		}
	}
	return catalog, nil
}

func parseIDs(raw string) []int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			slog.Warn("skipping user id", "value", p, "error", err)
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
