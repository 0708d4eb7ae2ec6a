package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tutorui/internal/llm"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CatalogPath string
	DatabaseURL string
	LLM         llm.Config
	Activity    ActivityConfig
	Archive     ArchiveConfig

	// FakeModelDefaulted is set when LLM_PROVIDER was empty and the fake
	// model was picked because the environment is local and has no key.
	FakeModelDefaulted bool
}

// ActivityConfig controls how much interaction history is fed into prompts.
type ActivityConfig struct {
	RecentLimit  int
	CacheEntries int
}

// ArchiveConfig points at the S3-compatible bucket composed pages are copied to.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env (if present), the environment and command line flags.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	catalog := fs.String("catalog", "", "path to a component catalog YAML")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	llmCfg, defaulted, err := loadLLMConfig(env)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        *port,
		Env:         env,
		LogLevel:    firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
		CatalogPath: firstNonEmpty(strings.TrimSpace(*catalog), strings.TrimSpace(os.Getenv("CATALOG_PATH"))),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LLM:         llmCfg,
		Activity: ActivityConfig{
			RecentLimit:  envInt("RECENT_ACTIVITY_LIMIT", 10),
			CacheEntries: envInt("RECENT_ACTIVITY_CACHE_ENTRIES", 1024),
		},
		Archive:            loadArchiveConfig(),
		FakeModelDefaulted: defaulted,
	}, nil
}

func loadLLMConfig(env string) (llm.Config, bool, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	defaulted := false
	if provider == "" {
		// Local runs without a key still get a working service.
		if apiKey == "" && strings.EqualFold(env, "local") {
			provider = llm.ProviderFake
			defaulted = true
		} else {
			provider = llm.ProviderGemini
		}
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("LLM_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return llm.Config{}, false, fmt.Errorf("invalid LLM_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}
	rps := 0.0
	if raw := strings.TrimSpace(os.Getenv("LLM_RPS")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return llm.Config{}, false, fmt.Errorf("invalid LLM_RPS %q: %w", raw, err)
		}
		rps = f
	}
	return llm.Config{
		Provider: provider,
		APIKey:   apiKey,
		Model:    firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), llm.DefaultGeminiModel),
		Timeout:  timeout,
		Retries:  envInt("LLM_RETRIES", 0),
		RPS:      rps,
		Burst:    envInt("LLM_BURST", 1),
	}, defaulted, nil
}

func loadArchiveConfig() ArchiveConfig {
	endpoint := strings.TrimSpace(os.Getenv("PAGE_ARCHIVE_S3_ENDPOINT"))
	return ArchiveConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("PAGE_ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PAGE_ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PAGE_ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("PAGE_ARCHIVE_S3_BUCKET")), "tutorui-pages"),
		UseSSL:    envBool("PAGE_ARCHIVE_S3_USE_SSL", true),
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
