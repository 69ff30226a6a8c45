package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Skufu/kanpo-triage/internal/catalog"
	"github.com/Skufu/kanpo-triage/internal/compose"
	"github.com/Skufu/kanpo-triage/internal/llm"
	"github.com/Skufu/kanpo-triage/internal/logger"
	"github.com/Skufu/kanpo-triage/internal/observability"
	"github.com/Skufu/kanpo-triage/internal/store"
	"github.com/Skufu/kanpo-triage/internal/triage"
)

const (
	providerOpenAI = "openai"
	providerOllama = "ollama"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type AuditRecorder interface {
	RecordTriage(ctx context.Context, e store.Event) error
}

type Config struct {
	Port   string
	AppEnv string

	SymptomsPath  string
	DiagnosisPath string
	RulesPath     string

	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OllamaHost     string
	OllamaModel    string
	LLMTemperature float32
	LLMTimeout     time.Duration

	CORSOrigins []string

	EnableDB    bool
	DatabaseURL string

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelServiceName string
}

// Dependencies is everything the router needs; DB and Audit may be nil.
type Dependencies struct {
	Engine      *triage.Engine
	Composer    *compose.Composer
	Log         *logger.Logger
	DB          HealthChecker
	Audit       AuditRecorder
	CORSOrigins []string
	Tracing     bool
	ServiceName string
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()
	shutdownOTel, err := observability.InitOTel(ctx, lg, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		lg.Fatal("otel init failed", "error", err)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	engine, err := buildEngine(cfg, lg)
	if err != nil {
		lg.Fatal("engine init failed", "error", err)
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		lg.Fatal("llm client init failed", "error", err)
	}

	deps := Dependencies{
		Engine:      engine,
		Composer:    compose.NewComposer(client, engine.Catalog().Remedies, cfg.LLMTimeout, lg),
		Log:         lg,
		CORSOrigins: cfg.CORSOrigins,
		Tracing:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
	}

	if cfg.EnableDB {
		st, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			lg.Fatal("database connection failed", "error", err)
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			lg.Fatal("database migration failed", "error", err)
		}
		deps.DB = st
		deps.Audit = st
	}

	router := setupRouter(deps)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// replies wait on the LLM, so leave headroom past its timeout
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server error", "error", err)
		}
	}()

	lg.Info("server listening",
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"descriptors", len(engine.Catalog().Descriptors),
		"builtin_descriptors", engine.Catalog().Builtin,
		"recipes", len(engine.Catalog().Remedies.Recipes),
	)
	waitForShutdown(server, lg)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		AppEnv:          getEnv("APP_ENV", "dev"),
		SymptomsPath:    getEnv("SYMPTOMS_PATH", "shojo.json"),
		DiagnosisPath:   getEnv("DIAGNOSIS_PATH", "shindan.json"),
		RulesPath:       os.Getenv("TRIAGE_RULES_PATH"),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", providerOpenAI)),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OllamaHost:      os.Getenv("OLLAMA_HOST"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "qwen2.5"),
		CORSOrigins:     splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		EnableDB:        strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		OtelEnabled:     strings.EqualFold(getEnv("OTEL_ENABLED", "false"), "true"),
		OtelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelInsecure:    strings.EqualFold(getEnv("OTEL_EXPORTER_OTLP_INSECURE", "false"), "true"),
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "kanpo-triage"),
	}

	temp, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE: %w", err)
	}
	cfg.LLMTemperature = float32(temp)

	cfg.LLMTimeout, err = time.ParseDuration(getEnv("LLM_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("LLM_TIMEOUT: %w", err)
	}
	if cfg.LLMTimeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	switch cfg.LLMProvider {
	case providerOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case providerOllama:
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	return cfg, nil
}

func buildEngine(cfg *Config, lg *logger.Logger) (*triage.Engine, error) {
	rules, err := triage.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.SymptomsPath, cfg.DiagnosisPath, lg)
	if err != nil {
		return nil, err
	}
	return triage.NewEngine(cat, rules)
}

func newLLMClient(cfg *Config) (llm.Client, error) {
	if cfg.LLMProvider == providerOllama {
		return llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.LLMTemperature)
	}
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		Temperature: cfg.LLMTemperature,
	}), nil
}

func setupRouter(deps Dependencies) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}

	router := gin.New()
	if deps.Tracing {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}
	router.Use(
		requestLogger(deps.Log),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			deps.Log.Error("panic recovered", "error", recovered, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}),
		limitBodySize(1<<20), // 1MB max body
		cors.New(corsConfig(deps.CORSOrigins)),
	)

	h := &handlers{engine: deps.Engine, composer: deps.Composer, audit: deps.Audit, log: deps.Log}

	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.POST("/chat", h.chat)
	router.POST("/analyze", h.analyze)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if deps.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     "ok",
		})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func waitForShutdown(server *http.Server, lg *logger.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	lg.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("graceful shutdown failed", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
