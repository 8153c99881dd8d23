// go_adscore: YouTube ad creative analysis server.
//
// Scores YouTube ads against a 156-item rubric with Gemini, stores every
// answer in SQLite, exports CSV/JSON/Excel, uploads to Google Drive and runs
// the ad collector on a cron schedule. Serves a REST API with a dashboard on
// HTTP_PORT and MCP tools on MCP_PORT.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_adscore/internal/adserver"
	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/collector"
	"github.com/anatolykoptev/go_adscore/internal/engine/drive"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
	"github.com/anatolykoptev/go_adscore/internal/scheduler"
	"github.com/anatolykoptev/go_adscore/internal/webapi"
)

var version = "dev"

func main() {
	// .env.local wins over .env; real environment wins over both.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initEngine(ctx)

	dbPath := env.Str("DATABASE_PATH", "data/video_analysis.db")
	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("store init failed", slog.String("path", dbPath), slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store ready", slog.String("path", dbPath))

	analyzer := analysis.New(ctx, analysis.Config{
		Store:       st,
		Concurrency: env.Int("ANALYZE_CONCURRENCY", 2),
		ProgressTTL: env.Duration("PROGRESS_TTL", time.Hour),
	})

	automation := &scheduler.Automation{
		Collector: collector.New(collector.Config{
			Python:  env.Str("COLLECTOR_PYTHON", "python3"),
			Script:  env.Str("COLLECTOR_SCRIPT", "python_scripts/youtube_ads_collector_auto_wrapper.py"),
			WorkDir: env.Str("COLLECTOR_WORKDIR", "."),
			Timeout: env.Duration("COLLECTOR_TIMEOUT", 5*time.Minute),
		}),
		Store:          st,
		Analyzer:       analyzer,
		MaxAdsPerQuery: env.Int("MAX_ADS_PER_QUERY", 20),
		BatchLimit:     env.Int("ANALYZE_BATCH_LIMIT", 10),
		Delay:          env.Duration("ANALYZE_DELAY", 2*time.Second),
	}
	if up := initDrive(ctx); up != nil {
		automation.Uploader = up
	}

	sched := scheduler.New(ctx, automation, scheduler.Specs{
		Collect:  env.Str("SCHEDULE_COLLECT", scheduler.DefaultSpecs.Collect),
		Analysis: env.Str("SCHEDULE_ANALYZE", scheduler.DefaultSpecs.Analysis),
		Upload:   env.Str("SCHEDULE_UPLOAD", scheduler.DefaultSpecs.Upload),
		Health:   env.Str("SCHEDULE_HEALTH", scheduler.DefaultSpecs.Health),
	})
	if envBool("SCHEDULER_ENABLED", false) {
		if err := sched.Start(); err != nil {
			slog.Error("scheduler start failed", slog.Any("error", err))
		}
	}

	httpSrv := startHTTP(webapi.NewHandler(st, analyzer, automation, sched))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_adscore",
		Version: version,
	}, nil)
	n := adserver.RegisterTools(server, adserver.Deps{Store: st, Analyzer: analyzer})
	slog.Info("tools registered", slog.Int("count", n))

	mcpPort := env.Str("MCP_PORT", "8893")
	slog.Info("starting go_adscore", slog.String("mcp_port", mcpPort), slog.String("http_addr", httpSrv.Addr))
	errc := make(chan error, 1)
	go func() {
		errc <- mcpserver.Run(server, mcpserver.Config{
			Name:         "go_adscore",
			Version:      version,
			Port:         mcpPort,
			WriteTimeout: 600 * time.Second,
			Metrics:      engine.FormatMetrics,
		})
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errc:
		if err != nil {
			slog.Error("server failed", slog.Any("error", err))
		}
	}

	stop()
	shutdown(httpSrv, sched)
}

func initEngine(ctx context.Context) {
	c := engine.Config{
		GeminiModel:           env.Str("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiFallbackModels:  env.List("GEMINI_FALLBACK_MODELS", "gemini-2.5-pro,gemini-2.5-flash-8b"),
		GeminiRPS:             env.Float("GEMINI_RPS", 0),
		GeminiMaxRetries:      env.Int("GEMINI_MAX_RETRIES", 2),
		GeminiTemperature:     env.Float("GEMINI_TEMPERATURE", 0.3),
		GeminiMaxOutputTokens: env.Int("GEMINI_MAX_OUTPUT_TOKENS", 8000),
		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		CaptionLanguages:      env.List("CAPTION_LANGUAGES", "en,en-US,en-GB,ko,ko-KR,ja,zh,zh-CN,zh-TW,es,fr,de,it,pt,ru,ar"),
		MaxThumbnails:         env.Int("MAX_THUMBNAILS", 2),
		MaxTranscriptChars:    env.Int("MAX_TRANSCRIPT_CHARS", 12000),
		CacheMaxEntries:       env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:  env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	switch env.Str("LLM_BACKEND", "gemini") {
	case "openai":
		base := env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai")
		key := env.Str("LLM_API_KEY", "")
		fallbacks := env.List("LLM_API_KEY_FALLBACKS", "")
		c.Generator = engine.NewCompatGenerator(func(model string) engine.CompleteFunc {
			client := llm.NewClient(base, key, model,
				llm.WithFallbackKeys(fallbacks),
				llm.WithMaxTokens(c.GeminiMaxOutputTokens),
				llm.WithTemperature(c.GeminiTemperature),
				llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			)
			return func(ctx context.Context, system, prompt string) (string, error) {
				return client.Complete(ctx, system, prompt)
			}
		})
		slog.Info("llm backend: openai-compatible", slog.String("base", base))
	default:
		g, err := engine.NewGenaiGenerator(ctx, env.Str("GEMINI_API_KEY", ""))
		if err != nil {
			slog.Warn("gemini client init failed, analysis disabled", slog.Any("error", err))
		} else {
			c.Generator = g
			slog.Info("llm backend: gemini", slog.String("model", c.GeminiModel))
		}
	}

	engine.Init(c)
	engine.InitCache(
		env.Str("REDIS_URL", ""),
		env.Duration("CACHE_TTL", 24*time.Hour),
		c.CacheMaxEntries,
		c.CacheCleanupInterval,
	)
}

// initDrive returns nil when Drive is not configured or fails to initialize.
func initDrive(ctx context.Context) *drive.Uploader {
	dc := drive.Config{
		ServiceAccountJSON: env.Str("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		Email:              env.Str("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		PrivateKey:         env.Str("GOOGLE_PRIVATE_KEY", ""),
		Subject:            env.Str("GOOGLE_WORKSPACE_ADMIN_EMAIL", ""),
		Folder:             env.Str("GOOGLE_DRIVE_FOLDER_ID", ""),
		WeeklyFolders:      envBool("DRIVE_WEEKLY_FOLDERS", true),
	}
	if !dc.Configured() {
		slog.Info("drive upload disabled: no credentials")
		return nil
	}
	up, err := drive.New(ctx, dc)
	if err != nil {
		slog.Warn("drive init failed, upload disabled", slog.Any("error", err))
		return nil
	}
	slog.Info("drive upload enabled", slog.Bool("weekly_folders", dc.WeeklyFolders))
	return up
}

func startHTTP(h *webapi.Handler) *http.Server {
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + env.Str("HTTP_PORT", "3000"),
		Handler:           webapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
		}
	}()
	return srv
}

func shutdown(srv *http.Server, sched *scheduler.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
	}
	if err := sched.Stop(ctx); err != nil {
		slog.Warn("scheduler shutdown", slog.Any("error", err))
	}
	slog.Info("stopped")
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env.Str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}
