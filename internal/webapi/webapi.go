// Package webapi serves the REST API and the HTML dashboard.
package webapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/drive"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
	"github.com/anatolykoptev/go_adscore/internal/scheduler"
)

//go:embed templates/*.html
var templates embed.FS

// Store is the persistence the handlers read and write.
type Store interface {
	SaveVideo(ctx context.Context, v store.NewVideo) error
	Video(ctx context.Context, id string) (*store.Analysis, error)
	ListVideos(ctx context.Context, f store.ListFilter) ([]store.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	CompletedAnalyses(ctx context.Context, ids []string) ([]store.Analysis, error)
	Statistics(ctx context.Context) (store.Statistics, error)
	Healthy(ctx context.Context) error
}

// Handler holds the dependencies of every route.
type Handler struct {
	store      Store
	analyzer   *analysis.Analyzer
	automation *scheduler.Automation
	scheduler  *scheduler.Scheduler
	now        func() time.Time
}

// NewHandler builds a handler. automation and sched may be nil, which
// disables the corresponding routes.
func NewHandler(st Store, a *analysis.Analyzer, automation *scheduler.Automation, sched *scheduler.Scheduler) *Handler {
	return &Handler{store: st, analyzer: a, automation: automation, scheduler: sched, now: time.Now}
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"score": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
	}).ParseFS(templates, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)
	RegisterHandler(r, h)
	return r
}

// RegisterHandler mounts the dashboard and /api routes on r.
func RegisterHandler(r *gin.Engine, h *Handler) {
	r.GET("/", h.dashboard)

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.GET("/metrics", h.metrics)

	api.POST("/videos", h.submitVideos)
	api.GET("/videos", h.listVideos)
	api.GET("/videos/:id", h.getVideo)
	api.DELETE("/videos/:id", h.deleteVideo)

	api.POST("/analyze", h.analyze)
	api.GET("/analyze/progress", h.latestProgress)
	api.GET("/analyze/progress/:session", h.sessionProgress)

	api.GET("/db-stats", h.dbStats)
	api.GET("/export/:format", h.export)
	api.POST("/drive/upload", h.driveUpload)

	api.POST("/automation/trigger", h.trigger)
	api.GET("/scheduler", h.schedulerStatus)
	api.POST("/scheduler", h.schedulerControl)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// fail writes {"error": msg} with code.
func fail(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		slog.Error("http: request failed", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, scheduler.ErrNothingToUpload):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrNoVideos), errors.Is(err, scheduler.ErrUnknownAction),
		errors.Is(err, scheduler.ErrUnknownJob):
		return http.StatusBadRequest
	case errors.Is(err, drive.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// stringOrList decodes either "a" or ["a","b"].
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("links must be a string or an array of strings")
	}
	*s = many
	return nil
}
