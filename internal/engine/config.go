package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	GeminiModel           string
	GeminiFallbackModels  []string
	GeminiRPS             float64
	GeminiMaxRetries      int
	GeminiTemperature     float64
	GeminiMaxOutputTokens int
	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	CaptionLanguages      []string
	MaxThumbnails         int
	MaxTranscriptChars    int
	CacheMaxEntries       int
	CacheCleanupInterval  time.Duration
	HTTPClient            *http.Client
	Generator             Generator // nil = analysis disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, analysis).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration and rebuilds the
// shared limiters from it.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg = c
	Cfg = &cfg
	initLimiters(c.GeminiRPS)
}
