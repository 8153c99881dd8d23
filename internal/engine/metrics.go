package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	GeminiCalls       atomic.Int64
	GeminiErrors      atomic.Int64
	GeminiRetries     atomic.Int64
	GeminiFallbacks   atomic.Int64
	YouTubeRequests   atomic.Int64
	YouTubeErrors     atomic.Int64
	CaptionRequests   atomic.Int64
	AnalysesCompleted atomic.Int64
	AnalysesFailed    atomic.Int64
	DriveUploads      atomic.Int64
	DriveErrors       atomic.Int64
	CollectorRuns     atomic.Int64
	CollectorErrors   atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"gemini_calls", "gemini_errors", "gemini_retries", "gemini_fallbacks",
	"youtube_requests", "youtube_errors", "caption_requests",
	"analyses_completed", "analyses_failed",
	"drive_uploads", "drive_errors",
	"collector_runs", "collector_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"gemini_calls":       metrics.GeminiCalls.Load(),
		"gemini_errors":      metrics.GeminiErrors.Load(),
		"gemini_retries":     metrics.GeminiRetries.Load(),
		"gemini_fallbacks":   metrics.GeminiFallbacks.Load(),
		"youtube_requests":   metrics.YouTubeRequests.Load(),
		"youtube_errors":     metrics.YouTubeErrors.Load(),
		"caption_requests":   metrics.CaptionRequests.Load(),
		"analyses_completed": metrics.AnalysesCompleted.Load(),
		"analyses_failed":    metrics.AnalysesFailed.Load(),
		"drive_uploads":      metrics.DriveUploads.Load(),
		"drive_errors":       metrics.DriveErrors.Load(),
		"collector_runs":     metrics.CollectorRuns.Load(),
		"collector_errors":   metrics.CollectorErrors.Load(),
		"cache_hits":         hits,
		"cache_misses":       misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	for _, s := range LimiterSnapshot() {
		fmt.Fprintf(&sb, "limiter_%s_in_flight %d\n", s.Name, s.InFlight)
		fmt.Fprintf(&sb, "limiter_%s_queued %d\n", s.Name, s.Queued)
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrYouTubeRequests()   { metrics.YouTubeRequests.Add(1) }
func IncrYouTubeErrors()     { metrics.YouTubeErrors.Add(1) }
func IncrCaptionRequests()   { metrics.CaptionRequests.Add(1) }
func IncrAnalysesCompleted() { metrics.AnalysesCompleted.Add(1) }
func IncrAnalysesFailed()    { metrics.AnalysesFailed.Add(1) }
func IncrDriveUploads()      { metrics.DriveUploads.Add(1) }
func IncrDriveErrors()       { metrics.DriveErrors.Add(1) }
func IncrCollectorRuns()     { metrics.CollectorRuns.Add(1) }
func IncrCollectorErrors()   { metrics.CollectorErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
