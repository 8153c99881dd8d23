// Package scheduler drives unattended work: collecting ad links, draining
// the analysis queue, uploading reports to Drive, and health checks, either
// on cron schedules or on demand.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/collector"
	"github.com/anatolykoptev/go_adscore/internal/engine/drive"
	"github.com/anatolykoptev/go_adscore/internal/engine/export"
	"github.com/anatolykoptev/go_adscore/internal/engine/sources"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

// ErrUnknownAction is returned by Trigger for unsupported actions.
var ErrUnknownAction = errors.New("scheduler: unknown action")

// ErrNothingToUpload means there are no finished analyses to export.
var ErrNothingToUpload = errors.New("scheduler: no completed analyses to upload")

// Trigger actions.
const (
	ActionCollect           = "collect"
	ActionAnalyzePending    = "analyze_pending"
	ActionCollectAndAnalyze = "collect_and_analyze"
	ActionUpload            = "upload"
	ActionSync              = "sync"
)

// Collector runs the external ad collector.
type Collector interface {
	Run(ctx context.Context, opts collector.Options) (collector.Result, error)
}

// Store is the persistence automation needs.
type Store interface {
	SaveVideo(ctx context.Context, v store.NewVideo) error
	CompletedAnalyses(ctx context.Context, ids []string) ([]store.Analysis, error)
	Statistics(ctx context.Context) (store.Statistics, error)
	Healthy(ctx context.Context) error
}

// PendingAnalyzer drains the analysis queue.
type PendingAnalyzer interface {
	AnalyzePending(ctx context.Context, limit int, delay time.Duration) (analysis.PendingReport, error)
}

// Uploader stores a file remotely.
type Uploader interface {
	Upload(ctx context.Context, f drive.File) (drive.Uploaded, error)
}

// Automation bundles the unattended actions. Collector and Uploader may be nil.
type Automation struct {
	Collector      Collector
	Store          Store
	Analyzer       PendingAnalyzer
	Uploader       Uploader
	MaxAdsPerQuery int
	BatchLimit     int
	Delay          time.Duration
	now            func() time.Time
}

func (a *Automation) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// CollectReport is the outcome of one collector run.
type CollectReport struct {
	collector.Result
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Collect runs the collector and queues every returned ad link.
func (a *Automation) Collect(ctx context.Context, maxAds int) (CollectReport, error) {
	if a.Collector == nil {
		return CollectReport{}, errors.New("scheduler: collector not configured")
	}
	if maxAds <= 0 {
		maxAds = a.MaxAdsPerQuery
	}
	res, err := a.Collector.Run(ctx, collector.Options{Action: collector.ActionCollect, MaxAdsPerQuery: maxAds})
	if err != nil {
		return CollectReport{Result: res}, err
	}
	rep := CollectReport{Result: res}
	for _, ad := range res.Ads {
		id, err := sources.ExtractVideoID(ad.URL)
		if err != nil {
			rep.Skipped++
			continue
		}
		if err := a.Store.SaveVideo(ctx, store.NewVideo{ID: id, Title: ad.Title, URL: ad.URL, Note: ad.Note}); err != nil {
			slog.Warn("scheduler: save collected ad", slog.String("url", ad.URL), slog.Any("error", err))
			rep.Skipped++
			continue
		}
		rep.Saved++
	}
	slog.Info("scheduler: collect done",
		slog.Int("collected", res.TotalCollected), slog.Int("saved", rep.Saved), slog.Int("skipped", rep.Skipped))
	return rep, nil
}

// AnalyzePending drains up to BatchLimit queued videos.
func (a *Automation) AnalyzePending(ctx context.Context) (analysis.PendingReport, error) {
	limit := a.BatchLimit
	if limit <= 0 {
		limit = 10
	}
	return a.Analyzer.AnalyzePending(ctx, limit, a.Delay)
}

// CollectAndAnalyzeReport combines both steps.
type CollectAndAnalyzeReport struct {
	Collect CollectReport          `json:"collect"`
	Analyze analysis.PendingReport `json:"analyze"`
}

// CollectAndAnalyze collects then analyzes the queue.
func (a *Automation) CollectAndAnalyze(ctx context.Context, maxAds int) (CollectAndAnalyzeReport, error) {
	var rep CollectAndAnalyzeReport
	var err error
	if rep.Collect, err = a.Collect(ctx, maxAds); err != nil {
		return rep, err
	}
	rep.Analyze, err = a.AnalyzePending(ctx)
	return rep, err
}

// UploadExport renders the selected analyses (all finished ones when ids is
// empty) and uploads the file.
func (a *Automation) UploadExport(ctx context.Context, f export.Format, ids []string) (drive.Uploaded, error) {
	if a.Uploader == nil {
		return drive.Uploaded{}, drive.ErrNotConfigured
	}
	analyses, err := a.Store.CompletedAnalyses(ctx, ids)
	if err != nil {
		return drive.Uploaded{}, err
	}
	if len(analyses) == 0 {
		return drive.Uploaded{}, ErrNothingToUpload
	}

	now := a.clock()
	var buf bytes.Buffer
	var name string
	switch f {
	case export.FormatXLSX:
		if err := export.WriteWorkbook(&buf, analyses, now); err != nil {
			return drive.Uploaded{}, err
		}
		name = export.WorkbookFileName(reportTitle(analyses), now)
	default:
		if err := export.Write(&buf, f, analyses); err != nil {
			return drive.Uploaded{}, err
		}
		name = export.ExportFileName(reportTitle(analyses), f, now)
	}
	return a.Uploader.Upload(ctx, drive.File{Name: name, MimeType: f.ContentType(), Data: buf.Bytes()})
}

// UploadLatest uploads a workbook of every finished analysis.
func (a *Automation) UploadLatest(ctx context.Context) (drive.Uploaded, error) {
	return a.UploadExport(ctx, export.FormatXLSX, nil)
}

func reportTitle(analyses []store.Analysis) string {
	if len(analyses) == 1 {
		return analyses[0].Title
	}
	return strconv.Itoa(len(analyses)) + "_videos"
}

// HealthReport is the periodic health snapshot.
type HealthReport struct {
	OK         bool                  `json:"ok"`
	Database   string                `json:"database"`
	Statistics store.Statistics      `json:"statistics"`
	Limiters   []engine.LimiterStats `json:"limiters"`
	Metrics    map[string]int64      `json:"metrics"`
	CheckedAt  time.Time             `json:"checked_at"`
}

// Health checks the database and reports limiter pressure.
func (a *Automation) Health(ctx context.Context) (HealthReport, error) {
	rep := HealthReport{OK: true, Database: "ok", CheckedAt: a.clock(), Limiters: engine.LimiterSnapshot(), Metrics: engine.GetMetrics()}
	if err := a.Store.Healthy(ctx); err != nil {
		rep.OK = false
		rep.Database = err.Error()
		return rep, err
	}
	st, err := a.Store.Statistics(ctx)
	if err != nil {
		rep.OK = false
		return rep, err
	}
	rep.Statistics = st
	for _, l := range rep.Limiters {
		if l.Queued > 0 {
			slog.Debug("scheduler: limiter backlog", slog.String("limiter", l.Name), slog.Int64("queued", l.Queued))
		}
	}
	return rep, nil
}

// TriggerOptions tune Trigger.
type TriggerOptions struct {
	MaxAdsPerQuery int `json:"maxAdsPerQuery"`
}

// Trigger runs a named action and returns its report.
func (a *Automation) Trigger(ctx context.Context, action string, opts TriggerOptions) (any, error) {
	slog.Info("scheduler: trigger", slog.String("action", action))
	switch action {
	case ActionCollect:
		return a.Collect(ctx, opts.MaxAdsPerQuery)
	case ActionAnalyzePending:
		return a.AnalyzePending(ctx)
	case ActionCollectAndAnalyze:
		return a.CollectAndAnalyze(ctx, opts.MaxAdsPerQuery)
	case ActionUpload:
		return a.UploadLatest(ctx)
	case ActionSync:
		if a.Collector == nil {
			return nil, errors.New("scheduler: collector not configured")
		}
		return a.Collector.Run(ctx, collector.Options{Action: collector.ActionSync, MaxAdsPerQuery: opts.MaxAdsPerQuery})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}
