// Package analysis runs the per-video pipeline: metadata, captions and
// thumbnails from YouTube, rubric scoring by the model, persistence. Batches
// run under a session id whose progress is kept in a Tracker.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
	"github.com/anatolykoptev/go_adscore/internal/engine/sources"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

// ErrNoVideos is returned when a batch has nothing to analyze.
var ErrNoVideos = errors.New("analysis: no videos to analyze")

// Store is the persistence the pipeline needs.
type Store interface {
	SaveVideo(ctx context.Context, v store.NewVideo) error
	MarkAnalyzing(ctx context.Context, id string) error
	SaveAnalysisResult(ctx context.Context, r store.Result) error
	MarkAnalysisFailed(ctx context.Context, id, message string) error
	PendingVideos(ctx context.Context, limit int) ([]store.Video, error)
}

// Config wires the analyzer. Nil fetchers default to the sources package and
// a nil Generate to engine.Generate.
type Config struct {
	Store       Store
	Metadata    func(ctx context.Context, id string) (*sources.VideoMetadata, error)
	Captions    func(ctx context.Context, id string, langs []string) (sources.Captions, error)
	Thumbnails  func(ctx context.Context, id string, max int) []engine.InlineImage
	Generate    func(ctx context.Context, req engine.GenerateRequest) (engine.Generation, error)
	Concurrency int
	ProgressTTL time.Duration
}

// Request is one video to analyze.
type Request struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Note  string `json:"note,omitempty"`
}

// Outcome is the settled result of one video.
type Outcome struct {
	VideoID    string         `json:"id"`
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Status     store.Status   `json:"status"`
	Model      string         `json:"model,omitempty"`
	Language   string         `json:"script_language,omitempty"`
	Completion float64        `json:"completion"`
	Missing    int            `json:"missing_features"`
	Scores     adscore.Scores `json:"scores"`
	Error      string         `json:"error,omitempty"`
}

func (o Outcome) progress() VideoProgress {
	return VideoProgress{
		ID:         o.VideoID,
		URL:        o.URL,
		Title:      o.Title,
		Status:     string(o.Status),
		Completion: o.Completion,
		Hybrid:     o.Scores.Hybrid,
		Error:      o.Error,
	}
}

// Analyzer runs analyses. Background sessions use the context given to New,
// so they stop when the server shuts down.
type Analyzer struct {
	cfg     Config
	base    context.Context
	tracker *Tracker
	now     func() time.Time
}

// New builds an analyzer bound to the server lifetime ctx.
func New(ctx context.Context, c Config) *Analyzer {
	if c.Metadata == nil {
		c.Metadata = sources.FetchMetadata
	}
	if c.Captions == nil {
		c.Captions = sources.FetchCaptions
	}
	if c.Thumbnails == nil {
		c.Thumbnails = sources.FetchThumbnails
	}
	if c.Generate == nil {
		c.Generate = engine.Generate
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	return &Analyzer{cfg: c, base: ctx, tracker: NewTracker(c.ProgressTTL), now: time.Now}
}

// Tracker exposes session progress.
func (a *Analyzer) Tracker() *Tracker { return a.tracker }

// AnalyzeVideo runs the full pipeline for one video. Failures after the
// video id is known are recorded on the stored row.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, req Request) (Outcome, error) {
	return a.analyze(ctx, req, func(Stage) {})
}

func (a *Analyzer) analyze(ctx context.Context, req Request, onStage func(Stage)) (Outcome, error) {
	req.URL = strings.TrimSpace(req.URL)
	out := Outcome{URL: req.URL, Title: req.Title, Status: store.StatusFailed}

	id, err := sources.ExtractVideoID(req.URL)
	if err != nil {
		out.Error = err.Error()
		engine.IncrAnalysesFailed()
		return out, fmt.Errorf("analysis: %q: %w", req.URL, err)
	}
	out.VideoID = id

	err = engine.TrackOperation(ctx, "analyze_video", 3*time.Minute, func(ctx context.Context) error {
		return a.run(ctx, id, req, &out, onStage)
	})
	if err != nil {
		out.Status = store.StatusFailed
		out.Error = err.Error()
		engine.IncrAnalysesFailed()
		slog.Error("analysis: video failed", slog.String("video", id), slog.Any("error", err))
		// record the failure even when ctx was cancelled
		if ferr := a.cfg.Store.MarkAnalysisFailed(context.WithoutCancel(ctx), id, err.Error()); ferr != nil && !errors.Is(ferr, store.ErrNotFound) {
			slog.Warn("analysis: mark failed", slog.String("video", id), slog.Any("error", ferr))
		}
		return out, err
	}
	engine.IncrAnalysesCompleted()
	return out, nil
}

func (a *Analyzer) run(ctx context.Context, id string, req Request, out *Outcome, onStage func(Stage)) error {
	if err := a.cfg.Store.SaveVideo(ctx, store.NewVideo{ID: id, Title: req.Title, URL: req.URL, Note: req.Note}); err != nil {
		return err
	}
	if err := a.cfg.Store.MarkAnalyzing(ctx, id); err != nil {
		return err
	}

	onStage(StageYouTube)
	meta, err := a.cfg.Metadata(ctx, id)
	if err != nil {
		return fmt.Errorf("youtube metadata: %w", err)
	}
	if out.Title == "" {
		out.Title = meta.Title
	}
	caps, err := a.cfg.Captions(ctx, id, engine.Cfg.CaptionLanguages)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("analysis: captions unavailable", slog.String("video", id), slog.Any("error", err))
		caps = sources.Captions{Language: "none"}
	}
	images := a.cfg.Thumbnails(ctx, id, engine.Cfg.MaxThumbnails)

	onStage(StageGemini)
	gen, err := a.cfg.Generate(ctx, engine.GenerateRequest{
		System: adscore.SystemPrompt(),
		Prompt: adscore.BuildPrompt(adscore.VideoContext{
			Title:          firstNonEmpty(meta.Title, req.Title),
			Channel:        meta.ChannelTitle,
			Duration:       meta.Duration,
			PublishedAt:    meta.PublishedAt,
			Tags:           meta.Tags,
			Description:    meta.Description,
			Transcript:     caps.Text,
			TranscriptLang: caps.Language,
			Note:           req.Note,
			ImageCount:     len(images),
		}, engine.Cfg.MaxTranscriptChars),
		Images: images,
	})
	if err != nil {
		return err
	}

	vals, err := adscore.ParseResponse(gen.Text)
	if err != nil {
		return fmt.Errorf("parse model answer: %w", err)
	}
	vals.Fill()
	comp := vals.Completion()
	scores := adscore.ComputeScores(adscore.Stats{
		Views:       meta.ViewCount,
		Likes:       meta.LikeCount,
		Comments:    meta.CommentCount,
		Duration:    meta.Duration,
		PublishedAt: meta.PublishedAt,
	}, vals, a.now())

	status := store.StatusCompleted
	if comp.Percentage <= successThreshold {
		status = store.StatusIncomplete
	}
	err = a.cfg.Store.SaveAnalysisResult(ctx, store.Result{
		VideoID:        id,
		Title:          firstNonEmpty(req.Title, meta.Title),
		URL:            req.URL,
		Note:           req.Note,
		Status:         status,
		ScriptLanguage: caps.Language,
		ViewCount:      meta.ViewCount,
		LikeCount:      meta.LikeCount,
		CommentCount:   meta.CommentCount,
		Duration:       meta.Duration,
		ChannelTitle:   meta.ChannelTitle,
		PublishedAt:    meta.PublishedAt,
		Model:          gen.Model,
		Completion:     comp.Percentage,
		Scores:         scores,
		Values:         vals,
	})
	if err != nil {
		return err
	}

	out.Status = status
	out.Model = gen.Model
	out.Language = caps.Language
	out.Completion = comp.Percentage
	out.Missing = len(comp.Missing)
	out.Scores = scores
	slog.Info("analysis: video done",
		slog.String("video", id),
		slog.String("status", string(status)),
		slog.Float64("completion", comp.Percentage),
		slog.Float64("hybrid", scores.Hybrid),
		slog.String("model", gen.Model))
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func validRequests(reqs []Request) []Request {
	var out []Request
	for _, r := range reqs {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL != "" {
			out = append(out, r)
		}
	}
	return out
}

// Start launches a background session and returns its id immediately.
func (a *Analyzer) Start(reqs []Request) (string, error) {
	reqs = validRequests(reqs)
	if len(reqs) == 0 {
		return "", ErrNoVideos
	}
	id := uuid.NewString()
	a.tracker.begin(id, reqs)
	slog.Info("analysis: session started", slog.String("session", id), slog.Int("videos", len(reqs)))
	go a.runSession(a.base, id, reqs)
	return id, nil
}

// Run analyzes a batch synchronously. Every request settles into an Outcome,
// failed ones included.
func (a *Analyzer) Run(ctx context.Context, reqs []Request) (string, []Outcome, error) {
	reqs = validRequests(reqs)
	if len(reqs) == 0 {
		return "", nil, ErrNoVideos
	}
	id := uuid.NewString()
	a.tracker.begin(id, reqs)
	return id, a.runSession(ctx, id, reqs), nil
}

func (a *Analyzer) runSession(ctx context.Context, session string, reqs []Request) []Outcome {
	results := make([]Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, r := range reqs {
		g.Go(func() error {
			o, _ := a.analyze(gctx, r, func(st Stage) { a.tracker.stage(session, i, st) })
			results[i] = o
			a.tracker.settle(session, i, o)
			return nil
		})
	}
	_ = g.Wait()
	a.tracker.finish(session)
	stats := Summarize(results)
	slog.Info("analysis: session finished", slog.String("session", session),
		slog.Int("success", stats.Success), slog.Int("failure", stats.Failure))
	return results
}

// Summarize counts successes (completed above 5%) and failures.
func Summarize(outcomes []Outcome) ProgressStats {
	p := Progress{Total: len(outcomes), Completed: len(outcomes)}
	for _, o := range outcomes {
		p.Videos = append(p.Videos, o.progress())
	}
	p.recount()
	return p.Statistics
}

// PendingReport summarizes one queue drain.
type PendingReport struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// AnalyzePending analyzes up to limit queued videos one at a time, pausing
// delay between them.
func (a *Analyzer) AnalyzePending(ctx context.Context, limit int, delay time.Duration) (PendingReport, error) {
	var rep PendingReport
	videos, err := a.cfg.Store.PendingVideos(ctx, limit)
	if err != nil {
		return rep, fmt.Errorf("analysis: pending: %w", err)
	}
	for i, v := range videos {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return rep, ctx.Err()
			}
		}
		title := v.Title
		if title == v.URL {
			title = ""
		}
		o, err := a.AnalyzeVideo(ctx, Request{URL: v.URL, Title: title, Note: v.Note})
		rep.Processed++
		if err != nil {
			rep.Failed++
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			continue
		}
		if o.Status == store.StatusCompleted {
			rep.Completed++
		} else {
			rep.Failed++
		}
	}
	if rep.Processed > 0 {
		slog.Info("analysis: pending pass done", slog.Int("processed", rep.Processed),
			slog.Int("completed", rep.Completed), slog.Int("failed", rep.Failed))
	}
	return rep, nil
}
