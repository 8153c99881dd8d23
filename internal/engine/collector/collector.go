// Package collector runs the Python ad collector as a subprocess and parses
// the result line it prints.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_adscore/internal/engine"
)

// Result markers the scripts print before their JSON summary.
const (
	MarkerResultJSON = "RESULT_JSON:"
	MarkerResult     = "RESULT:"
	MarkerSync       = "SYNC_RESULT:"
)

// ErrNoResult means the script exited cleanly without printing a result line.
var ErrNoResult = errors.New("collector: no result line in output")

// Action is the collector mode.
type Action string

const (
	ActionCollect Action = "collect"
	ActionSync    Action = "sync"
)

// Config locates the interpreter and script.
type Config struct {
	Python  string
	Script  string
	WorkDir string
	Timeout time.Duration
}

// Options tune one run.
type Options struct {
	Action         Action
	MaxAdsPerQuery int
	Queries        []string
}

// Ad is one collected ad link.
type Ad struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note,omitempty"`
}

// Result is the script's JSON summary.
type Result struct {
	Success        bool           `json:"success"`
	TotalCollected int            `json:"total_collected"`
	NewAds         int            `json:"new_ads"`
	Sent           int            `json:"sent"`
	Ads            []Ad           `json:"ads,omitempty"`
	Stats          map[string]any `json:"stats,omitempty"`
	// Output is the captured stdout, kept for diagnostics.
	Output string `json:"-"`
}

// Collector runs the configured script.
type Collector struct {
	cfg Config
}

// New fills defaults.
func New(c Config) *Collector {
	if c.Python == "" {
		c.Python = "python3"
	}
	if c.Script == "" {
		c.Script = "python_scripts/youtube_ads_collector_auto_wrapper.py"
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return &Collector{cfg: c}
}

// Run executes the script and returns its parsed result. When the script
// prints no marker the returned Result still carries the raw output.
func (c *Collector) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Action == "" {
		opts.Action = ActionCollect
	}
	if opts.MaxAdsPerQuery <= 0 {
		opts.MaxAdsPerQuery = 20
	}
	engine.IncrCollectorRuns()
	res, err := engine.Schedule(ctx, engine.SerpLimiter, func(ctx context.Context) (Result, error) {
		return c.run(ctx, opts)
	})
	if err != nil {
		engine.IncrCollectorErrors()
	}
	return res, err
}

func (c *Collector) run(ctx context.Context, opts Options) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.Python, c.cfg.Script, "--mode", string(opts.Action))
	cmd.Dir = c.cfg.WorkDir
	cmd.Env = append(os.Environ(),
		"MAX_ADS_PER_QUERY="+strconv.Itoa(opts.MaxAdsPerQuery),
		"AUTO_MODE=true",
	)
	if len(opts.Queries) > 0 {
		cmd.Env = append(cmd.Env, "SEARCH_QUERIES="+strings.Join(opts.Queries, ","))
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &lineLogger{buf: &stdout, stream: "stdout"}
	cmd.Stderr = &lineLogger{buf: &stderr, stream: "stderr"}

	start := time.Now()
	slog.Info("collector: starting", slog.String("action", string(opts.Action)), slog.String("script", c.cfg.Script))
	err := cmd.Run()
	slog.Info("collector: finished", slog.String("action", string(opts.Action)),
		slog.Duration("took", time.Since(start)), slog.Bool("ok", err == nil))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{Output: stdout.String()}, fmt.Errorf("collector: timed out after %s", c.cfg.Timeout)
		}
		return Result{Output: stdout.String()}, fmt.Errorf("collector: %w: %s", err, tail(stderr.String(), 500))
	}

	res, err := ParseResult(stdout.String())
	res.Output = stdout.String()
	return res, err
}

// ParseResult decodes the last marker line in output.
func ParseResult(output string) (Result, error) {
	var payload string
	found := false
	for _, line := range strings.Split(output, "\n") {
		for _, m := range []string{MarkerResultJSON, MarkerSync, MarkerResult} {
			if i := strings.Index(line, m); i >= 0 {
				payload = strings.TrimSpace(line[i+len(m):])
				found = true
				break
			}
		}
	}
	if !found {
		return Result{}, ErrNoResult
	}
	var res Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return Result{}, fmt.Errorf("collector: decode result: %w", err)
	}
	return res, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// lineLogger captures output and mirrors complete lines to slog.
type lineLogger struct {
	buf     *bytes.Buffer
	stream  string
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf.Write(p)
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(l.pending[:i])); line != "" {
			slog.Debug("collector: output", slog.String("stream", l.stream), slog.String("line", line))
		}
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}
