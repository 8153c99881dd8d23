package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// InlineImage is an image sent alongside a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest is one prompt for a text model.
type GenerateRequest struct {
	System          string
	Prompt          string
	Images          []InlineImage
	Temperature     float64
	MaxOutputTokens int
}

// Generator produces text for a prompt with a specific model.
type Generator interface {
	Generate(ctx context.Context, model string, req GenerateRequest) (string, error)
}

// Generation is a successful model answer.
type Generation struct {
	Text     string
	Model    string
	Attempts int
}

// GenerationError is returned once every model has failed.
type GenerationError struct {
	Models []string
	Err    error
}

func (e *GenerationError) Error() string {
	var se *StatusError
	if errors.As(e.Err, &se) {
		return fmt.Sprintf("[Gemini] %d %s", se.Code, se.Message)
	}
	if code := StatusCode(e.Err); code > 0 {
		return fmt.Sprintf("[Gemini] %d %s", code, e.Err.Error())
	}
	return "[Gemini] " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ErrNoGenerator is returned when no model backend is configured.
var ErrNoGenerator = errors.New("llm: no generator configured")

// blockedModelMarkers exclude retired model generations from the fallback chain.
var blockedModelMarkers = []string{"1.5", "2.0"}

// safetyModel is used when every configured model is blocked.
const safetyModel = "gemini-2.5-flash"

// geminiRetry is the per-model retry policy.
var geminiRetry = RetryConfig{
	MaxRetries:  2,
	InitialWait: 800 * time.Millisecond,
	MaxWait:     8 * time.Second,
	Multiplier:  2,
	Jitter:      0.1,
	Retryable:   isRetryableGeneration,
}

// isRetryableGeneration treats errors without any upstream status as transient.
func isRetryableGeneration(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if StatusCode(err) == 0 {
		return true
	}
	return IsTransient(err)
}

// Models returns the primary model followed by fallbacks, deduplicated, with
// blocked generations removed. It never returns an empty chain.
func Models() []string {
	all := append([]string{cfg.GeminiModel}, cfg.GeminiFallbackModels...)
	seen := make(map[string]bool, len(all))
	out := make([]string, 0, len(all))
	for _, m := range all {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		if isBlockedModel(m) {
			slog.Warn("llm: skipping blocked model", slog.String("model", m))
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		slog.Warn("llm: no usable model configured, using safety model", slog.String("model", safetyModel))
		out = append(out, safetyModel)
	}
	return out
}

func isBlockedModel(m string) bool {
	for _, marker := range blockedModelMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// Generate sends req to the configured generator. Each model is retried on
// transient errors with jittered backoff through the Gemini limiter; when a
// model is exhausted or fails permanently the next fallback model is tried.
func Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	if cfg.Generator == nil {
		return Generation{}, ErrNoGenerator
	}
	if req.Temperature == 0 {
		req.Temperature = cfg.GeminiTemperature
	}
	if req.MaxOutputTokens == 0 {
		req.MaxOutputTokens = cfg.GeminiMaxOutputTokens
	}

	models := Models()

	rc := geminiRetry
	if cfg.GeminiMaxRetries > 0 {
		rc.MaxRetries = cfg.GeminiMaxRetries
	}

	attempts := 0
	var lastErr error
	for i, model := range models {
		if i > 0 {
			metrics.GeminiFallbacks.Add(1)
			slog.Warn("llm: falling back", slog.String("model", model), slog.Any("error", lastErr))
		}
		rc.OnRetry = func(ev RetryEvent) {
			metrics.GeminiRetries.Add(1)
			slog.Warn("llm: transient error, retrying",
				slog.String("model", model),
				slog.Int("attempt", ev.Attempt),
				slog.Int("status", StatusCode(ev.Err)),
				slog.Duration("wait", ev.Wait),
				slog.Any("error", ev.Err),
			)
		}
		text, err := RetryDo(ctx, rc, func() (string, error) {
			attempts++
			return Schedule(ctx, GeminiLimiter, func(ctx context.Context) (string, error) {
				metrics.GeminiCalls.Add(1)
				out, err := cfg.Generator.Generate(ctx, model, req)
				if err == nil && strings.TrimSpace(out) == "" {
					err = &StatusError{Code: 503, Message: "empty response"}
				}
				if err != nil {
					metrics.GeminiErrors.Add(1)
				}
				return out, err
			})
		})
		if err == nil {
			return Generation{Text: text, Model: model, Attempts: attempts}, nil
		}
		if ctx.Err() != nil {
			return Generation{}, ctx.Err()
		}
		lastErr = err
	}
	return Generation{}, &GenerationError{Models: models, Err: lastErr}
}

// CompleteFunc is a single-model text completion call.
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// CompatGenerator serves models through OpenAI-compatible completion
// clients, one per model, created on first use.
type CompatGenerator struct {
	newClient func(model string) CompleteFunc

	mu      sync.Mutex
	clients map[string]CompleteFunc
}

// NewCompatGenerator returns a generator backed by newClient.
func NewCompatGenerator(newClient func(model string) CompleteFunc) *CompatGenerator {
	return &CompatGenerator{newClient: newClient, clients: make(map[string]CompleteFunc)}
}

// Generate implements Generator. Images are not forwarded.
func (g *CompatGenerator) Generate(ctx context.Context, model string, req GenerateRequest) (string, error) {
	g.mu.Lock()
	c, ok := g.clients[model]
	if !ok {
		c = g.newClient(model)
		g.clients[model] = c
	}
	g.mu.Unlock()

	out, err := c(ctx, req.System, req.Prompt)
	if err != nil {
		return "", classifyCompatError(err)
	}
	return out, nil
}

// compatStatusRE finds an HTTP status that the error text labels as one.
var compatStatusRE = regexp.MustCompile(`(?i)\b(?:status(?:\s+code)?|http)\s*[:=]?\s*([1-5]\d{2})\b`)

// classifyCompatError recovers an HTTP status from a compatible client's
// error text so retry classification can see it.
func classifyCompatError(err error) error {
	msg := err.Error()
	m := compatStatusRE.FindStringSubmatch(msg)
	if m == nil {
		return err
	}
	code, _ := strconv.Atoi(m[1])
	return fmt.Errorf("%w: %w", &StatusError{Code: code, Message: msg}, err)
}
