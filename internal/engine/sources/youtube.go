package sources

// YouTube access is split across files by responsibility:
//   youtube.go         : video id parsing and metadata (Data API v3 with watch page fallback)
//   youtube_page.go    : watch page <meta> scraping
//   youtube_captions.go: timedtext caption fallback chain
//   thumbnails.go      : thumbnail URLs and downloads for multimodal prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// VideoMetadata is the subset of YouTube video data used for scoring.
type VideoMetadata struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	ChannelTitle string   `json:"channel_title,omitempty"`
	PublishedAt  string   `json:"published_at,omitempty"`
	Duration     string   `json:"duration,omitempty"` // ISO 8601, e.g. PT1M5S
	Tags         []string `json:"tags,omitempty"`
	CategoryID   string   `json:"category_id,omitempty"`
	Language     string   `json:"language,omitempty"`
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Source       string   `json:"source"` // data_api | watch_page
}

// ErrInvalidVideoURL is returned for links without a recognizable video id.
var ErrInvalidVideoURL = errors.New("not a YouTube video link")

// ErrVideoNotFound is returned when the Data API knows no such video.
var ErrVideoNotFound = errors.New("youtube video not found")

var (
	videoIDRE   = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ExtractVideoID returns the 11-character id from a YouTube link or a bare id.
func ExtractVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if bareVideoID.MatchString(link) {
		return link, nil
	}
	if m := videoIDRE.FindStringSubmatch(link); len(m) == 2 {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVideoURL, link)
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// FetchMetadata returns metadata for a video id. Results are cached.
// The Data API is preferred; without a key, or when every key fails, the
// public watch page is scraped instead.
func FetchMetadata(ctx context.Context, id string) (*VideoMetadata, error) {
	cacheKey := engine.CacheKey("yt_meta", id)
	if cached, ok := engine.CacheLoadJSON[VideoMetadata](ctx, cacheKey); ok {
		return &cached, nil
	}

	var meta *VideoMetadata
	var err error
	if keys := apiKeys(); len(keys) > 0 {
		meta, err = fetchDataAPI(ctx, id, keys)
		if errors.Is(err, ErrVideoNotFound) {
			return nil, err
		}
		if err != nil {
			slog.Warn("youtube: data API failed, scraping watch page", slog.String("video", id), slog.Any("error", err))
		}
	}
	if meta == nil {
		meta, err = scrapeWatchPage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("youtube metadata %s: %w", id, err)
		}
	}

	engine.CacheStoreJSON(ctx, cacheKey, *meta)
	return meta, nil
}

func apiKeys() []string {
	var keys []string
	if engine.Cfg.YouTubeAPIKey != "" {
		keys = append(keys, engine.Cfg.YouTubeAPIKey)
	}
	if engine.Cfg.YouTubeAPIKeyFallback != "" {
		keys = append(keys, engine.Cfg.YouTubeAPIKeyFallback)
	}
	return keys
}

// Seams for tests.
var (
	listVideo     = doVideosList
	metadataRetry = engine.DefaultRetryConfig
)

// fetchDataAPI queries videos.list, falling back to the next key on failure
// (typically 403 quota exhaustion). Every attempt, retries included, takes its
// own YouTube limiter slot; backoff waits happen outside the limiter.
func fetchDataAPI(ctx context.Context, id string, keys []string) (*VideoMetadata, error) {
	var lastErr error
	for _, key := range keys {
		meta, err := engine.RetryDo(ctx, metadataRetry, func() (*VideoMetadata, error) {
			return engine.Schedule(ctx, engine.YouTubeLimiter, func(ctx context.Context) (*VideoMetadata, error) {
				return listVideo(ctx, id, key)
			})
		})
		if err == nil || errors.Is(err, ErrVideoNotFound) {
			return meta, err
		}
		engine.IncrYouTubeErrors()
		lastErr = err
		slog.Debug("youtube data API key failed, trying fallback", slog.Any("err", err))
	}
	return nil, lastErr
}

// services holds one Data API client per key.
var services sync.Map // key -> *youtube.Service

func serviceFor(key string) (*youtube.Service, error) {
	if svc, ok := services.Load(key); ok {
		return svc.(*youtube.Service), nil
	}
	svc, err := youtube.NewService(context.Background(), option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	actual, _ := services.LoadOrStore(key, svc)
	return actual.(*youtube.Service), nil
}

func doVideosList(ctx context.Context, id, key string) (*VideoMetadata, error) {
	engine.IncrYouTubeRequests()
	svc, err := serviceFor(key)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, id)
	}
	return metadataFromVideo(resp.Items[0]), nil
}

// metadataFromVideo maps a Data API video resource.
func metadataFromVideo(v *youtube.Video) *VideoMetadata {
	meta := &VideoMetadata{ID: v.Id, Source: "data_api"}
	if s := v.Snippet; s != nil {
		meta.Title = s.Title
		meta.Description = s.Description
		meta.ChannelTitle = s.ChannelTitle
		meta.PublishedAt = s.PublishedAt
		meta.Tags = s.Tags
		meta.CategoryID = s.CategoryId
		meta.Language = s.DefaultAudioLanguage
		if meta.Language == "" {
			meta.Language = s.DefaultLanguage
		}
		if th := s.Thumbnails; th != nil {
			for _, t := range []*youtube.Thumbnail{th.Maxres, th.Standard, th.High, th.Medium, th.Default} {
				if t != nil && t.Url != "" {
					meta.ThumbnailURL = t.Url
					break
				}
			}
		}
	}
	if st := v.Statistics; st != nil {
		meta.ViewCount = int64(st.ViewCount)
		meta.LikeCount = int64(st.LikeCount)
		meta.CommentCount = int64(st.CommentCount)
	}
	if cd := v.ContentDetails; cd != nil {
		meta.Duration = cd.Duration
	}
	return meta
}
