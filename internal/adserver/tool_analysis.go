package adserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/sources"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
	"github.com/anatolykoptev/go_adscore/internal/toolutil"
)

// AnalyzeVideoInput is the input for analyze_video.
type AnalyzeVideoInput struct {
	URL   string `json:"url" jsonschema:"YouTube link or 11-character video id"`
	Title string `json:"title,omitempty" jsonschema:"optional title override"`
	Note  string `json:"note,omitempty" jsonschema:"optional free-form note stored with the video"`
}

func registerAnalyzeVideo(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_video",
		Description: "Analyze a YouTube ad against the 156-item creative rubric with Gemini. Fetches metadata, captions and thumbnails, stores every feature in SQLite and returns quantitative, qualitative and hybrid scores with the completion percentage. Takes up to a few minutes.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeVideoInput) (*mcp.CallToolResult, analysis.Outcome, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, analysis.Outcome{}, errors.New("url is required")
		}
		out, err := d.Analyzer.AnalyzeVideo(ctx, analysis.Request(input))
		if err != nil {
			return nil, out, err
		}
		return nil, out, nil
	})
}

// VideoAnalysisGetInput is the input for video_analysis_get.
type VideoAnalysisGetInput struct {
	ID string `json:"id" jsonschema:"video id or YouTube link"`
}

func registerVideoAnalysisGet(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_analysis_get",
		Description: "Get a stored video analysis by video id: metadata, status, scores and all 156 rubric answers grouped with their category.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input VideoAnalysisGetInput) (*mcp.CallToolResult, *store.Analysis, error) {
		id := videoID(input.ID)
		if id == "" {
			return nil, nil, errors.New("id is required")
		}
		a, err := d.Store.Video(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return nil, a, nil
	})
}

// AnalysisStatsInput is the input for analysis_stats.
type AnalysisStatsInput struct{}

func registerAnalysisStats(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_stats",
		Description: "Count stored videos by status (pending, analyzing, completed, incomplete, failed), the analysis queue backlog and the time of the latest analysis.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ AnalysisStatsInput) (*mcp.CallToolResult, store.Statistics, error) {
		st, err := d.Store.Statistics(ctx)
		if err != nil {
			return nil, store.Statistics{}, err
		}
		return nil, st, nil
	})
}

// PendingVideosInput is the input for pending_videos_list.
type PendingVideosInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max videos to return (default 20, max 100)"`
}

// PendingVideosOutput lists queued videos.
type PendingVideosOutput struct {
	Videos []store.Video `json:"videos"`
	Count  int           `json:"count"`
}

func registerPendingVideosList(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pending_videos_list",
		Description: "List videos waiting for analysis, highest priority first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input PendingVideosInput) (*mcp.CallToolResult, PendingVideosOutput, error) {
		videos, err := d.Store.PendingVideos(ctx, toolutil.ClampLimit(input.Limit, 20, 100))
		if err != nil {
			return nil, PendingVideosOutput{}, err
		}
		if videos == nil {
			videos = []store.Video{}
		}
		return nil, PendingVideosOutput{Videos: videos, Count: len(videos)}, nil
	})
}

// videoID accepts either a bare id or a link.
func videoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if id, err := sources.ExtractVideoID(raw); err == nil {
		return id
	}
	return raw
}
