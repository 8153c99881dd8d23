package adserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

// Store is the read side the tools need.
type Store interface {
	Video(ctx context.Context, id string) (*store.Analysis, error)
	PendingVideos(ctx context.Context, limit int) ([]store.Video, error)
	CompletedAnalyses(ctx context.Context, ids []string) ([]store.Analysis, error)
	Statistics(ctx context.Context) (store.Statistics, error)
}

// Analyzer runs one video through the pipeline.
type Analyzer interface {
	AnalyzeVideo(ctx context.Context, req analysis.Request) (analysis.Outcome, error)
}

// Deps are shared by every tool.
type Deps struct {
	Store    Store
	Analyzer Analyzer
}

// RegisterTools registers the ad analysis tools on the given MCP server:
// analyze_video, video_analysis_get, analysis_stats, pending_videos_list,
// export_analyses.
func RegisterTools(server *mcp.Server, d Deps) int {
	registerAnalyzeVideo(server, d)
	registerVideoAnalysisGet(server, d)
	registerAnalysisStats(server, d)
	registerPendingVideosList(server, d)
	registerExportAnalyses(server, d)
	return 5
}
