package adserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_adscore/internal/engine/export"
	"github.com/anatolykoptev/go_adscore/internal/toolutil"
)

// ExportAnalysesInput is the input for export_analyses.
type ExportAnalysesInput struct {
	Format string `json:"format,omitempty" jsonschema:"csv (default) or json"`
	IDs    string `json:"ids,omitempty" jsonschema:"comma-separated video ids; empty exports every finished analysis"`
}

// ExportAnalysesOutput carries the rendered export.
type ExportAnalysesOutput struct {
	Format string `json:"format"`
	Count  int    `json:"count"`
	Data   string `json:"data"`
}

func registerExportAnalyses(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_analyses",
		Description: "Export finished analyses (completed and incomplete) as CSV or JSON text, one row or object per video with every rubric answer and the three scores.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ExportAnalysesInput) (*mcp.CallToolResult, ExportAnalysesOutput, error) {
		return exportAnalyses(ctx, d, input)
	})
}

func exportAnalyses(ctx context.Context, d Deps, input ExportAnalysesInput) (*mcp.CallToolResult, ExportAnalysesOutput, error) {
	name := input.Format
	if name == "" {
		name = string(export.FormatCSV)
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return nil, ExportAnalysesOutput{}, err
	}
	if f == export.FormatXLSX {
		return nil, ExportAnalysesOutput{}, errors.New("xlsx is binary; use csv or json, or GET /api/export/xlsx")
	}

	analyses, err := d.Store.CompletedAnalyses(ctx, toolutil.SplitIDs(input.IDs))
	if err != nil {
		return nil, ExportAnalysesOutput{}, err
	}
	if len(analyses) == 0 {
		return nil, ExportAnalysesOutput{}, errors.New("no finished analyses to export")
	}

	var sb strings.Builder
	switch f {
	case export.FormatCSV:
		err = export.WriteCSV(&sb, analyses, false)
	default:
		err = export.Write(&sb, f, analyses)
	}
	if err != nil {
		return nil, ExportAnalysesOutput{}, err
	}
	return nil, ExportAnalysesOutput{Format: string(f), Count: len(analyses), Data: sb.String()}, nil
}
