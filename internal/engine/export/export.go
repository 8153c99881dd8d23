// Package export renders stored analyses as CSV, JSON and Excel workbooks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, json, xlsx (and excel as an alias).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", s)
}

// ContentType is the MIME type served and uploaded for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// baseHeaders precede the 156 feature columns in CSV exports.
var baseHeaders = []string{
	"ID", "Title", "URL", "Status", "AnalyzedAt", "Views", "Likes", "Comments",
	"Channel", "Duration", "Hybrid", "Quantitative", "Qualitative",
}

const utf8BOM = "\ufeff"

// CSVHeaders returns the full CSV header row.
func CSVHeaders() []string {
	h := make([]string, 0, len(baseHeaders)+adscore.FeatureCount)
	h = append(h, baseHeaders...)
	for _, f := range adscore.Catalog() {
		h = append(h, f.Label())
	}
	return h
}

// WriteCSV writes one row per analysis. The BOM keeps Korean labels readable
// when the file is opened in Excel.
func WriteCSV(w io.Writer, analyses []store.Analysis, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	for i := range analyses {
		a := &analyses[i]
		vals := a.Values()
		row := []string{
			a.ID, a.Title, a.URL, string(a.Status), a.AnalyzedAt,
			strconv.FormatInt(a.ViewCount, 10),
			strconv.FormatInt(a.LikeCount, 10),
			strconv.FormatInt(a.CommentCount, 10),
			a.ChannelTitle, a.Duration,
			formatScore(a.HybridScore), formatScore(a.QuantitativeScore), formatScore(a.QualitativeScore),
		}
		for no := 1; no <= adscore.FeatureCount; no++ {
			v := vals[no]
			if v == "" {
				v = adscore.ValueNA
			}
			row = append(row, v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: csv row %s: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Record is the JSON export shape of one analysis.
type Record struct {
	store.Video
	Features map[string]string `json:"features"`
}

// WriteJSON writes an indented JSON array.
func WriteJSON(w io.Writer, analyses []store.Analysis) error {
	out := make([]Record, 0, len(analyses))
	for i := range analyses {
		out = append(out, Record{
			Video:    analyses[i].Video,
			Features: analyses[i].Values().Keyed(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}

// Write renders analyses in the given format.
func Write(w io.Writer, f Format, analyses []store.Analysis) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, analyses, true)
	case FormatJSON:
		return WriteJSON(w, analyses)
	case FormatXLSX:
		return WriteWorkbook(w, analyses, time.Now())
	}
	return fmt.Errorf("export: unsupported format %q", f)
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SafeTitle makes a title usable as a file name.
func SafeTitle(title string, maxRunes int) string {
	t := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "_")
	t = strings.Join(strings.Fields(t), "_")
	if t == "" {
		t = "untitled"
	}
	if maxRunes > 0 {
		t = engine.TruncateRunes(t, maxRunes, "")
	}
	return t
}

// ExportFileName is <title>_analysis_<YYYYMMDD>.<ext>.
func ExportFileName(title string, f Format, t time.Time) string {
	return SafeTitle(title, 80) + "_analysis_" + t.Format("20060102") + "." + string(f)
}

// WorkbookFileName is youtube_analysis_<title>_<timestamp>.xlsx, used for Drive uploads.
func WorkbookFileName(title string, t time.Time) string {
	return "youtube_analysis_" + SafeTitle(title, 50) + "_" + t.UTC().Format("20060102T150405Z") + ".xlsx"
}
