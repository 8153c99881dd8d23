package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

// Sheet names in workbook order.
const (
	SheetSummary    = "Summary"
	SheetFeatures   = "Features"
	SheetScores     = "Scores"
	SheetCategories = "Categories"
	SheetMetadata   = "Metadata"
)

// Band colors: good, fair, weak, poor.
var bandColors = [4]string{"C6EFCE", "FFEB9C", "FCD5B4", "FFC7CE"}

// band picks a color index for value against descending thresholds.
func band(value float64, thresholds [3]float64) int {
	for i, t := range thresholds {
		if value >= t {
			return i
		}
	}
	return 3
}

type workbook struct {
	f      *excelize.File
	header int
	bands  [4]int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	wb := &workbook{f: f}
	var err error
	wb.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for i, c := range bandColors {
		wb.bands[i], err = f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{c}, Pattern: 1},
		})
		if err != nil {
			return nil, err
		}
	}
	return wb, nil
}

func (wb *workbook) row(sheet string, r int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	return wb.f.SetSheetRow(sheet, cell, &values)
}

func (wb *workbook) headerRow(sheet string, r int, values ...any) error {
	if err := wb.row(sheet, r, values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(len(values), r)
	return wb.f.SetCellStyle(sheet, first, last, wb.header)
}

func (wb *workbook) styleRow(sheet string, r, cols, style int) error {
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(cols, r)
	return wb.f.SetCellStyle(sheet, first, last, style)
}

// WriteWorkbook renders the five-sheet Excel report.
func WriteWorkbook(w io.Writer, analyses []store.Analysis, now time.Time) error {
	wb, err := newWorkbook()
	if err != nil {
		return fmt.Errorf("export: workbook styles: %w", err)
	}
	defer wb.f.Close()

	if err := wb.f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	for _, name := range []string{SheetFeatures, SheetScores, SheetCategories, SheetMetadata} {
		if _, err := wb.f.NewSheet(name); err != nil {
			return fmt.Errorf("export: sheet %s: %w", name, err)
		}
	}

	steps := []struct {
		name string
		fn   func(*workbook, []store.Analysis, time.Time) error
	}{
		{SheetSummary, writeSummary},
		{SheetFeatures, writeFeatures},
		{SheetScores, writeScores},
		{SheetCategories, writeCategories},
		{SheetMetadata, writeMetadata},
	}
	for _, s := range steps {
		if err := s.fn(wb, analyses, now); err != nil {
			return fmt.Errorf("export: %s sheet: %w", s.name, err)
		}
	}
	wb.f.SetActiveSheet(0)

	if _, err := wb.f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeSummary(wb *workbook, analyses []store.Analysis, now time.Time) error {
	var hybrid, quant, qual, completion float64
	counts := map[store.Status]int{}
	for i := range analyses {
		a := &analyses[i]
		hybrid += a.HybridScore
		quant += a.QuantitativeScore
		qual += a.QualitativeScore
		completion += a.Completion
		counts[a.Status]++
	}
	avg := func(sum float64) float64 {
		if len(analyses) == 0 {
			return 0
		}
		return round2(sum / float64(len(analyses)))
	}

	rows := [][]any{
		{"YouTube ad analysis report"},
		{"Generated", now.Format(time.RFC3339)},
		{"Videos", len(analyses)},
		{"Completed", counts[store.StatusCompleted]},
		{"Incomplete", counts[store.StatusIncomplete]},
		{"Average hybrid score", avg(hybrid)},
		{"Average quantitative score", avg(quant)},
		{"Average qualitative score", avg(qual)},
		{"Average completion (%)", avg(completion)},
	}
	for i, r := range rows {
		if err := wb.row(SheetSummary, i+1, r...); err != nil {
			return err
		}
	}
	if err := wb.styleRow(SheetSummary, 1, 1, wb.header); err != nil {
		return err
	}
	return wb.f.SetColWidth(SheetSummary, "A", "A", 30)
}

// writeFeatures lays out one row per rubric item and one column per video.
func writeFeatures(wb *workbook, analyses []store.Analysis, _ time.Time) error {
	header := []any{"No", "Category", "Item"}
	values := make([]adscore.Values, len(analyses))
	for i := range analyses {
		header = append(header, analyses[i].Title)
		values[i] = analyses[i].Values()
	}
	if err := wb.headerRow(SheetFeatures, 1, header...); err != nil {
		return err
	}
	for _, f := range adscore.Catalog() {
		row := []any{f.No, f.Category, f.Item}
		for _, v := range values {
			val := v[f.No]
			if val == "" {
				val = adscore.ValueNA
			}
			row = append(row, val)
		}
		if err := wb.row(SheetFeatures, f.No+1, row...); err != nil {
			return err
		}
	}
	if err := wb.f.SetColWidth(SheetFeatures, "B", "C", 24); err != nil {
		return err
	}
	return wb.f.SetPanes(SheetFeatures, &excelize.Panes{
		Freeze: true, XSplit: 3, YSplit: 1, TopLeftCell: "D2", ActivePane: "bottomRight",
	})
}

// writeScores ranks videos by hybrid score, banding rows by completion.
func writeScores(wb *workbook, analyses []store.Analysis, _ time.Time) error {
	sorted := make([]*store.Analysis, len(analyses))
	for i := range analyses {
		sorted[i] = &analyses[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].HybridScore > sorted[j].HybridScore })

	header := []any{"Rank", "ID", "Title", "Hybrid", "Quantitative", "Qualitative", "Completion (%)", "Views", "Likes", "Comments", "Status"}
	if err := wb.headerRow(SheetScores, 1, header...); err != nil {
		return err
	}
	for i, a := range sorted {
		r := i + 2
		if err := wb.row(SheetScores, r, i+1, a.ID, a.Title, a.HybridScore, a.QuantitativeScore,
			a.QualitativeScore, a.Completion, a.ViewCount, a.LikeCount, a.CommentCount, string(a.Status)); err != nil {
			return err
		}
		style := wb.bands[band(a.Completion, [3]float64{90, 70, 50})]
		if err := wb.styleRow(SheetScores, r, len(header), style); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(SheetScores, "C", "C", 40)
}

// CategoryFill is the share of videos with a meaningful answer per rubric item.
type CategoryFill struct {
	Feature adscore.Feature
	Filled  int
	Rate    float64 // percent
}

// FillRates computes per-feature answer rates.
func FillRates(analyses []store.Analysis) []CategoryFill {
	values := make([]adscore.Values, len(analyses))
	for i := range analyses {
		values[i] = analyses[i].Values()
	}
	out := make([]CategoryFill, 0, adscore.FeatureCount)
	for _, f := range adscore.Catalog() {
		cf := CategoryFill{Feature: f}
		for _, v := range values {
			if adscore.Meaningful(v[f.No]) {
				cf.Filled++
			}
		}
		if len(values) > 0 {
			cf.Rate = round2(float64(cf.Filled) / float64(len(values)) * 100)
		}
		out = append(out, cf)
	}
	return out
}

func writeCategories(wb *workbook, analyses []store.Analysis, _ time.Time) error {
	header := []any{"No", "Category", "Item", "Answered", "Fill rate (%)"}
	if err := wb.headerRow(SheetCategories, 1, header...); err != nil {
		return err
	}
	for i, cf := range FillRates(analyses) {
		r := i + 2
		if err := wb.row(SheetCategories, r, cf.Feature.No, cf.Feature.Category, cf.Feature.Item, cf.Filled, cf.Rate); err != nil {
			return err
		}
		style := wb.bands[band(cf.Rate, [3]float64{80, 60, 40})]
		if err := wb.styleRow(SheetCategories, r, len(header), style); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(SheetCategories, "B", "C", 24)
}

func writeMetadata(wb *workbook, analyses []store.Analysis, now time.Time) error {
	models := map[string]bool{}
	var names []string
	for i := range analyses {
		m := analyses[i].Model
		if m != "" && !models[m] {
			models[m] = true
			names = append(names, m)
		}
	}
	sort.Strings(names)
	rows := [][]any{
		{"Key", "Value"},
		{"Generated at", now.Format(time.RFC3339)},
		{"Videos", len(analyses)},
		{"Rubric items", adscore.FeatureCount},
		{"Categories", len(adscore.Categories())},
		{"Models", strings.Join(names, ", ")},
	}
	for i, r := range rows {
		if err := wb.row(SheetMetadata, i+1, r...); err != nil {
			return err
		}
	}
	return wb.styleRow(SheetMetadata, 1, 2, wb.header)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
