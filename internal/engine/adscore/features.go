// Package adscore holds the 156-item ad rubric, the prompt sent to the model,
// parsing of its answer, and the quantitative/qualitative scoring formulas.
package adscore

import (
	"math"
	"strconv"
	"strings"
)

// FeatureCount is the size of the rubric.
const FeatureCount = 156

// Feature is one rubric item.
type Feature struct {
	No       int    `json:"no"`
	Category string `json:"category"`
	Item     string `json:"item"`
}

// Marker values the model is asked to use.
const (
	ValueNA          = "N/A"
	ValueNone        = "없음"
	ValuePresent     = "있음"
	ValueMissing     = "누락됨"
	ValueUnavailable = "분석불가"
	// ValueUnanswerable is what the prompt asks for when an item cannot be judged.
	ValueUnanswerable = "Analysis unavailable"
)

// Catalog returns a copy of the rubric in order.
func Catalog() []Feature {
	out := make([]Feature, FeatureCount)
	copy(out, catalog[:])
	return out
}

// FeatureByNo returns rubric item no (1-based).
func FeatureByNo(no int) (Feature, bool) {
	if no < 1 || no > FeatureCount {
		return Feature{}, false
	}
	return catalog[no-1], true
}

// Categories returns category names in rubric order.
func Categories() []string {
	var out []string
	for _, f := range catalog {
		if len(out) == 0 || out[len(out)-1] != f.Category {
			out = append(out, f.Category)
		}
	}
	return out
}

// Key is the flat JSON key for a feature: feature_<no>.
func Key(no int) string {
	return "feature_" + strconv.Itoa(no)
}

// ParseKey is the inverse of Key.
func ParseKey(k string) (int, bool) {
	rest, ok := strings.CutPrefix(k, "feature_")
	if !ok {
		return 0, false
	}
	no, err := strconv.Atoi(rest)
	if err != nil || no < 1 || no > FeatureCount {
		return 0, false
	}
	return no, true
}

// Label is the export column header: <no>.<category>_<item>.
func (f Feature) Label() string {
	return strconv.Itoa(f.No) + "." + f.Category + "_" + f.Item
}

// Values maps feature number to the model's answer.
type Values map[int]string

// Fill sets every rubric item without an answer to N/A.
func (v Values) Fill() Values {
	for no := 1; no <= FeatureCount; no++ {
		if strings.TrimSpace(v[no]) == "" {
			v[no] = ValueNA
		}
	}
	return v
}

// Keyed returns the values keyed by Key(no), as exported to JSON.
func (v Values) Keyed() map[string]string {
	out := make(map[string]string, len(v))
	for no, val := range v {
		out[Key(no)] = val
	}
	return out
}

// Meaningful reports whether val carries an actual observation.
func Meaningful(val string) bool {
	switch strings.TrimSpace(val) {
	case "", ValueNA, ValueMissing, ValueUnavailable, ValueUnanswerable:
		return false
	}
	return true
}

// Completion summarizes how much of the rubric was answered.
type Completion struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Missing    []int   `json:"missing,omitempty"`
}

// Completion counts meaningful answers across the rubric.
func (v Values) Completion() Completion {
	c := Completion{Total: FeatureCount}
	for no := 1; no <= FeatureCount; no++ {
		if Meaningful(v[no]) {
			c.Completed++
		} else {
			c.Missing = append(c.Missing, no)
		}
	}
	c.Percentage = math.Round(float64(c.Completed)/float64(c.Total)*1000) / 10
	return c
}
