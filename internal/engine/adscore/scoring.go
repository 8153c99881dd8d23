package adscore

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Stats are the public engagement numbers of a video.
type Stats struct {
	Views       int64
	Likes       int64
	Comments    int64
	Duration    string // ISO 8601
	PublishedAt string // RFC 3339 or YYYY-MM-DD
}

// Quantitative are engagement-derived indices on a 0-100 scale.
type Quantitative struct {
	Interest  float64 `json:"interest_index"`
	Retention float64 `json:"retention_index"`
	Growth    float64 `json:"growth_index"`
	Final     float64 `json:"final_score"`
}

// Qualitative are rubric-derived indices on a 0-100 scale.
type Qualitative struct {
	OpeningHook      float64 `json:"opening_hook_index"`
	BrandDelivery    float64 `json:"brand_delivery_index"`
	StoryStructure   float64 `json:"story_structure_index"`
	VisualAesthetics float64 `json:"visual_aesthetics_index"`
	AudioPersuasion  float64 `json:"audio_persuasion_index"`
	Uniqueness       float64 `json:"uniqueness_index"`
	MessageTargetFit float64 `json:"message_target_fit_index"`
	CTAEfficiency    float64 `json:"cta_efficiency_index"`
	Quality          float64 `json:"quality_score"`
}

// Scores combines both sides into the hybrid ranking score.
type Scores struct {
	Quantitative Quantitative `json:"quantitative"`
	Qualitative  Qualitative  `json:"qualitative"`
	Hybrid       float64      `json:"hybrid"`
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?$`)

// ParseISODuration returns the length of an ISO 8601 duration in seconds.
// Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	num := func(v string) float64 {
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return int(num(m[1])*86400 + num(m[2])*3600 + num(m[3])*60 + num(m[4]))
}

// daysSince returns whole days since published, rounded up, at least 1.
func daysSince(published string, now time.Time) float64 {
	if published == "" {
		return 1
	}
	t, err := time.Parse(time.RFC3339, published)
	if err != nil {
		if t, err = time.Parse("2006-01-02", published); err != nil {
			return 1
		}
	}
	days := math.Ceil(math.Abs(now.Sub(t).Hours()) / 24)
	return math.Max(days, 1)
}

// ComputeQuantitative derives engagement indices.
//
// Subscriber counts are not fetched, so the channel audience is estimated as
// a tenth of the views.
func ComputeQuantitative(s Stats, now time.Time) Quantitative {
	if s.Views <= 0 {
		return Quantitative{}
	}
	views := float64(s.Views)
	likeRatio := float64(s.Likes) / views
	commentRatio := float64(s.Comments) / views

	days := daysSince(s.PublishedAt, now)
	dailyViews := views / days
	estimatedSubs := views / 10
	dailyViewRatio := dailyViews / estimatedSubs

	interest := likeRatio*0.5 + commentRatio*0.3 + dailyViewRatio*0.2

	factor := 0.6
	switch secs := ParseISODuration(s.Duration); {
	case secs <= 15:
		factor = 1.0
	case secs <= 60:
		factor = 0.8
	}
	retention := (likeRatio + commentRatio) * factor

	growth := dailyViews / math.Sqrt(days)

	final := interest*0.4 + retention*0.3 + growth*0.3

	return Quantitative{
		Interest:  math.Min(interest*100, 100),
		Retention: math.Min(retention*100, 100),
		Growth:    math.Min(growth/1000, 100),
		Final:     math.Min(final*100, 100),
	}
}

// indexRule scores one qualitative index: a base plus bonuses per observed feature.
type indexRule struct {
	base    float64
	bonuses []bonus
}

type bonus struct {
	no     int
	points float64
	check  func(string) bool
}

// hasMarker reports whether v opens with the marker, bare or followed by detail
// such as "없음: 로고 미노출".
func hasMarker(v, marker string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), marker)
}

// Absence checks treat N/A and missing answers as not-absent.
func notNA(v string) bool      { return Meaningful(v) }
func notNone(v string) bool    { return !hasMarker(v, ValueNone) }
func isPresent(v string) bool  { return hasMarker(v, ValuePresent) }
func notPresent(v string) bool { return !hasMarker(v, ValuePresent) }

var (
	ruleOpeningHook = indexRule{30, []bonus{{94, 25, notNA}, {96, 25, notNA}, {118, 20, isPresent}}}
	ruleBrand       = indexRule{20, []bonus{{63, 40, notNone}, {86, 25, notNA}, {66, 15, notNone}}}
	ruleStory       = indexRule{20, []bonus{{124, 40, notNone}, {123, 30, notNone}, {135, 10, notNA}}}
	ruleVisual      = indexRule{25, []bonus{{87, 25, notNA}, {84, 25, notNA}, {97, 25, notNone}}}
	ruleAudio       = indexRule{20, []bonus{{100, 30, notNone}, {104, 25, notPresent}, {103, 25, notNone}}}
	ruleUniqueness  = indexRule{30, []bonus{{95, 25, notNone}, {99, 25, notNone}, {89, 20, notNone}}}
	ruleMessageFit  = indexRule{40, []bonus{{154, 20, notNA}, {153, 20, notNA}, {155, 20, notNA}}}
	ruleCTA         = indexRule{25, []bonus{{116, 35, notNone}, {122, 20, notNone}, {149, 20, notNone}}}
)

func (r indexRule) score(v Values) float64 {
	s := r.base
	for _, b := range r.bonuses {
		if b.check(v[b.no]) {
			s += b.points
		}
	}
	return math.Min(s, 100)
}

// ComputeQualitative derives the eight rubric indices and their weighted quality score.
func ComputeQualitative(v Values) Qualitative {
	if len(v) == 0 {
		return Qualitative{}
	}
	q := Qualitative{
		OpeningHook:      ruleOpeningHook.score(v),
		BrandDelivery:    ruleBrand.score(v),
		StoryStructure:   ruleStory.score(v),
		VisualAesthetics: ruleVisual.score(v),
		AudioPersuasion:  ruleAudio.score(v),
		Uniqueness:       ruleUniqueness.score(v),
		MessageTargetFit: ruleMessageFit.score(v),
		CTAEfficiency:    ruleCTA.score(v),
	}
	q.Quality = q.OpeningHook*0.18 +
		q.BrandDelivery*0.16 +
		q.StoryStructure*0.16 +
		q.VisualAesthetics*0.16 +
		q.AudioPersuasion*0.12 +
		q.Uniqueness*0.12 +
		q.MessageTargetFit*0.06 +
		q.CTAEfficiency*0.04
	return q
}

// ComputeScores returns quantitative, qualitative and hybrid (40/60) scores.
func ComputeScores(s Stats, v Values, now time.Time) Scores {
	quant := ComputeQuantitative(s, now)
	qual := ComputeQualitative(v)
	return Scores{
		Quantitative: quant,
		Qualitative:  qual,
		Hybrid:       round2(quant.Final*0.4 + qual.Quality*0.6),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
