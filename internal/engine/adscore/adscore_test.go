package adscore

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestCatalogShape(t *testing.T) {
	cat := Catalog()
	if len(cat) != FeatureCount {
		t.Fatalf("catalog has %d items", len(cat))
	}
	for i, f := range cat {
		if f.No != i+1 {
			t.Fatalf("item %d numbered %d", i, f.No)
		}
		if f.Category == "" || f.Item == "" {
			t.Errorf("item %d is incomplete: %+v", f.No, f)
		}
	}
	if got := len(Categories()); got != 10 {
		t.Errorf("categories = %d, want 10", got)
	}

	// callers cannot mutate the shared rubric
	cat[0].Item = "changed"
	if f, _ := FeatureByNo(1); f.Item == "changed" {
		t.Error("Catalog returned the shared array")
	}
}

func TestFeatureByNoBounds(t *testing.T) {
	for _, no := range []int{0, -1, FeatureCount + 1} {
		if _, ok := FeatureByNo(no); ok {
			t.Errorf("FeatureByNo(%d) should fail", no)
		}
	}
	f, ok := FeatureByNo(153)
	if !ok || f.Label() != "153."+f.Category+"_"+f.Item {
		t.Errorf("FeatureByNo(153) = %+v", f)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	if Key(7) != "feature_7" {
		t.Errorf("Key(7) = %q", Key(7))
	}
	for _, bad := range []string{"feature_0", "feature_157", "feature_x", "f_1"} {
		if _, ok := ParseKey(bad); ok {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
	if no, ok := ParseKey("feature_156"); !ok || no != 156 {
		t.Errorf("ParseKey(feature_156) = %d, %v", no, ok)
	}
}

func TestCompletionAndFill(t *testing.T) {
	v := Values{1: "여성", 2: ValueNA, 3: ValueMissing, 4: ValueUnanswerable, 5: "밝음"}
	c := v.Completion()
	if c.Completed != 2 || c.Total != FeatureCount {
		t.Errorf("completion = %+v", c)
	}
	if c.Percentage != 1.3 {
		t.Errorf("percentage = %v, want 1.3", c.Percentage)
	}
	if len(c.Missing) != FeatureCount-2 {
		t.Errorf("missing = %d", len(c.Missing))
	}

	v.Fill()
	if len(v) != FeatureCount || v[100] != ValueNA || v[1] != "여성" {
		t.Errorf("Fill left %d values, v[100]=%q", len(v), v[100])
	}
}

func TestParseResponse(t *testing.T) {
	f1, _ := FeatureByNo(1)
	f63, _ := FeatureByNo(63)
	f94, _ := FeatureByNo(94)

	raw := "```json\n{\n" +
		`"` + f1.Category + `": {"` + f1.Item + `": "여성", "feature_2": "20대"},` +
		`"` + f63.Category + `": {"` + f63.Item + `": "있음: 로고 좌상단"},` +
		`"feature_150": 8,` +
		`"` + f94.Item + `": "0.5초",` +
		`"unknown": {"nope": "x"}` +
		"\n}\n```"

	v, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	want := map[int]string{1: "여성", 2: "20대", 63: "있음: 로고 좌상단", 150: "8", 94: "0.5초"}
	for no, w := range want {
		if v[no] != w {
			t.Errorf("feature %d = %q, want %q", no, v[no], w)
		}
	}
	if len(v) != len(want) {
		t.Errorf("parsed %d values, want %d: %v", len(v), len(want), v)
	}
}

func TestParseResponseErrors(t *testing.T) {
	if _, err := ParseResponse("I could not analyze this video."); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
	if _, err := ParseResponse(`{"a": }`); err == nil {
		t.Error("expected decode error")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(VideoContext{
		Title:      "Glow Serum",
		Transcript: strings.Repeat("가", 50),
		ImageCount: 2,
	}, 10)
	for _, want := range []string{"Glow Serum", "156. ", "[" + Categories()[0] + "]", ValueUnanswerable, "2 thumbnail image(s)"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, strings.Repeat("가", 11)) {
		t.Error("transcript was not truncated")
	}

	noCaptions := BuildPrompt(VideoContext{Title: "x"}, 0)
	if !strings.Contains(noCaptions, "no captions available") {
		t.Error("missing no-captions hint")
	}
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]int{
		"PT15S":     15,
		"PT1M":      60,
		"PT1H2M3S":  3723,
		"P1DT1S":    86401,
		"PT0M15S":   15,
		"":          0,
		"garbage":   0,
		"PT1.5S":    1,
	}
	for in, want := range tests {
		if got := ParseISODuration(in); got != want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestComputeQuantitative(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	q := ComputeQuantitative(Stats{
		Views:       10000,
		Likes:       500,
		Comments:    100,
		Duration:    "PT30S",
		PublishedAt: "2025-01-01T00:00:00Z",
	}, now)

	// days=10, likeRatio=.05, commentRatio=.01, dailyViewRatio=1000/1000=1
	interest := 0.05*0.5 + 0.01*0.3 + 1*0.2
	retention := (0.05 + 0.01) * 0.8
	growth := 1000 / math.Sqrt(10)
	final := interest*0.4 + retention*0.3 + growth*0.3

	if !approx(q.Interest, interest*100) {
		t.Errorf("interest = %v, want %v", q.Interest, interest*100)
	}
	if !approx(q.Retention, retention*100) {
		t.Errorf("retention = %v, want %v", q.Retention, retention*100)
	}
	if !approx(q.Growth, growth/1000) {
		t.Errorf("growth = %v, want %v", q.Growth, growth/1000)
	}
	if !approx(q.Final, math.Min(final*100, 100)) {
		t.Errorf("final = %v", q.Final)
	}

	if z := ComputeQuantitative(Stats{}, now); z != (Quantitative{}) {
		t.Errorf("zero views should score zero, got %+v", z)
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	tests := map[string]float64{
		"":                     1,
		"bad":                  1,
		"2025-01-10T11:00:00Z": 1,
		"2025-01-08T12:00:00Z": 2,
		"2025-01-08T11:00:00Z": 3,
		"2025-01-01":           10,
	}
	for in, want := range tests {
		if got := daysSince(in, now); got != want {
			t.Errorf("daysSince(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComputeQualitative(t *testing.T) {
	if q := ComputeQualitative(nil); q != (Qualitative{}) {
		t.Errorf("no values should score zero, got %+v", q)
	}

	// unanswered items never count as absent, so the "not 없음" bonuses apply
	base := Values{}.Fill()
	q := ComputeQualitative(base)
	wantBase := Qualitative{
		OpeningHook: 30, BrandDelivery: 75, StoryStructure: 90, VisualAesthetics: 50,
		AudioPersuasion: 100, Uniqueness: 100, MessageTargetFit: 40, CTAEfficiency: 100,
	}
	got := q
	got.Quality = 0
	if got != wantBase {
		t.Errorf("baseline indices = %+v, want %+v", got, wantBase)
	}

	rich := Values{}.Fill()
	rich[94], rich[96], rich[118] = "0.5초", "클로즈업 위주", ValuePresent
	rich[63], rich[86], rich[66] = "있음", "일치", "있음"
	rich[116], rich[122], rich[149] = "지금 구매", ValueNone, "링크 있음"
	q = ComputeQualitative(rich)
	if q.OpeningHook != 100 {
		t.Errorf("opening hook = %v, want 100", q.OpeningHook)
	}
	if q.BrandDelivery != 100 {
		t.Errorf("brand delivery = %v, want 100", q.BrandDelivery)
	}
	if q.CTAEfficiency != 80 {
		t.Errorf("cta = %v, want 80 (122 answered 없음)", q.CTAEfficiency)
	}

	want := q.OpeningHook*0.18 + q.BrandDelivery*0.16 + q.StoryStructure*0.16 + q.VisualAesthetics*0.16 +
		q.AudioPersuasion*0.12 + q.Uniqueness*0.12 + q.MessageTargetFit*0.06 + q.CTAEfficiency*0.04
	if !approx(q.Quality, want) {
		t.Errorf("quality = %v, want %v", q.Quality, want)
	}
}

func TestQualitativeDetailedAnswers(t *testing.T) {
	tests := []struct {
		name  string
		set   map[int]string
		index func(Qualitative) float64
		want  float64
	}{
		{"brand absent with detail", map[int]string{63: "없음: 로고 미노출", 66: " 없음 - 소품 없음"},
			func(q Qualitative) float64 { return q.BrandDelivery }, 20},
		{"brand present with detail", map[int]string{63: "있음: 로고 좌상단", 66: "있음"},
			func(q Qualitative) float64 { return q.BrandDelivery }, 75},
		{"typography present with detail", map[int]string{118: "있음: 자막 애니메이션"},
			func(q Qualitative) float64 { return q.OpeningHook }, 50},
		{"sync errors present with detail", map[int]string{104: "있음: sync errors"},
			func(q Qualitative) float64 { return q.AudioPersuasion }, 75},
		{"sync errors absent", map[int]string{104: "없음"},
			func(q Qualitative) float64 { return q.AudioPersuasion }, 100},
		{"cta absent with detail", map[int]string{116: "없음: 문구 없음", 122: "없음", 149: "없음"},
			func(q Qualitative) float64 { return q.CTAEfficiency }, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Values{}.Fill()
			for no, val := range tt.set {
				v[no] = val
			}
			if got := tt.index(ComputeQualitative(v)); got != tt.want {
				t.Errorf("index = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeScoresHybrid(t *testing.T) {
	now := time.Now()
	s := ComputeScores(Stats{}, Values{}.Fill(), now)
	want := round2(s.Qualitative.Quality * 0.6)
	if s.Hybrid != want {
		t.Errorf("hybrid = %v, want %v", s.Hybrid, want)
	}
}
