package adscore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_adscore/internal/engine"
)

// VideoContext is everything the model sees about one ad.
type VideoContext struct {
	Title          string
	Channel        string
	Duration       string
	PublishedAt    string
	Tags           []string
	Description    string
	Transcript     string
	TranscriptLang string
	Note           string
	ImageCount     int
}

const (
	maxDescriptionRunes = 2000
	maxTranscriptRunes  = 12000
)

const analystSystem = "You are an expert advertising video analyst. You answer strictly in JSON."

// SystemPrompt is the system instruction sent with every analysis.
func SystemPrompt() string { return analystSystem }

// BuildPrompt renders the analysis prompt for one video.
func BuildPrompt(vc VideoContext, transcriptLimit int) string {
	if transcriptLimit <= 0 {
		transcriptLimit = maxTranscriptRunes
	}
	var sb strings.Builder
	sb.WriteString("Analyze the YouTube advertising video below and give a value for every item of the 156-item feature list.\n\n")

	sb.WriteString("Video information:\n")
	fmt.Fprintf(&sb, "- Title: %s\n", vc.Title)
	if vc.Channel != "" {
		fmt.Fprintf(&sb, "- Channel: %s\n", vc.Channel)
	}
	if vc.Duration != "" {
		fmt.Fprintf(&sb, "- Duration (ISO 8601): %s\n", vc.Duration)
	}
	if vc.PublishedAt != "" {
		fmt.Fprintf(&sb, "- Published: %s\n", vc.PublishedAt)
	}
	if len(vc.Tags) > 0 {
		fmt.Fprintf(&sb, "- Tags: %s\n", strings.Join(vc.Tags, ", "))
	}
	if vc.Note != "" {
		fmt.Fprintf(&sb, "- Analyst note: %s\n", vc.Note)
	}
	fmt.Fprintf(&sb, "- Description: %s\n", engine.TruncateRunes(vc.Description, maxDescriptionRunes, "..."))
	if vc.Transcript != "" {
		fmt.Fprintf(&sb, "- Script (captions, %s): \"\"\"%s\"\"\"\n", vc.TranscriptLang, engine.TruncateRunes(vc.Transcript, transcriptLimit, "..."))
	} else {
		sb.WriteString("- Script: no captions available; infer from the other information.\n")
	}
	if vc.ImageCount > 0 {
		fmt.Fprintf(&sb, "- %d thumbnail image(s) of the video are attached.\n", vc.ImageCount)
	}

	sb.WriteString("\nFeature list (156 items):\n")
	cat := ""
	for _, f := range catalog {
		if f.Category != cat {
			cat = f.Category
			fmt.Fprintf(&sb, "\n[%s]\n", cat)
		}
		fmt.Fprintf(&sb, "%d. %s\n", f.No, f.Item)
	}

	sb.WriteString("\nOutput rules:\n")
	sb.WriteString("- Reply ONLY with one JSON object, no explanations.\n")
	sb.WriteString("- Top-level keys are the category names in brackets above; each maps item names to a string value.\n")
	fmt.Fprintf(&sb, "- For presence questions answer %q or %q, adding detail after a colon when useful.\n", ValuePresent, ValueNone)
	fmt.Fprintf(&sb, "- If an item cannot be judged, answer %q.\n", ValueUnanswerable)
	sb.WriteString("\nExample shape:\n{\n  \"" + catalog[0].Category + "\": {\"" + catalog[0].Item + "\": \"...\", \"" + catalog[1].Item + "\": \"...\"},\n  \"" + catalog[FeatureCount-1].Category + "\": {\"" + catalog[FeatureCount-1].Item + "\": \"...\"}\n}\n")
	return sb.String()
}

// ErrNoJSON means the model answer contained no JSON object.
var ErrNoJSON = engine.ErrNoJSON

// Lookup tables from normalized names to feature numbers.
var (
	byCategoryItem = map[string]int{}
	byItem         = map[string]int{}
)

func init() {
	for _, f := range catalog {
		byCategoryItem[pairKey(f.Category, f.Item)] = f.No
		if _, dup := byItem[normalize(f.Item)]; !dup {
			byItem[normalize(f.Item)] = f.No
		}
	}
}

func pairKey(category, item string) string {
	return normalize(category) + "\x00" + normalize(item)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ParseResponse extracts feature values from a model answer. It accepts the
// nested {category: {item: value}} shape, flat feature_<n> keys, and items
// given without their category. Unknown keys are ignored.
func ParseResponse(raw string) (Values, error) {
	obj, err := engine.ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var top map[string]any
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return nil, fmt.Errorf("decode analysis JSON: %w", err)
	}

	vals := Values{}
	for k, v := range top {
		if no, ok := ParseKey(k); ok {
			vals[no] = stringify(v)
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			for item, iv := range nested {
				if no, ok := ParseKey(item); ok {
					vals[no] = stringify(iv)
				} else if no, ok := byCategoryItem[pairKey(k, item)]; ok {
					vals[no] = stringify(iv)
				} else if no, ok := byItem[normalize(item)]; ok {
					if _, set := vals[no]; !set {
						vals[no] = stringify(iv)
					}
				}
			}
			continue
		}
		if no, ok := byItem[normalize(k)]; ok {
			vals[no] = stringify(v)
		}
	}
	return vals, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
