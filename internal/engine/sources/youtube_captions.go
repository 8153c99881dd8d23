package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"golang.org/x/net/html"
)

// Captions is the transcript text used as the ad script.
type Captions struct {
	Text     string `json:"text"`
	Language string `json:"language"` // "<lang>", "<lang>-asr" or "none"
}

// DefaultCaptionLanguages is the candidate order when none is configured.
var DefaultCaptionLanguages = []string{
	"en", "en-US", "en-GB", "ko", "ko-KR", "ja", "zh", "zh-CN", "zh-TW",
	"es", "fr", "de", "it", "pt", "ru", "ar",
}

// minCaptionChars filters out empty or placeholder tracks.
const minCaptionChars = 30

// timedtextBase is overridden in tests.
var timedtextBase = "https://www.youtube.com/api/timedtext"

var (
	brTagRE      = regexp.MustCompile(`(?i)<br\s*/?>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// FetchCaptions tries manual tracks in every candidate language, then
// auto-generated (asr) tracks. Absence of captions is not an error: the
// result is {Text: "", Language: "none"}.
func FetchCaptions(ctx context.Context, id string, langs []string) (Captions, error) {
	if len(langs) == 0 {
		langs = DefaultCaptionLanguages
	}
	for _, asr := range []bool{false, true} {
		for _, lang := range langs {
			if ctx.Err() != nil {
				return Captions{}, ctx.Err()
			}
			text, err := fetchTimedtext(ctx, id, lang, asr)
			if err != nil {
				slog.Debug("captions: track failed", slog.String("video", id), slog.String("lang", lang), slog.Bool("asr", asr), slog.Any("error", err))
				continue
			}
			if len([]rune(text)) > minCaptionChars {
				if asr {
					lang += "-asr"
				}
				return Captions{Text: text, Language: lang}, nil
			}
		}
	}
	return Captions{Language: "none"}, nil
}

func fetchTimedtext(ctx context.Context, id, lang string, asr bool) (string, error) {
	engine.IncrCaptionRequests()
	params := url.Values{}
	params.Set("lang", lang)
	params.Set("v", id)
	if asr {
		params.Set("kind", "asr")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, timedtextBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", engine.UserAgentChrome)
	resp, err := engine.Cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext status %d", resp.StatusCode)
	}
	return parseTimedtext(io.LimitReader(resp.Body, 2<<20))
}

// parseTimedtext joins the text of <text> (legacy) or <p> (srv3) nodes.
func parseTimedtext(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var parts []string
	var cur strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(parts) > 0 {
				break
			}
			return "", fmt.Errorf("parse timedtext: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" || t.Name.Local == "p" {
				depth++
			} else if depth > 0 {
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			if (t.Name.Local == "text" || t.Name.Local == "p") && depth > 0 {
				depth--
				if depth == 0 {
					if s := cleanCaption(cur.String()); s != "" {
						parts = append(parts, s)
					}
					cur.Reset()
				}
			}
		case xml.CharData:
			if depth > 0 {
				cur.Write(t)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

// cleanCaption decodes the second layer of entities YouTube applies and
// collapses whitespace.
func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	s = brTagRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
