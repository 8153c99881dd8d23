package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"golang.org/x/net/html"
)

// watchPageBase is overridden in tests.
var watchPageBase = "https://www.youtube.com/watch?v="

// scrapeWatchPage reads metadata from the watch page's meta tags.
// Like and comment counts are not exposed there and stay zero.
func scrapeWatchPage(ctx context.Context, id string) (*VideoMetadata, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchPageBase+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: status %d", resp.StatusCode)
	}
	meta, err := parseWatchPage(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("watch page: %w: %s", ErrVideoNotFound, id)
	}
	meta.ID = id
	return meta, nil
}

// parseWatchPage extracts <meta> and itemprop values from watch page HTML.
func parseWatchPage(r io.Reader) (*VideoMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	props := map[string]string{}
	var channel string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "meta" || n.Data == "link") {
			var key, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name", "property", "itemprop":
					if key == "" {
						key = a.Val
					}
				case "content":
					content = a.Val
				}
			}
			if n.Data == "link" && key == "name" && channel == "" {
				channel = content
			} else if key != "" && content != "" {
				if _, seen := props[key]; !seen {
					props[key] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	meta := &VideoMetadata{
		Title:        firstNonEmpty(props["title"], props["og:title"], props["name"]),
		Description:  firstNonEmpty(props["description"], props["og:description"]),
		ChannelTitle: channel,
		PublishedAt:  firstNonEmpty(props["datePublished"], props["uploadDate"]),
		Duration:     props["duration"],
		CategoryID:   props["genre"],
		ThumbnailURL: firstNonEmpty(props["og:image"], props["thumbnailUrl"]),
		Source:       "watch_page",
	}
	if kw := props["keywords"]; kw != "" {
		for _, t := range strings.Split(kw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				meta.Tags = append(meta.Tags, t)
			}
		}
	}
	if n, err := strconv.ParseInt(strings.ReplaceAll(props["interactionCount"], ",", ""), 10, 64); err == nil {
		meta.ViewCount = n
	}
	return meta, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
