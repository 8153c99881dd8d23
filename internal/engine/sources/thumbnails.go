package sources

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_adscore/internal/engine"
)

// thumbnailBase is overridden in tests.
var thumbnailBase = "https://i.ytimg.com/vi/"

var thumbnailNames = []string{"maxresdefault.jpg", "sddefault.jpg", "hqdefault.jpg"}

const maxThumbnailBytes = 4 << 20

// ThumbnailURLs returns thumbnail candidates, largest first.
func ThumbnailURLs(id string) []string {
	urls := make([]string, len(thumbnailNames))
	for i, name := range thumbnailNames {
		urls[i] = thumbnailBase + id + "/" + name
	}
	return urls
}

// FetchThumbnails downloads up to max thumbnails as inline images.
// Missing sizes are skipped silently.
func FetchThumbnails(ctx context.Context, id string, max int) []engine.InlineImage {
	if max <= 0 {
		return nil
	}
	var out []engine.InlineImage
	for _, u := range ThumbnailURLs(id) {
		if len(out) >= max {
			break
		}
		img, err := fetchImage(ctx, u)
		if err != nil {
			slog.Debug("thumbnail skipped", slog.String("url", u), slog.Any("error", err))
			continue
		}
		if img != nil {
			out = append(out, *img)
		}
	}
	return out
}

func fetchImage(ctx context.Context, u string) (*engine.InlineImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentChrome)
	resp, err := engine.Cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/jpeg"
		}
	}
	return &engine.InlineImage{MIMEType: mime, Data: data}, nil
}
