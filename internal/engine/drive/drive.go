// Package drive uploads export files to Google Drive with a service account.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/anatolykoptev/go_adscore/internal/engine"
)

const folderMimeType = "application/vnd.google-apps.folder"

// ErrNotConfigured is returned when credentials or the target folder are missing.
var ErrNotConfigured = errors.New("drive: not configured")

// Config selects credentials and the destination folder.
type Config struct {
	// ServiceAccountJSON is a key file path or the inline JSON document.
	ServiceAccountJSON string
	// Email and PrivateKey are used when no JSON key is given.
	Email      string
	PrivateKey string
	// Subject is the Workspace user to impersonate, if any.
	Subject string
	// Folder is a folder id or a Drive folder URL.
	Folder        string
	WeeklyFolders bool
}

// Configured reports whether c has enough to build an uploader.
func (c Config) Configured() bool {
	hasKey := c.ServiceAccountJSON != "" || (c.Email != "" && c.PrivateKey != "")
	return hasKey && ResolveFolderID(c.Folder) != ""
}

// Uploader writes files into a parent folder, optionally grouped by week.
type Uploader struct {
	svc    *gdrive.Service
	parent string
	weekly bool
	now    func() time.Time
}

// New builds an uploader. ctx is kept by the token source and must outlive
// the uploader.
func New(ctx context.Context, c Config) (*Uploader, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	jwtCfg, err := jwtConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := gdrive.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return NewWithService(svc, c.Folder, c.WeeklyFolders), nil
}

// NewWithService wraps an existing Drive client.
func NewWithService(svc *gdrive.Service, folder string, weekly bool) *Uploader {
	return &Uploader{svc: svc, parent: ResolveFolderID(folder), weekly: weekly, now: time.Now}
}

func jwtConfig(c Config) (*jwt.Config, error) {
	scopes := []string{gdrive.DriveFileScope, gdrive.DriveScope}
	if c.ServiceAccountJSON != "" {
		data, err := loadKey(c.ServiceAccountJSON)
		if err != nil {
			return nil, err
		}
		jc, err := google.JWTConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("drive: parse service account: %w", err)
		}
		if c.Subject != "" {
			jc.Subject = c.Subject
		}
		return jc, nil
	}
	return &jwt.Config{
		Email:      c.Email,
		PrivateKey: []byte(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
		Subject:    c.Subject,
	}, nil
}

// loadKey accepts inline JSON or a path to the key file.
func loadKey(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("drive: read key file: %w", err)
	}
	return data, nil
}

var (
	folderPathRE = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)
	folderIDRE   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ResolveFolderID extracts a folder id from a Drive URL or returns the raw id.
func ResolveFolderID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if m := folderPathRE.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if u, err := url.Parse(v); err == nil && u.Query().Get("id") != "" {
		return u.Query().Get("id")
	}
	if folderIDRE.MatchString(v) {
		return v
	}
	return ""
}

// WeekRange returns Monday 00:00 and Sunday 00:00 of the week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 6)
}

// WeeklyFolderName is YYYY-MM-DD_to_YYYY-MM-DD for the week containing t.
func WeeklyFolderName(t time.Time) string {
	start, end := WeekRange(t)
	return start.Format("2006-01-02") + "_to_" + end.Format("2006-01-02")
}

// File is an upload request.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Uploaded describes the created Drive file.
type Uploaded struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Link       string `json:"link,omitempty"`
	FolderID   string `json:"folder_id"`
	FolderName string `json:"folder_name,omitempty"`
}

var driveRetry = engine.RetryConfig{
	MaxRetries:  2,
	InitialWait: time.Second,
	MaxWait:     8 * time.Second,
	Multiplier:  2,
	Jitter:      0.1,
}

// Upload stores f in the weekly folder, or in the parent when weekly folders
// are off or the weekly folder cannot be resolved.
func (u *Uploader) Upload(ctx context.Context, f File) (Uploaded, error) {
	if u == nil || u.svc == nil || u.parent == "" {
		return Uploaded{}, ErrNotConfigured
	}
	folderID, folderName := u.parent, ""
	if u.weekly {
		name := WeeklyFolderName(u.now())
		id, err := u.ensureFolder(ctx, name, u.parent)
		if err != nil {
			slog.Warn("drive: weekly folder unavailable, using parent",
				slog.String("folder", name), slog.Any("error", err))
		} else {
			folderID, folderName = id, name
		}
	}

	created, err := engine.RetryDo(ctx, driveRetry, func() (*gdrive.File, error) {
		return engine.Schedule(ctx, engine.DriveLimiter, func(ctx context.Context) (*gdrive.File, error) {
			return u.svc.Files.Create(&gdrive.File{
				Name:     f.Name,
				MimeType: f.MimeType,
				Parents:  []string{folderID},
			}).
				Media(bytes.NewReader(f.Data), googleapi.ContentType(f.MimeType)).
				Fields("id", "name", "webViewLink").
				SupportsAllDrives(true).
				Context(ctx).
				Do()
		})
	})
	if err != nil {
		engine.IncrDriveErrors()
		return Uploaded{}, fmt.Errorf("drive: upload %s: %w", f.Name, err)
	}
	engine.IncrDriveUploads()
	slog.Info("drive: uploaded", slog.String("name", created.Name), slog.String("folder", folderID))
	return Uploaded{
		ID:         created.Id,
		Name:       created.Name,
		Link:       created.WebViewLink,
		FolderID:   folderID,
		FolderName: folderName,
	}, nil
}

// ensureFolder finds a child folder by name or creates it.
func (u *Uploader) ensureFolder(ctx context.Context, name, parent string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), folderMimeType, escapeQuery(parent))
	list, err := engine.RetryDo(ctx, driveRetry, func() (*gdrive.FileList, error) {
		return engine.Schedule(ctx, engine.DriveLimiter, func(ctx context.Context) (*gdrive.FileList, error) {
			return u.svc.Files.List().
				Q(q).
				Fields("files(id,name)").
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx).
				Do()
		})
	})
	if err != nil {
		return "", fmt.Errorf("drive: find folder: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := engine.Schedule(ctx, engine.DriveLimiter, func(ctx context.Context) (*gdrive.File, error) {
		return u.svc.Files.Create(&gdrive.File{
			Name:     name,
			MimeType: folderMimeType,
			Parents:  []string{parent},
		}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	})
	if err != nil {
		return "", fmt.Errorf("drive: create folder: %w", err)
	}
	slog.Info("drive: created weekly folder", slog.String("name", name), slog.String("id", folder.Id))
	return folder.Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
