package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
)

// Video is one video_analysis row.
type Video struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	Note              string  `json:"note,omitempty"`
	Status            Status  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	AnalyzedAt        string  `json:"analyzed_at,omitempty"`
	ScriptLanguage    string  `json:"script_language,omitempty"`
	ViewCount         int64   `json:"view_count"`
	LikeCount         int64   `json:"like_count"`
	CommentCount      int64   `json:"comment_count"`
	Duration          string  `json:"duration,omitempty"`
	ChannelTitle      string  `json:"channel_title,omitempty"`
	PublishedAt       string  `json:"published_at,omitempty"`
	Model             string  `json:"model,omitempty"`
	Completion        float64 `json:"completion"`
	HybridScore       float64 `json:"hybrid_score"`
	QuantitativeScore float64 `json:"quantitative_score"`
	QualitativeScore  float64 `json:"qualitative_score"`
	ErrorMessage      string  `json:"error_message,omitempty"`
	FeatureCount      int     `json:"feature_count"`
}

// FeatureValue is one video_features row.
type FeatureValue struct {
	No       int    `json:"no"`
	Category string `json:"category"`
	Item     string `json:"item"`
	Value    string `json:"value"`
}

// Analysis is a video with its rubric answers.
type Analysis struct {
	Video
	Features []FeatureValue `json:"features"`
}

// Values returns the features as an adscore.Values map.
func (a *Analysis) Values() adscore.Values {
	v := make(adscore.Values, len(a.Features))
	for _, f := range a.Features {
		v[f.No] = f.Value
	}
	return v
}

// NewVideo is a video submitted for analysis.
type NewVideo struct {
	ID       string
	Title    string
	URL      string
	Note     string
	Priority int
}

// Result is a finished analysis to persist.
type Result struct {
	VideoID        string
	Title          string
	URL            string
	Note           string
	Status         Status // completed or incomplete
	ScriptLanguage string
	ViewCount      int64
	LikeCount      int64
	CommentCount   int64
	Duration       string
	ChannelTitle   string
	PublishedAt    string
	Model          string
	Completion     float64
	Scores         adscore.Scores
	Values         adscore.Values
}

// SaveVideo registers a video as pending and queues it unless it is already
// waiting. Existing analysis data is kept until the next result overwrites it.
func (s *Store) SaveVideo(ctx context.Context, v NewVideo) error {
	if v.ID == "" || v.URL == "" {
		return errors.New("store: video id and url are required")
	}
	if v.Title == "" {
		v.Title = v.URL
	}
	if v.Priority <= 0 {
		v.Priority = 1
	}
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO video_analysis (id, title, url, note, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)
		ON CONFLICT(id) DO UPDATE SET
			title = CASE WHEN excluded.title = excluded.url THEN video_analysis.title ELSE excluded.title END,
			url = excluded.url,
			note = COALESCE(NULLIF(excluded.note, ''), video_analysis.note),
			status = 'pending',
			error_message = NULL`,
		v.ID, v.Title, v.URL, v.Note, now)
	if err != nil {
		return fmt.Errorf("store: save video %s: %w", v.ID, err)
	}

	var waiting int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_queue WHERE video_id = ? AND status IN ('waiting', 'processing')`,
		v.ID).Scan(&waiting); err != nil {
		return fmt.Errorf("store: check queue: %w", err)
	}
	if waiting == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_queue (video_id, priority, status, created_at) VALUES (?, ?, 'waiting', ?)`,
			v.ID, v.Priority, now); err != nil {
			return fmt.Errorf("store: enqueue %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

// MarkAnalyzing flags a video as in progress.
func (s *Store) MarkAnalyzing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE video_analysis SET status = 'analyzing' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: mark analyzing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE analysis_queue SET status = 'processing' WHERE video_id = ? AND status = 'waiting'`, id)
	if err != nil {
		return fmt.Errorf("store: mark queue processing: %w", err)
	}
	return nil
}

// RequeueInterrupted puts analyses left running by a previous process back
// in the queue. Open calls it before any session can start.
func (s *Store) RequeueInterrupted(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE analysis_queue SET status = 'waiting' WHERE status = 'processing'`)
	if err != nil {
		return 0, fmt.Errorf("store: requeue processing: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx,
		`UPDATE video_analysis SET status = 'pending' WHERE status = 'analyzing'`); err != nil {
		return 0, fmt.Errorf("store: reset analyzing: %w", err)
	}
	return n, tx.Commit()
}

// SaveAnalysisResult writes the parent row and all rubric rows in one
// transaction. Rubric items without an answer are stored as N/A.
func (s *Store) SaveAnalysisResult(ctx context.Context, r Result) error {
	if r.VideoID == "" {
		return errors.New("store: result without video id")
	}
	if r.Status == "" {
		r.Status = StatusCompleted
	}
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	title := r.Title
	if title == "" {
		title = r.URL
	}
	// Parent row may be missing when results arrive for an unregistered video.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO video_analysis (id, title, url, note, status, created_at)
		VALUES (?, ?, ?, ?, 'analyzing', ?)
		ON CONFLICT DO NOTHING`,
		r.VideoID, title, r.URL, r.Note, now)
	if err != nil {
		return fmt.Errorf("store: ensure parent %s: %w", r.VideoID, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE video_analysis SET
			title = COALESCE(NULLIF(?, ''), title), status = ?, analyzed_at = ?, script_language = ?,
			view_count = ?, like_count = ?, comment_count = ?,
			duration = ?, channel_title = ?, published_at = ?, model = ?,
			completion = ?, hybrid_score = ?, quantitative_score = ?, qualitative_score = ?,
			error_message = NULL
		WHERE id = ?`,
		r.Title, string(r.Status), now, r.ScriptLanguage,
		r.ViewCount, r.LikeCount, r.CommentCount,
		r.Duration, r.ChannelTitle, r.PublishedAt, r.Model,
		r.Completion, r.Scores.Hybrid, r.Scores.Quantitative.Final, r.Scores.Qualitative.Quality,
		r.VideoID)
	if err != nil {
		return fmt.Errorf("store: update video %s: %w", r.VideoID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: update video %s: %w", r.VideoID, ErrNotFound)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO video_features (video_id, feature_no, feature_category, feature_item, feature_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id, feature_no) DO UPDATE SET
			feature_category = excluded.feature_category,
			feature_item = excluded.feature_item,
			feature_value = excluded.feature_value`)
	if err != nil {
		return fmt.Errorf("store: prepare features: %w", err)
	}
	defer stmt.Close()

	for _, f := range adscore.Catalog() {
		val := strings.TrimSpace(r.Values[f.No])
		if val == "" {
			val = adscore.ValueNA
		}
		if _, err := stmt.ExecContext(ctx, r.VideoID, f.No, f.Category, f.Item, val); err != nil {
			return fmt.Errorf("store: upsert feature %d of %s: %w", f.No, r.VideoID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE analysis_queue SET status = ?, processed_at = ?, error_message = NULL
		WHERE video_id = ? AND status IN ('waiting', 'processing')`,
		queueCompleted, now, r.VideoID); err != nil {
		return fmt.Errorf("store: complete queue %s: %w", r.VideoID, err)
	}
	return tx.Commit()
}

// MarkAnalysisFailed records a failed analysis.
func (s *Store) MarkAnalysisFailed(ctx context.Context, id, message string) error {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`UPDATE video_analysis SET status = 'failed', analyzed_at = ?, error_message = ? WHERE id = ?`,
		now, message, id)
	if err != nil {
		return fmt.Errorf("store: mark failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE analysis_queue SET status = ?, processed_at = ?, error_message = ?
		WHERE video_id = ? AND status IN ('waiting', 'processing')`,
		queueFailed, now, message, id)
	if err != nil {
		return fmt.Errorf("store: fail queue: %w", err)
	}
	return nil
}

const videoColumns = `v.id, v.title, v.url, v.note, v.status, v.created_at, v.analyzed_at,
	v.script_language, v.view_count, v.like_count, v.comment_count, v.duration,
	v.channel_title, v.published_at, v.model, v.completion,
	v.hybrid_score, v.quantitative_score, v.qualitative_score, v.error_message,
	(SELECT COUNT(*) FROM video_features f WHERE f.video_id = v.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (Video, error) {
	var v Video
	var status string
	var note, analyzedAt, lang, duration, channel, published, model, errMsg sql.NullString
	var hybrid, quant, qual sql.NullFloat64
	err := row.Scan(&v.ID, &v.Title, &v.URL, &note, &status, &v.CreatedAt, &analyzedAt,
		&lang, &v.ViewCount, &v.LikeCount, &v.CommentCount, &duration,
		&channel, &published, &model, &v.Completion,
		&hybrid, &quant, &qual, &errMsg, &v.FeatureCount)
	if err != nil {
		return v, err
	}
	v.Status = Status(status)
	v.Note = note.String
	v.AnalyzedAt = analyzedAt.String
	v.ScriptLanguage = lang.String
	v.Duration = duration.String
	v.ChannelTitle = channel.String
	v.PublishedAt = published.String
	v.Model = model.String
	v.ErrorMessage = errMsg.String
	v.HybridScore = hybrid.Float64
	v.QuantitativeScore = quant.Float64
	v.QualitativeScore = qual.Float64
	return v, nil
}

func (s *Store) queryVideos(ctx context.Context, query string, args ...any) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PendingVideos returns videos waiting in the queue, highest priority then oldest first.
func (s *Store) PendingVideos(ctx context.Context, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = 100
	}
	videos, err := s.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM video_analysis v
		JOIN analysis_queue q ON q.video_id = v.id
		WHERE q.status = 'waiting'
		GROUP BY v.id
		ORDER BY MAX(q.priority) DESC, MIN(q.created_at) ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending videos: %w", err)
	}
	return videos, nil
}

// Video returns one analysis with its features.
func (s *Store) Video(ctx context.Context, id string) (*Analysis, error) {
	v, err := scanVideo(s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video_analysis v WHERE v.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get video %s: %w", id, err)
	}
	a := &Analysis{Video: v}
	a.Features, err = s.features(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) features(ctx context.Context, id string) ([]FeatureValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature_no, feature_category, feature_item, feature_value
		FROM video_features WHERE video_id = ? ORDER BY feature_no`, id)
	if err != nil {
		return nil, fmt.Errorf("store: features %s: %w", id, err)
	}
	defer rows.Close()
	var out []FeatureValue
	for rows.Next() {
		var f FeatureValue
		if err := rows.Scan(&f.No, &f.Category, &f.Item, &f.Value); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListFilter narrows ListVideos.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// ListVideos returns videos newest first.
func (s *Store) ListVideos(ctx context.Context, f ListFilter) ([]Video, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	query := `SELECT ` + videoColumns + ` FROM video_analysis v`
	var args []any
	if f.Status != "" {
		query += ` WHERE v.status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY v.created_at DESC, v.id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)
	videos, err := s.queryVideos(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list videos: %w", err)
	}
	return videos, nil
}

// CompletedAnalyses returns finished analyses (completed or incomplete) with
// features, most recently analyzed first. A non-empty ids restricts the set.
func (s *Store) CompletedAnalyses(ctx context.Context, ids []string) ([]Analysis, error) {
	query := `SELECT ` + videoColumns + ` FROM video_analysis v WHERE v.status IN ('completed', 'incomplete')`
	var args []any
	if len(ids) > 0 {
		query += ` AND v.id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY v.analyzed_at DESC`
	videos, err := s.queryVideos(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: completed analyses: %w", err)
	}
	out := make([]Analysis, 0, len(videos))
	for _, v := range videos {
		feats, err := s.features(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Analysis{Video: v, Features: feats})
	}
	return out, nil
}

// DeleteVideo removes a video; features and queue rows cascade.
func (s *Store) DeleteVideo(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM video_analysis WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Statistics summarizes the database.
type Statistics struct {
	Total          int    `json:"total"`
	Pending        int    `json:"pending"`
	Analyzing      int    `json:"analyzing"`
	Completed      int    `json:"completed"`
	Incomplete     int    `json:"incomplete"`
	Failed         int    `json:"failed"`
	QueueWaiting   int    `json:"queue_waiting"`
	LatestAnalysis string `json:"latest_analysis,omitempty"`
}

// Statistics counts videos per status.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var st Statistics
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM video_analysis GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("store: statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.Total += n
		switch Status(status) {
		case StatusPending:
			st.Pending = n
		case StatusAnalyzing:
			st.Analyzing = n
		case StatusCompleted:
			st.Completed = n
		case StatusIncomplete:
			st.Incomplete = n
		case StatusFailed:
			st.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(analyzed_at) FROM video_analysis WHERE status IN ('completed', 'incomplete')`).Scan(&latest); err != nil {
		return st, fmt.Errorf("store: latest analysis: %w", err)
	}
	st.LatestAnalysis = latest.String

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_queue WHERE status = ?`, queueWaiting).Scan(&st.QueueWaiting); err != nil {
		return st, fmt.Errorf("store: queue count: %w", err)
	}
	return st, nil
}
