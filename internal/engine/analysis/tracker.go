package analysis

import (
	"sync"
	"time"
)

// Stage is the step the current video is in.
type Stage string

const (
	StageYouTube  Stage = "youtube"
	StageGemini   Stage = "gemini"
	StageComplete Stage = "complete"
)

// successThreshold is the completion percentage above which an analysis counts as a success.
const successThreshold = 5.0

// VideoProgress is the per-video state inside a session.
type VideoProgress struct {
	ID         string  `json:"id,omitempty"`
	URL        string  `json:"url"`
	Title      string  `json:"title,omitempty"`
	Status     string  `json:"status"`
	Completion float64 `json:"completion"`
	Hybrid     float64 `json:"hybrid_score,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ProgressStats summarizes a session.
type ProgressStats struct {
	Success    int `json:"success"`
	Failure    int `json:"failure"`
	Processing int `json:"processing"`
}

// Progress is a snapshot of one analysis session.
type Progress struct {
	SessionID  string          `json:"sessionId"`
	Total      int             `json:"total"`
	Completed  int             `json:"completed"`
	Current    string          `json:"current"`
	Stage      Stage           `json:"stage"`
	Videos     []VideoProgress `json:"videos"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Statistics ProgressStats   `json:"statistics"`
}

// Done reports whether every video has settled.
func (p Progress) Done() bool { return p.FinishedAt != nil }

func (p *Progress) recount() {
	var s ProgressStats
	for _, v := range p.Videos {
		switch {
		case v.Status == "completed" && v.Completion > successThreshold:
			s.Success++
		case v.Status == "failed", v.Status == "incomplete", v.Status == "completed":
			s.Failure++
		}
	}
	s.Processing = p.Total - p.Completed
	p.Statistics = s
}

// Tracker keeps progress per session id. Finished sessions expire after ttl.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Progress
	latest   string
	ttl      time.Duration
	now      func() time.Time
}

// NewTracker returns a tracker; ttl <= 0 keeps finished sessions for an hour.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{sessions: map[string]*Progress{}, ttl: ttl, now: time.Now}
}

func (t *Tracker) begin(id string, reqs []Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	p := &Progress{
		SessionID: id,
		Total:     len(reqs),
		Stage:     StageYouTube,
		Videos:    make([]VideoProgress, len(reqs)),
		StartedAt: t.now(),
	}
	for i, r := range reqs {
		p.Videos[i] = VideoProgress{URL: r.URL, Title: r.Title, Status: "pending"}
	}
	p.recount()
	t.sessions[id] = p
	t.latest = id
}

func (t *Tracker) stage(id string, idx int, st Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.sessions[id]
	if !ok || idx >= len(p.Videos) {
		return
	}
	p.Stage = st
	p.Current = p.Videos[idx].URL
	p.Videos[idx].Status = "analyzing"
}

func (t *Tracker) settle(id string, idx int, o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.sessions[id]
	if !ok || idx >= len(p.Videos) {
		return
	}
	p.Videos[idx] = o.progress()
	p.Completed++
	p.recount()
}

func (t *Tracker) finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.sessions[id]
	if !ok {
		return
	}
	now := t.now()
	p.FinishedAt = &now
	p.Stage = StageComplete
	p.Current = ""
	p.recount()
}

// Get returns a copy of the session's progress.
func (t *Tracker) Get(id string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	p, ok := t.sessions[id]
	if !ok {
		return Progress{}, false
	}
	return p.clone(), true
}

// Latest returns the most recently started session that is still retained.
func (t *Tracker) Latest() (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	p, ok := t.sessions[t.latest]
	if !ok {
		return Progress{}, false
	}
	return p.clone(), true
}

func (t *Tracker) sweepLocked() {
	cutoff := t.now().Add(-t.ttl)
	for id, p := range t.sessions {
		if p.FinishedAt != nil && p.FinishedAt.Before(cutoff) {
			delete(t.sessions, id)
		}
	}
}

func (p *Progress) clone() Progress {
	c := *p
	c.Videos = append([]VideoProgress(nil), p.Videos...)
	if p.FinishedAt != nil {
		f := *p.FinishedAt
		c.FinishedAt = &f
	}
	return c
}
