package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/sources"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
	"github.com/anatolykoptev/go_adscore/internal/scheduler"
)

func init() { gin.SetMode(gin.TestMode) }

func reply(n int) string {
	parts := make([]string, 0, n)
	for no := 1; no <= n; no++ {
		parts = append(parts, fmt.Sprintf("%q: %q", adscore.Key(no), "있음"))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type env struct {
	router *gin.Engine
	store  *store.Store
	sched  *scheduler.Scheduler
}

func newEnv(t *testing.T, withAutomation bool) *env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	a := analysis.New(context.Background(), analysis.Config{
		Store: st,
		Metadata: func(_ context.Context, id string) (*sources.VideoMetadata, error) {
			return &sources.VideoMetadata{ID: id, Title: "Ad " + id, ChannelTitle: "Brand", ViewCount: 100}, nil
		},
		Captions: func(context.Context, string, []string) (sources.Captions, error) {
			return sources.Captions{}, nil
		},
		Thumbnails: func(context.Context, string, int) []engine.InlineImage { return nil },
		Generate: func(context.Context, engine.GenerateRequest) (engine.Generation, error) {
			return engine.Generation{Text: reply(30), Model: "gemini-2.5-flash"}, nil
		},
	})

	e := &env{store: st}
	var auto *scheduler.Automation
	if withAutomation {
		auto = &scheduler.Automation{Store: st, Analyzer: a}
		e.sched = scheduler.New(context.Background(), auto, scheduler.Specs{})
		t.Cleanup(func() { _ = e.sched.Stop(context.Background()) })
	}
	h := NewHandler(st, a, auto, e.sched)
	h.now = func() time.Time { return time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC) }
	e.router = NewRouter(h)
	return e
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSubmitVideos(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(http.MethodPost, "/api/videos", `{"links": ["https://youtu.be/aaaaaaaaaaa", "nope"], "note": "q2"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, []any{"aaaaaaaaaaa"}, body["saved"])
	assert.Equal(t, []any{"nope"}, body["invalid"])

	w = e.do(http.MethodPost, "/api/videos", `{"links": "https://youtu.be/bbbbbbbbbbb\nhttps://youtu.be/ccccccccccc"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode(t, w)["saved"], 2)

	w = e.do(http.MethodPost, "/api/videos", `{"links": "not a link"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/videos", `{"links": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/videos?status=pending&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = e.do(http.MethodGet, "/api/videos?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeWaitAndExport(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(http.MethodPost, "/api/analyze", `{"links": "https://youtu.be/abcdefghijk", "wait": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	session, _ := body["sessionId"].(string)
	assert.NotEmpty(t, session)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "completed", results[0].(map[string]any)["status"])
	assert.EqualValues(t, 1, body["statistics"].(map[string]any)["success"])

	w = e.do(http.MethodGet, "/api/analyze/progress/"+session, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["completed"])

	w = e.do(http.MethodGet, "/api/analyze/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session, decode(t, w)["sessionId"])

	w = e.do(http.MethodGet, "/api/videos/abcdefghijk", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ad abcdefghijk", decode(t, w)["title"])

	w = e.do(http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="Ad_abcdefghijk_analysis_20250401.csv"`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "\ufeff"))

	w = e.do(http.MethodGet, "/api/export/excel?ids=abcdefghijk", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "youtube_analysis_Ad_abcdefghijk_20250401T090000Z.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = e.do(http.MethodGet, "/api/export/pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/export/json?ids=zzzzzzzzzzz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/db-stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["statistics"].(map[string]any)["completed"])

	w = e.do(http.MethodDelete, "/api/videos/abcdefghijk", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/api/videos/abcdefghijk", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodDelete, "/api/videos/abcdefghijk", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportNonASCIITitle(t *testing.T) {
	e := newEnv(t, false)
	require.NoError(t, e.store.SaveAnalysisResult(context.Background(), store.Result{
		VideoID: "kkkkkkkkkkk", URL: "https://youtu.be/kkkkkkkkkkk", Title: "광고",
		Status: store.StatusCompleted, Values: adscore.Values{1: "여성"},
	}))

	w := e.do(http.MethodGet, "/api/export/csv?ids=kkkkkkkkkkk", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`attachment; filename="__analysis_20250401.csv"; filename*=UTF-8''%EA%B4%91%EA%B3%A0_analysis_20250401.csv`,
		w.Header().Get("Content-Disposition"))
}

func TestAttachment(t *testing.T) {
	assert.Equal(t, `attachment; filename="a b_c.json"; filename*=UTF-8''a%20b%22c.json`, attachment(`a b"c.json`))
}

func TestAnalyzeBackground(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(http.MethodGet, "/api/analyze/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])

	w = e.do(http.MethodPost, "/api/analyze", `{"videos": [{"url": "https://youtu.be/abcdefghijk", "note": "bg"}]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	session := decode(t, w)["sessionId"].(string)

	require.Eventually(t, func() bool {
		w := e.do(http.MethodGet, "/api/analyze/progress/"+session, "")
		var p analysis.Progress
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &p) == nil && p.Done()
	}, 5*time.Second, 20*time.Millisecond)

	w = e.do(http.MethodPost, "/api/analyze", `{"links": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/analyze/progress/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "unknown")
}

func TestDashboardAndHealth(t *testing.T) {
	e := newEnv(t, false)
	require.NoError(t, e.store.SaveVideo(context.Background(), store.NewVideo{
		ID: "aaaaaaaaaaa", URL: "https://youtu.be/aaaaaaaaaaa", Title: "Spring <sale>",
	}))

	w := e.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Recent videos")
	assert.Contains(t, w.Body.String(), "Spring &lt;sale&gt;")

	w = e.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])

	w = e.do(http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gemini_calls ")
}

func TestAutomationRoutesDisabled(t *testing.T) {
	e := newEnv(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodPost, "/api/automation/trigger", `{"action": "collect"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodGet, "/api/scheduler", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodPost, "/api/drive/upload", "").Code)
}

func TestTriggerAndUpload(t *testing.T) {
	e := newEnv(t, true)

	w := e.do(http.MethodPost, "/api/automation/trigger", `{"action": "dance"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/automation/trigger", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/automation/trigger", `{"action": "analyze_pending"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "analyze_pending", decode(t, w)["action"])

	w = e.do(http.MethodPost, "/api/drive/upload", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(http.MethodPost, "/api/drive/upload", `{"format": "pdf"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerControl(t *testing.T) {
	e := newEnv(t, true)

	w := e.do(http.MethodGet, "/api/scheduler", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["running"])

	w = e.do(http.MethodPost, "/api/scheduler", `{"action": "start"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["running"])
	assert.True(t, e.sched.Running())

	w = e.do(http.MethodPost, "/api/scheduler", `{"action": "status"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["jobs"], 4)

	w = e.do(http.MethodPost, "/api/scheduler", `{"action": "stop"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["running"])

	w = e.do(http.MethodPost, "/api/scheduler", `{"action": "reboot"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
