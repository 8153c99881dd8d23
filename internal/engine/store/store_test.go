package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
)

// openTest opens a fresh database whose clock advances one minute per call.
func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func saveVideo(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.SaveVideo(context.Background(), NewVideo{
		ID:  id,
		URL: "https://www.youtube.com/watch?v=" + id,
	}))
}

func TestSaveVideoQueuesOnce(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	saveVideo(t, s, "aaaaaaaaaaa")
	saveVideo(t, s, "aaaaaaaaaaa")

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.QueueWaiting)

	v, err := s.Video(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, v.URL, v.Title, "title defaults to url")
	assert.Empty(t, v.Features)
}

func TestSaveVideoValidation(t *testing.T) {
	s := openTest(t)
	assert.Error(t, s.SaveVideo(context.Background(), NewVideo{ID: "x"}))
	assert.Error(t, s.SaveVideo(context.Background(), NewVideo{URL: "https://youtu.be/x"}))
}

func TestSaveAnalysisResultWritesAllFeatures(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	saveVideo(t, s, "bbbbbbbbbbb")
	require.NoError(t, s.MarkAnalyzing(ctx, "bbbbbbbbbbb"))

	vals := adscore.Values{1: "여성", 63: "있음", 150: "  "}
	err := s.SaveAnalysisResult(ctx, Result{
		VideoID:    "bbbbbbbbbbb",
		Title:      "Glow Serum",
		Status:     StatusCompleted,
		ViewCount:  1200,
		Model:      "gemini-2.5-flash",
		Completion: 1.3,
		Scores:     adscore.Scores{Hybrid: 42.5},
		Values:     vals,
	})
	require.NoError(t, err)

	a, err := s.Video(ctx, "bbbbbbbbbbb")
	require.NoError(t, err)
	require.Len(t, a.Features, adscore.FeatureCount)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, "Glow Serum", a.Title)
	assert.Equal(t, adscore.FeatureCount, a.FeatureCount)
	assert.InDelta(t, 42.5, a.HybridScore, 1e-9)
	assert.NotEmpty(t, a.AnalyzedAt)

	got := a.Values()
	assert.Equal(t, "여성", got[1])
	assert.Equal(t, "있음", got[63])
	assert.Equal(t, adscore.ValueNA, got[150], "blank answers are stored as N/A")
	assert.Equal(t, adscore.ValueNA, got[2])

	f, _ := adscore.FeatureByNo(63)
	assert.Equal(t, f.Category, a.Features[62].Category)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.QueueWaiting)
	assert.Equal(t, a.AnalyzedAt, st.LatestAnalysis)
}

func TestSaveAnalysisResultUpserts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	// no parent row yet
	first := Result{VideoID: "ccccccccccc", URL: "https://youtu.be/ccccccccccc", Values: adscore.Values{5: "밝음"}}
	require.NoError(t, s.SaveAnalysisResult(ctx, first))

	second := first
	second.Values = adscore.Values{5: "어두움"}
	second.Status = StatusIncomplete
	require.NoError(t, s.SaveAnalysisResult(ctx, second))

	a, err := s.Video(ctx, "ccccccccccc")
	require.NoError(t, err)
	assert.Len(t, a.Features, adscore.FeatureCount)
	assert.Equal(t, "어두움", a.Values()[5])
	assert.Equal(t, StatusIncomplete, a.Status)
}

func TestMarkAnalysisFailed(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	saveVideo(t, s, "ddddddddddd")

	require.NoError(t, s.MarkAnalysisFailed(ctx, "ddddddddddd", "[Gemini] 503 overloaded"))
	a, err := s.Video(ctx, "ddddddddddd")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, a.Status)
	assert.Equal(t, "[Gemini] 503 overloaded", a.ErrorMessage)

	pending, err := s.PendingVideos(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, s.MarkAnalysisFailed(ctx, "missing", "x"), ErrNotFound)
	assert.ErrorIs(t, s.MarkAnalyzing(ctx, "missing"), ErrNotFound)

	// resubmitting a failed video queues it again
	saveVideo(t, s, "ddddddddddd")
	pending, err = s.PendingVideos(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Empty(t, pending[0].ErrorMessage)
}

func TestReopenRequeuesInterrupted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "analysis.db")
	s, err := Open(path)
	require.NoError(t, err)
	saveVideo(t, s, "aaaaaaaaaaa")
	require.NoError(t, s.MarkAnalyzing(ctx, "aaaaaaaaaaa"))

	pending, err := s.PendingVideos(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.NoError(t, s.Close())

	// process restarted mid-analysis
	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	pending, err = s.PendingVideos(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "aaaaaaaaaaa", pending[0].ID)

	v, err := s.Video(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)

	// re-saving does not enqueue a second entry
	saveVideo(t, s, "aaaaaaaaaaa")
	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.QueueWaiting)
}

func TestPendingVideosOrder(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	saveVideo(t, s, "old00000000")
	saveVideo(t, s, "new00000000")
	require.NoError(t, s.SaveVideo(ctx, NewVideo{ID: "urgent00000", URL: "https://youtu.be/urgent00000", Priority: 5}))

	pending, err := s.PendingVideos(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(pending))
	for i, v := range pending {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"urgent00000", "old00000000", "new00000000"}, ids)

	limited, err := s.PendingVideos(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListAndCompleted(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for _, id := range []string{"v1111111111", "v2222222222", "v3333333333"} {
		saveVideo(t, s, id)
	}
	require.NoError(t, s.SaveAnalysisResult(ctx, Result{VideoID: "v1111111111"}))
	require.NoError(t, s.SaveAnalysisResult(ctx, Result{VideoID: "v2222222222", Status: StatusIncomplete}))

	all, err := s.ListVideos(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "v3333333333", all[0].ID, "newest first")

	pending, err := s.ListVideos(ctx, ListFilter{Status: StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "v3333333333", pending[0].ID)

	paged, err := s.ListVideos(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "v2222222222", paged[0].ID)

	done, err := s.CompletedAnalyses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, "v2222222222", done[0].ID, "most recently analyzed first")
	assert.Len(t, done[0].Features, adscore.FeatureCount)

	one, err := s.CompletedAnalyses(ctx, []string{"v1111111111", "v3333333333"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "v1111111111", one[0].ID)
}

func TestDeleteVideoCascades(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	saveVideo(t, s, "eeeeeeeeeee")
	require.NoError(t, s.SaveAnalysisResult(ctx, Result{VideoID: "eeeeeeeeeee"}))

	require.NoError(t, s.DeleteVideo(ctx, "eeeeeeeeeee"))
	_, err := s.Video(ctx, "eeeeeeeeeee")
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM video_features`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM analysis_queue`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteVideo(ctx, "eeeeeeeeeee"), ErrNotFound)
}

func TestHealthyAndStatusValid(t *testing.T) {
	s := openTest(t)
	assert.NoError(t, s.Healthy(context.Background()))
	assert.True(t, StatusIncomplete.Valid())
	assert.False(t, Status("done").Valid())
	assert.Equal(t, "?,?,?", placeholders(3))
}
