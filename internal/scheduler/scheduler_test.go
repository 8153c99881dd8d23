package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_adscore/internal/engine/adscore"
	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/collector"
	"github.com/anatolykoptev/go_adscore/internal/engine/drive"
	"github.com/anatolykoptev/go_adscore/internal/engine/export"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
)

type fakeCollector struct {
	opts []collector.Options
	res  collector.Result
	err  error
}

func (f *fakeCollector) Run(_ context.Context, o collector.Options) (collector.Result, error) {
	f.opts = append(f.opts, o)
	return f.res, f.err
}

type fakeAnalyzer struct {
	limit int
	delay time.Duration
	calls int
}

func (f *fakeAnalyzer) AnalyzePending(_ context.Context, limit int, delay time.Duration) (analysis.PendingReport, error) {
	f.calls++
	f.limit, f.delay = limit, delay
	return analysis.PendingReport{Processed: 1, Completed: 1}, nil
}

type fakeUploader struct {
	files []drive.File
}

func (f *fakeUploader) Upload(_ context.Context, file drive.File) (drive.Uploaded, error) {
	f.files = append(f.files, file)
	return drive.Uploaded{ID: "file1", Name: file.Name, FolderID: "week"}, nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCollectSavesAds(t *testing.T) {
	st := openStore(t)
	fc := &fakeCollector{res: collector.Result{Success: true, TotalCollected: 3, Ads: []collector.Ad{
		{Title: "Serum", URL: "https://youtu.be/aaaaaaaaaaa"},
		{Title: "Bad", URL: "https://example.com/x"},
		{Title: "Shoes", URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Note: "serpapi"},
	}}}
	a := &Automation{Collector: fc, Store: st, MaxAdsPerQuery: 15}

	rep, err := a.Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Saved)
	assert.Equal(t, 1, rep.Skipped)
	require.Len(t, fc.opts, 1)
	assert.Equal(t, 15, fc.opts[0].MaxAdsPerQuery)
	assert.Equal(t, collector.ActionCollect, fc.opts[0].Action)

	pending, err := st.PendingVideos(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestCollectError(t *testing.T) {
	a := &Automation{Collector: &fakeCollector{err: errors.New("exit 1")}, Store: openStore(t)}
	_, err := a.Collect(context.Background(), 5)
	assert.Error(t, err)

	_, err = (&Automation{}).Collect(context.Background(), 5)
	assert.Error(t, err)
}

func TestUploadLatest(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	up := &fakeUploader{}
	a := &Automation{Store: st, Uploader: up, now: func() time.Time {
		return time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	}}

	_, err := a.UploadLatest(ctx)
	assert.ErrorIs(t, err, ErrNothingToUpload)

	require.NoError(t, st.SaveAnalysisResult(ctx, store.Result{
		VideoID: "aaaaaaaaaaa", URL: "https://youtu.be/aaaaaaaaaaa", Title: "Glow: Serum",
		Values: adscore.Values{1: "여성"},
	}))
	res, err := a.UploadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file1", res.ID)
	require.Len(t, up.files, 1)
	assert.Equal(t, "youtube_analysis_Glow__Serum_20250303T100000Z.xlsx", up.files[0].Name)
	assert.Equal(t, export.FormatXLSX.ContentType(), up.files[0].MimeType)
	assert.NotEmpty(t, up.files[0].Data)

	_, err = a.UploadExport(ctx, export.FormatCSV, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(up.files[1].Name, "_analysis_20250303.csv"))

	_, err = (&Automation{Store: st}).UploadLatest(ctx)
	assert.ErrorIs(t, err, drive.ErrNotConfigured)
}

func TestTrigger(t *testing.T) {
	fc := &fakeCollector{res: collector.Result{Sent: 4}}
	fa := &fakeAnalyzer{}
	a := &Automation{Collector: fc, Store: openStore(t), Analyzer: fa, BatchLimit: 3, Delay: time.Second}
	ctx := context.Background()

	out, err := a.Trigger(ctx, ActionAnalyzePending, TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, analysis.PendingReport{Processed: 1, Completed: 1}, out)
	assert.Equal(t, 3, fa.limit)
	assert.Equal(t, time.Second, fa.delay)

	out, err = a.Trigger(ctx, ActionSync, TriggerOptions{MaxAdsPerQuery: 9})
	require.NoError(t, err)
	assert.Equal(t, 4, out.(collector.Result).Sent)
	assert.Equal(t, collector.ActionSync, fc.opts[0].Action)

	_, err = a.Trigger(ctx, ActionCollectAndAnalyze, TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, fa.calls)

	_, err = a.Trigger(ctx, "dance", TriggerOptions{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestHealth(t *testing.T) {
	a := &Automation{Store: openStore(t)}
	rep, err := a.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.OK)
	assert.Equal(t, "ok", rep.Database)
	assert.NotNil(t, rep.Metrics)
}

func TestSchedulerLifecycle(t *testing.T) {
	fa := &fakeAnalyzer{}
	a := &Automation{Store: openStore(t), Analyzer: fa}
	s := New(context.Background(), a, Specs{Analysis: "*/5 * * * *"})

	st := s.Status()
	assert.False(t, st.Running)
	require.Len(t, st.Jobs, 4)
	assert.Equal(t, "*/5 * * * *", st.Jobs[1].Spec)
	assert.Equal(t, DefaultSpecs.Collect, st.Jobs[0].Spec)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	st = s.Status()
	assert.True(t, st.Running)
	for _, j := range st.Jobs {
		assert.NotNil(t, j.Next, "job %s has no next run", j.Name)
	}

	require.NoError(t, s.RunNow(JobAnalysis))
	require.NoError(t, s.RunNow(JobUpload), "unconfigured upload is skipped")
	assert.ErrorIs(t, s.RunNow("nope"), ErrUnknownJob)
	assert.Equal(t, 1, fa.calls)
	st = s.Status()
	assert.Equal(t, 1, st.Jobs[1].Runs)
	assert.NotNil(t, st.Jobs[1].LastRun)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Running())
	require.NoError(t, s.Stop(ctx))
}

func TestRunNowDoesNotOverlap(t *testing.T) {
	s := New(context.Background(), &Automation{Store: openStore(t)}, Specs{})
	started, release := make(chan struct{}), make(chan struct{})
	s.jobs[1].fn = func(context.Context) error {
		close(started)
		<-release
		return nil
	}

	errc := make(chan error, 1)
	go func() { errc <- s.RunNow(JobAnalysis) }()
	<-started

	assert.ErrorIs(t, s.RunNow(JobAnalysis), ErrJobRunning)
	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, s.Status().Jobs[1].Runs)
}

func TestSchedulerBadSpec(t *testing.T) {
	s := New(context.Background(), &Automation{}, Specs{Health: "every now and then"})
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobHealth)
	assert.False(t, s.Running())
}

func TestCollectJobFailureRecorded(t *testing.T) {
	a := &Automation{Collector: &fakeCollector{err: errors.New("python missing")}, Store: openStore(t)}
	s := New(context.Background(), a, Specs{})
	assert.Error(t, s.RunNow(JobCollect))
	assert.Equal(t, "python missing", s.Status().Jobs[0].LastError)
}
