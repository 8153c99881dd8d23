package webapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go_adscore/internal/engine"
	"github.com/anatolykoptev/go_adscore/internal/engine/analysis"
	"github.com/anatolykoptev/go_adscore/internal/engine/export"
	"github.com/anatolykoptev/go_adscore/internal/engine/sources"
	"github.com/anatolykoptev/go_adscore/internal/engine/store"
	"github.com/anatolykoptev/go_adscore/internal/scheduler"
	"github.com/anatolykoptev/go_adscore/internal/toolutil"
)

var (
	errNoLinks          = errors.New("no valid YouTube links")
	errAutomationOff    = errors.New("automation is not configured")
	errSchedulerOff     = errors.New("scheduler is not configured")
	errSchedulerCommand = errors.New("action must be start, stop or status")
)

func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.store.Statistics(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	videos, err := h.store.ListVideos(ctx, store.ListFilter{Limit: 25})
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Stats":     stats,
		"Videos":    videos,
		"Scheduler": h.scheduler != nil && h.scheduler.Running(),
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.automation != nil {
		rep, err := h.automation.Health(c.Request.Context())
		code := http.StatusOK
		if err != nil {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, rep)
		return
	}
	if err := h.store.Healthy(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "database": "ok"})
}

func (h *Handler) metrics(c *gin.Context) {
	c.String(http.StatusOK, engine.FormatMetrics())
}

type submitRequest struct {
	Links stringOrList `json:"links"`
	Note  string       `json:"note"`
}

type submitResult struct {
	Saved   []string `json:"saved"`
	Invalid []string `json:"invalid,omitempty"`
}

// submitVideos queues links for the next pending pass.
func (h *Handler) submitVideos(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	var res submitResult
	for _, link := range toolutil.SplitLinks(req.Links...) {
		id, err := sources.ExtractVideoID(link)
		if err != nil {
			res.Invalid = append(res.Invalid, link)
			continue
		}
		if err := h.store.SaveVideo(c.Request.Context(), store.NewVideo{ID: id, URL: link, Note: req.Note}); err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		res.Saved = append(res.Saved, id)
	}
	if len(res.Saved) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoLinks.Error(), "invalid": res.Invalid})
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) listVideos(c *gin.Context) {
	status := store.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	videos, err := h.store.ListVideos(c.Request.Context(), store.ListFilter{
		Status: status,
		Limit:  toolutil.ClampLimit(limit, 50, 500),
		Offset: max(offset, 0),
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if videos == nil {
		videos = []store.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "count": len(videos)})
}

func (h *Handler) getVideo(c *gin.Context) {
	a, err := h.store.Video(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deleteVideo(c *gin.Context) {
	if err := h.store.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

type analyzeRequest struct {
	Videos []analysis.Request `json:"videos"`
	Links  stringOrList       `json:"links"`
	Wait   bool               `json:"wait"`
}

// analyze starts a session. With wait it blocks until every video settles.
func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	reqs := req.Videos
	for _, link := range toolutil.SplitLinks(req.Links...) {
		reqs = append(reqs, analysis.Request{URL: link})
	}

	if !req.Wait {
		session, err := h.analyzer.Start(reqs)
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"sessionId": session})
		return
	}

	session, outcomes, err := h.analyzer.Run(c.Request.Context(), reqs)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId":  session,
		"results":    outcomes,
		"statistics": analysis.Summarize(outcomes),
	})
}

func (h *Handler) latestProgress(c *gin.Context) {
	p, ok := h.analyzer.Tracker().Latest()
	if !ok {
		c.JSON(http.StatusOK, analysis.Progress{Videos: []analysis.VideoProgress{}})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) sessionProgress(c *gin.Context) {
	p, ok := h.analyzer.Tracker().Get(c.Param("session"))
	if !ok {
		fail(c, http.StatusNotFound, fmt.Errorf("session %q not found", c.Param("session")))
		return
	}
	c.JSON(http.StatusOK, p)
}

// dbStats always returns the statistics shape so the dashboard can render zeros.
func (h *Handler) dbStats(c *gin.Context) {
	st, err := h.store.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"statistics": store.Statistics{}, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": st})
}

func (h *Handler) export(c *gin.Context) {
	f, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	analyses, err := h.store.CompletedAnalyses(c.Request.Context(), toolutil.SplitIDs(c.Query("ids")))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if len(analyses) == 0 {
		fail(c, http.StatusNotFound, errors.New("no finished analyses to export"))
		return
	}

	now := h.now()
	title := strconv.Itoa(len(analyses)) + "_videos"
	if len(analyses) == 1 {
		title = analyses[0].Title
	}
	name := export.ExportFileName(title, f, now)
	if f == export.FormatXLSX {
		name = export.WorkbookFileName(title, now)
	}

	c.Header("Content-Type", f.ContentType())
	c.Header("Content-Disposition", attachment(name))
	c.Status(http.StatusOK)
	if f == export.FormatXLSX {
		err = export.WriteWorkbook(c.Writer, analyses, now)
	} else {
		err = export.Write(c.Writer, f, analyses)
	}
	if err != nil {
		// Headers are gone; the client sees a truncated body.
		_ = c.Error(err)
	}
}

type uploadRequest struct {
	Format string   `json:"format"`
	IDs    []string `json:"ids"`
}

func (h *Handler) driveUpload(c *gin.Context) {
	if h.automation == nil {
		fail(c, http.StatusServiceUnavailable, errAutomationOff)
		return
	}
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, err)
		return
	}
	format := req.Format
	if format == "" {
		format = string(export.FormatXLSX)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	up, err := h.automation.UploadExport(c.Request.Context(), f, req.IDs)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, up)
}

type triggerRequest struct {
	Action string `json:"action" binding:"required"`
	scheduler.TriggerOptions
}

func (h *Handler) trigger(c *gin.Context) {
	if h.automation == nil {
		fail(c, http.StatusServiceUnavailable, errAutomationOff)
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	out, err := h.automation.Trigger(c.Request.Context(), req.Action, req.TriggerOptions)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action, "result": out})
}

func (h *Handler) schedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, errSchedulerOff)
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

type schedulerRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *Handler) schedulerControl(c *gin.Context) {
	if h.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, errSchedulerOff)
		return
	}
	var req schedulerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	switch req.Action {
	case "start":
		if err := h.scheduler.Start(); err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
	case "stop":
		if err := h.scheduler.Stop(c.Request.Context()); err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
	case "status":
	default:
		fail(c, http.StatusBadRequest, errSchedulerCommand)
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// attachment builds a Content-Disposition value with an ASCII filename for old
// clients and the RFC 5987 UTF-8 form for the rest.
func attachment(name string) string {
	var ascii, enc strings.Builder
	for _, r := range name {
		if r < 0x80 && r >= 0x20 && r != '"' && r != '\\' {
			ascii.WriteRune(r)
		} else {
			ascii.WriteByte('_')
		}
	}
	for _, b := range []byte(name) {
		if isAttrChar(b) {
			enc.WriteByte(b)
		} else {
			fmt.Fprintf(&enc, "%%%02X", b)
		}
	}
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii.String(), enc.String())
}

func isAttrChar(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", b) >= 0
}
