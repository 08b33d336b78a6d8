package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"launchpadResume/internal/admin"
	"launchpadResume/internal/api/middleware"
	"launchpadResume/internal/metrics"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

const snapshotURLTTL = 10 * time.Minute

// AdminHandler 提供审核后台接口。所有路由都在 AdminMiddleware 之后。
type AdminHandler struct {
	queries    *admin.Service
	subs       *submission.Service
	dispatcher *tasks.Dispatcher
	objects    storage.ObjectStore
}

func NewAdminHandler(queries *admin.Service, subs *submission.Service, dispatcher *tasks.Dispatcher, objects storage.ObjectStore) *AdminHandler {
	return &AdminHandler{queries: queries, subs: subs, dispatcher: dispatcher, objects: objects}
}

func filterFromQuery(c *gin.Context) admin.Filter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return admin.Filter{Status: c.Query("status"), Page: page, PageSize: limit}
}

// ListResumes GET /admin/resumes
func (h *AdminHandler) ListResumes(c *gin.Context) {
	page, err := h.queries.ListResumes(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ResumeDetail GET /admin/resumes/:id
func (h *AdminHandler) ResumeDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.queries.ResumeDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type reviewRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
	Score  *int   `json:"score"`
}

// Review PUT /admin/resumes/:id/review 作用于该简历最新的一次提交。
func (h *AdminHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	view, err := h.subs.Review(c.Request.Context(), id, req.Status, req.Notes, req.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	h.afterTransition(c, view)
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateSubmissionStatus PUT /admin/submissions/:id/status
func (h *AdminHandler) UpdateSubmissionStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	view, err := h.subs.SetStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	h.afterTransition(c, view)
	c.JSON(http.StatusOK, gin.H{"message": "Status updated successfully", "submission": view})
}

func (h *AdminHandler) afterTransition(c *gin.Context, view *submission.View) {
	ctx := c.Request.Context()
	metrics.ObserveTransition(string(view.Status))
	h.queries.InvalidateStats(ctx)
	h.dispatcher.StatusChanged(ctx, view, middleware.GetCorrelationID(c))
	loggerFromContext(c).Info("submission status changed",
		slog.Uint64("submission_id", uint64(view.ID)),
		slog.String("status", string(view.Status)),
	)
}

type assignRequest struct {
	ExpertID uint `json:"expertId" binding:"required"`
}

// AssignExpert PUT /admin/submissions/:id/assign
func (h *AdminHandler) AssignExpert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	view, err := h.subs.AssignExpert(c.Request.Context(), id, req.ExpertID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Snapshot GET /admin/submissions/:id/snapshot 返回提交时快照的下载链接。
func (h *AdminHandler) Snapshot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.objects == nil {
		Error(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	ctx := c.Request.Context()
	view, err := h.subs.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if view.SnapshotKey == "" {
		// 快照由 worker 异步生成，可能尚未完成。
		Conflict(c, "snapshot not ready")
		return
	}

	url, err := h.objects.PresignGet(ctx, view.SnapshotKey, snapshotURLTTL)
	if err != nil {
		loggerFromContext(c).Error("presign snapshot failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(snapshotURLTTL.Seconds())})
}

// Stats GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListPaidSubmissions GET /admin/paid-submissions
func (h *AdminHandler) ListPaidSubmissions(c *gin.Context) {
	page, err := h.queries.ListPaidSubmissions(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SubmissionStats GET /admin/submission-stats
func (h *AdminHandler) SubmissionStats(c *gin.Context) {
	stats, err := h.queries.SubmissionStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListExperts GET /admin/experts
func (h *AdminHandler) ListExperts(c *gin.Context) {
	experts, err := h.queries.ListExperts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, experts)
}
