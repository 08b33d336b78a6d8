package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpadResume/internal/api/middleware"
	"launchpadResume/internal/apperr"
	"launchpadResume/internal/metrics"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

type statsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// ResumeHandler 负责学生侧的简历与提交接口。
type ResumeHandler struct {
	store      *resume.Store
	subs       *submission.Service
	stats      statsInvalidator
	dispatcher *tasks.Dispatcher
	objects    storage.ObjectStore
	maxResumes int
}

// NewResumeHandler 构造简历处理器。objects may be nil when storage is not configured.
func NewResumeHandler(store *resume.Store, subs *submission.Service, stats statsInvalidator, dispatcher *tasks.Dispatcher, objects storage.ObjectStore, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		store:      store,
		subs:       subs,
		stats:      stats,
		dispatcher: dispatcher,
		objects:    objects,
		maxResumes: maxResumes,
	}
}

// ListResumes 返回当前用户的简历摘要列表。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	rows, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetResume 返回完整简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.store.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume.Document(r))
}

type createResumeRequest struct {
	Title string `json:"title"`
}

// CreateResume 创建一份空白简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if h.maxResumes > 0 {
		n, err := h.store.Count(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if n >= int64(h.maxResumes) {
			Forbidden(c, "resume limit reached")
			return
		}
	}

	r, err := h.store.Create(ctx, userID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	h.stats.InvalidateStats(ctx)

	loggerFromContext(c).Info("resume created", slog.Uint64("resume_id", uint64(r.ID)))
	c.JSON(http.StatusCreated, resume.Document(r))
}

// UpdateResume 保存部分更新：缺失或为 null 的分区保持不变。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "request body must be a JSON object")
		return
	}
	patch, err := resume.ParsePatch(body)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	summary, err := h.store.Update(ctx, id, userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	h.stats.InvalidateStats(ctx)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Resume saved successfully",
		"data":    summary,
	})
}

// DeleteResume 删除简历及其提交记录，并尽力清理已上传的对象。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	deleted, err := h.store.Delete(ctx, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.stats.InvalidateStats(ctx)
	h.cleanupObjects(ctx, loggerFromContext(c), deleted.UserID, deleted.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Resume deleted successfully"})
}

func (h *ResumeHandler) cleanupObjects(ctx context.Context, log *slog.Logger, userID, resumeID uint) {
	if h.objects == nil {
		return
	}
	for _, prefix := range []string{storage.PhotoPrefix(userID, resumeID), storage.SnapshotPrefix(resumeID)} {
		if err := h.objects.DeletePrefix(ctx, prefix); err != nil {
			log.Warn("cleanup resume objects failed", slog.String("prefix", prefix), slog.Any("error", err))
		}
	}
}

// Readiness 报告简历是否满足提交审核的最低要求。
func (h *ResumeHandler) Readiness(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.store.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume.CheckReadiness(r))
}

type submitRequest struct {
	PaymentDetails struct {
		Amount        float64 `json:"amount"`
		Method        string  `json:"method"`
		TransactionID string  `json:"transactionId"`
	} `json:"paymentDetails"`
	ContactInfo struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contactInfo"`
	SpecialRequests string `json:"specialRequests"`
}

// Submit 校验支付后创建审核提交。
func (h *ResumeHandler) Submit(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	view, err := h.subs.Create(ctx, userID, id, submission.Request{
		Amount:          req.PaymentDetails.Amount,
		Method:          req.PaymentDetails.Method,
		TransactionID:   req.PaymentDetails.TransactionID,
		ContactEmail:    req.ContactInfo.Email,
		ContactPhone:    req.ContactInfo.Phone,
		SpecialRequests: req.SpecialRequests,
	})
	metrics.ObserveSubmission(submissionResult(err))
	if err != nil {
		respondError(c, err)
		return
	}

	h.stats.InvalidateStats(ctx)
	h.dispatcher.Submitted(ctx, view, middleware.GetCorrelationID(c))

	loggerFromContext(c).Info("resume submitted for review",
		slog.Uint64("resume_id", uint64(id)),
		slog.Uint64("submission_id", uint64(view.ID)),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Resume submitted for review successfully",
		"submission": view,
	})
}

func submissionResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case errors.Is(err, apperr.ErrPaymentRequired):
		return metrics.ResultUnverified
	case apperr.HTTPStatus(err) < http.StatusInternalServerError:
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

// ListSubmissions 返回该简历的全部提交记录。
func (h *ResumeHandler) ListSubmissions(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := h.subs.ListForResume(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
