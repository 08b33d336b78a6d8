// Package admin holds the read side used by the admin dashboard.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/database"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/submission"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	statsKey           = "admin:stats"
	submissionStatsKey = "admin:submission_stats"
)

// latestSubmissionJoin attaches at most one submission per resume: the newest one.
const latestSubmissionJoin = "LEFT JOIN resume_submissions rs ON rs.id = (SELECT MAX(s2.id) FROM resume_submissions s2 WHERE s2.resume_id = r.id)"

// Cache is the subset of the Redis JSON cache used for dashboard stats.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	db     *gorm.DB
	cache  Cache
	logger *slog.Logger
}

// NewService builds the query layer. cache may be nil.
func NewService(db *gorm.DB, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, cache: cache, logger: logger}
}

// Filter selects a page of rows, optionally by latest submission status.
// An empty status or "all" disables the filter.
type Filter struct {
	Status   string
	Page     int
	PageSize int
}

func (f Filter) normalize() (Filter, []string, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	raw := strings.TrimSpace(f.Status)
	if raw == "" || strings.EqualFold(raw, "all") {
		f.Status = ""
		return f, nil, nil
	}
	status, err := submission.ParseStatus(raw)
	if err != nil {
		return Filter{}, nil, err
	}
	f.Status = string(status)
	return f, status.StoredNames(), nil
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.PageSize
}

func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ResumeRow is one line of the admin resume list.
type ResumeRow struct {
	ID                   uint       `json:"id"`
	Title                string     `json:"title"`
	CompletionPercentage int        `json:"completion_percentage"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	UserID               uint       `json:"user_id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	SubmissionID         *uint      `json:"submission_id"`
	Status               *string    `json:"status"`
	SubmittedAt          *time.Time `json:"submitted_at"`
	ReviewedAt           *time.Time `json:"reviewed_at"`
	ReviewerNotes        *string    `json:"reviewer_notes"`
}

type ResumePage struct {
	Resumes    []ResumeRow `json:"resumes"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

func (s *Service) resumeBase(ctx context.Context, stored []string) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("resumes AS r").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins(latestSubmissionJoin)
	if len(stored) > 0 {
		q = q.Where("rs.status IN ?", stored)
	}
	return q
}

// ListResumes pages through every resume with its owner and latest submission.
func (s *Service) ListResumes(ctx context.Context, f Filter) (*ResumePage, error) {
	f, stored, err := f.normalize()
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.resumeBase(ctx, stored).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count admin resumes: %w", err)
	}

	rows := []ResumeRow{}
	err = s.resumeBase(ctx, stored).
		Select(`r.id, r.title, r.completion_percentage, r.created_at, r.updated_at,
			u.id AS user_id, u.first_name, u.last_name, u.email, u.phone,
			rs.id AS submission_id, rs.status, rs.submitted_at, rs.reviewed_at, rs.reviewer_notes`).
		Order("rs.submitted_at DESC NULLS LAST").
		Order("r.updated_at DESC").
		Order("r.id DESC").
		Limit(f.PageSize).
		Offset(f.offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list admin resumes: %w", err)
	}
	for i := range rows {
		if rows[i].Status != nil {
			canonical := string(submission.Canonical(*rows[i].Status))
			rows[i].Status = &canonical
		}
	}

	return &ResumePage{
		Resumes:    rows,
		Total:      total,
		Page:       f.Page,
		Limit:      f.PageSize,
		TotalPages: totalPages(total, f.PageSize),
	}, nil
}

type detailExtras struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	UserCreatedAt    time.Time
	SubmissionID     *uint
	SubmissionStatus *string
	PaymentStatus    *string
	SubmittedAt      *time.Time
	ReviewedAt       *time.Time
	ReviewerNotes    *string
	ReviewScore      *int
	ExpertID         *uint
}

// ResumeDetail returns the full resume flattened with its owner and latest submission.
func (s *Service) ResumeDetail(ctx context.Context, id uint) (map[string]any, error) {
	db := s.db.WithContext(ctx)

	var r database.Resume
	err := db.First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("resume")
	}
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}

	var extras detailExtras
	err = db.Table("resumes AS r").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins(latestSubmissionJoin).
		Select(`u.first_name, u.last_name, u.email, u.phone, u.created_at AS user_created_at,
			rs.id AS submission_id, rs.status AS submission_status, rs.payment_status,
			rs.submitted_at, rs.reviewed_at, rs.reviewer_notes, rs.review_score, rs.expert_id`).
		Where("r.id = ?", id).
		Scan(&extras).Error
	if err != nil {
		return nil, fmt.Errorf("load resume detail: %w", err)
	}

	doc := resume.Document(&r)
	doc["first_name"] = extras.FirstName
	doc["last_name"] = extras.LastName
	doc["email"] = extras.Email
	doc["phone"] = extras.Phone
	doc["user_created_at"] = extras.UserCreatedAt
	doc["submission_id"] = extras.SubmissionID
	doc["submission_status"] = nil
	if extras.SubmissionStatus != nil {
		doc["submission_status"] = submission.Canonical(*extras.SubmissionStatus)
	}
	doc["payment_status"] = extras.PaymentStatus
	doc["submitted_at"] = extras.SubmittedAt
	doc["reviewed_at"] = extras.ReviewedAt
	doc["reviewer_notes"] = extras.ReviewerNotes
	doc["review_score"] = extras.ReviewScore
	doc["expert_id"] = extras.ExpertID
	return doc, nil
}

// Stats summarises resumes by the status of their latest submission.
type Stats struct {
	TotalResumes   int64   `json:"total_resumes"`
	PendingReviews int64   `json:"pending_reviews"`
	Approved       int64   `json:"approved"`
	Rejected       int64   `json:"rejected"`
	AvgCompletion  float64 `json:"avg_completion"`
}

// Stats serves the dashboard counters; approved counts completed reviews and
// rejected counts revisions.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if s.cached(ctx, statsKey, &out) {
		return &out, nil
	}

	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_resumes,
			COUNT(CASE WHEN rs.status IN ? THEN 1 END) AS pending_reviews,
			COUNT(CASE WHEN rs.status IN ? THEN 1 END) AS approved,
			COUNT(CASE WHEN rs.status IN ? THEN 1 END) AS rejected,
			COALESCE(AVG(r.completion_percentage), 0) AS avg_completion
		FROM resumes r
		`+latestSubmissionJoin,
		submission.StatusPending.StoredNames(),
		submission.StatusCompleted.StoredNames(),
		submission.StatusRevision.StoredNames(),
	).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	s.store(ctx, statsKey, out)
	return &out, nil
}

// SubmissionRow is one paid submission with its resume and reviewer.
type SubmissionRow struct {
	ID              uint       `json:"id"`
	ResumeID        uint       `json:"resume_id"`
	ResumeTitle     string     `json:"resume_title"`
	UserID          uint       `json:"user_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentAmount   float64    `json:"payment_amount"`
	PaymentMethod   string     `json:"payment_method"`
	TransactionID   string     `json:"transaction_id"`
	ContactEmail    string     `json:"contact_email"`
	ContactPhone    string     `json:"contact_phone"`
	SpecialRequests string     `json:"special_requests"`
	ReviewerNotes   string     `json:"reviewer_notes"`
	ReviewScore     *int       `json:"review_score"`
	ExpertID        *uint      `json:"expert_id"`
	ExpertName      *string    `json:"expert_name"`
	AssignedAt      *time.Time `json:"assigned_at"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
}

type SubmissionPage struct {
	Submissions []SubmissionRow `json:"submissions"`
	Total       int64           `json:"total"`
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalPages  int             `json:"totalPages"`
}

func (s *Service) paidBase(ctx context.Context, stored []string) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("resume_submissions AS rs").
		Joins("JOIN resumes r ON r.id = rs.resume_id").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins("LEFT JOIN experts e ON e.id = rs.expert_id").
		Where("rs.payment_status = ?", submission.PaymentPaid)
	if len(stored) > 0 {
		q = q.Where("rs.status IN ?", stored)
	}
	return q
}

// ListPaidSubmissions pages through paid submissions, newest first.
func (s *Service) ListPaidSubmissions(ctx context.Context, f Filter) (*SubmissionPage, error) {
	f, stored, err := f.normalize()
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.paidBase(ctx, stored).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count paid submissions: %w", err)
	}

	rows := []SubmissionRow{}
	err = s.paidBase(ctx, stored).
		Select(`rs.id, rs.resume_id, r.title AS resume_title, u.id AS user_id, u.first_name, u.last_name, u.email,
			rs.status, rs.payment_status, rs.payment_amount, rs.payment_method, rs.transaction_id,
			rs.contact_email, rs.contact_phone, rs.special_requests, rs.reviewer_notes, rs.review_score,
			rs.expert_id, e.name AS expert_name, rs.assigned_at, rs.submitted_at, rs.reviewed_at`).
		Order("rs.submitted_at DESC").
		Order("rs.id DESC").
		Limit(f.PageSize).
		Offset(f.offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list paid submissions: %w", err)
	}
	for i := range rows {
		rows[i].Status = string(submission.Canonical(rows[i].Status))
	}

	return &SubmissionPage{
		Submissions: rows,
		Total:       total,
		Page:        f.Page,
		Limit:       f.PageSize,
		TotalPages:  totalPages(total, f.PageSize),
	}, nil
}

type SubmissionStats struct {
	TotalPaid     int64   `json:"total_paid"`
	TotalRevenue  float64 `json:"total_revenue"`
	PendingReview int64   `json:"pending_review"`
	InReview      int64   `json:"in_review"`
	Completed     int64   `json:"completed"`
	Revision      int64   `json:"revision"`
}

// SubmissionStats aggregates every paid submission, not only the latest per resume.
func (s *Service) SubmissionStats(ctx context.Context) (*SubmissionStats, error) {
	var out SubmissionStats
	if s.cached(ctx, submissionStatsKey, &out) {
		return &out, nil
	}

	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_paid,
			COALESCE(SUM(payment_amount), 0) AS total_revenue,
			COUNT(CASE WHEN status IN ? THEN 1 END) AS pending_review,
			COUNT(CASE WHEN status IN ? THEN 1 END) AS in_review,
			COUNT(CASE WHEN status IN ? THEN 1 END) AS completed,
			COUNT(CASE WHEN status IN ? THEN 1 END) AS revision
		FROM resume_submissions
		WHERE payment_status = ?`,
		submission.StatusPending.StoredNames(),
		submission.StatusReviewing.StoredNames(),
		submission.StatusCompleted.StoredNames(),
		submission.StatusRevision.StoredNames(),
		submission.PaymentPaid,
	).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query submission stats: %w", err)
	}

	s.store(ctx, submissionStatsKey, out)
	return &out, nil
}

// ExpertView is the JSON shape of a roster entry.
type ExpertView struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Specialization  string          `json:"specialization"`
	ExperienceYears int             `json:"experience_years"`
	Rating          float64         `json:"rating"`
	TotalReviews    int             `json:"total_reviews"`
	Background      string          `json:"background"`
	Expertise       json.RawMessage `json:"expertise"`
}

// ListExperts returns active experts, best rated first.
func (s *Service) ListExperts(ctx context.Context) ([]ExpertView, error) {
	var experts []database.Expert
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("rating DESC").
		Order("name").
		Find(&experts).Error
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}

	out := make([]ExpertView, 0, len(experts))
	for _, e := range experts {
		expertise := json.RawMessage(e.Expertise)
		if len(expertise) == 0 {
			expertise = json.RawMessage(`[]`)
		}
		out = append(out, ExpertView{
			ID:              e.ID,
			Name:            e.Name,
			Email:           e.Email,
			Specialization:  e.Specialization,
			ExperienceYears: e.ExperienceYears,
			Rating:          e.Rating,
			TotalReviews:    e.TotalReviews,
			Background:      e.Background,
			Expertise:       expertise,
		})
	}
	return out, nil
}

// InvalidateStats drops both cached stats documents. Call it after any
// submission is created or changes status.
func (s *Service) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsKey, submissionStatsKey); err != nil {
		s.logger.WarnContext(ctx, "invalidate admin stats cache", slog.Any("error", err))
	}
}

func (s *Service) cached(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, out)
	if err != nil {
		s.logger.WarnContext(ctx, "read admin stats cache", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value); err != nil {
		s.logger.WarnContext(ctx, "write admin stats cache", slog.String("key", key), slog.Any("error", err))
	}
}
