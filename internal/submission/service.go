// Package submission implements the paid expert review workflow.
package submission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/database"
	"launchpadResume/internal/payment"
)

const (
	maxSpecialRequests = 2000
	maxScore           = 100
)

// Request is a student's submit-for-review call.
type Request struct {
	Amount          float64
	Method          string
	TransactionID   string
	ContactEmail    string
	ContactPhone    string
	SpecialRequests string
}

// View is the JSON shape of a submission.
type View struct {
	ID              uint       `json:"id"`
	ResumeID        uint       `json:"resume_id"`
	UserID          uint       `json:"-"`
	Status          Status     `json:"status"`
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
	AssignedAt      *time.Time `json:"assigned_at"`
	SnapshotKey     string     `json:"snapshot_key,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
}

func toView(row *database.ResumeSubmission, userID uint) *View {
	return &View{
		ID:              row.ID,
		ResumeID:        row.ResumeID,
		UserID:          userID,
		Status:          Canonical(row.Status),
		PaymentStatus:   row.PaymentStatus,
		PaymentAmount:   row.PaymentAmount,
		PaymentMethod:   row.PaymentMethod,
		TransactionID:   row.TransactionID,
		ContactEmail:    row.ContactEmail,
		ContactPhone:    row.ContactPhone,
		SpecialRequests: row.SpecialRequests,
		ReviewerNotes:   row.ReviewerNotes,
		ReviewScore:     row.ReviewScore,
		ExpertID:        row.ExpertID,
		AssignedAt:      row.AssignedAt,
		SnapshotKey:     row.SnapshotKey,
		SubmittedAt:     row.SubmittedAt,
		ReviewedAt:      row.ReviewedAt,
	}
}

// Service runs the submission workflow on top of the database.
type Service struct {
	db       *gorm.DB
	verifier payment.Verifier
	price    float64
	now      func() time.Time
}

// NewService wires the workflow. A price of zero accepts any positive amount.
func NewService(db *gorm.DB, verifier payment.Verifier, price float64) *Service {
	return &Service{db: db, verifier: verifier, price: price, now: time.Now}
}

// Create records a paid submission for a resume owned by userID.
func (s *Service) Create(ctx context.Context, userID, resumeID uint, req Request) (*View, error) {
	db := s.db.WithContext(ctx)

	if err := ensureOwned(db, resumeID, userID); err != nil {
		return nil, err
	}

	req = normalizeRequest(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var reused int64
	if err := db.Model(&database.ResumeSubmission{}).
		Where("transaction_id = ? AND payment_status = ?", req.TransactionID, PaymentPaid).
		Count(&reused).Error; err != nil {
		return nil, fmt.Errorf("check transaction id: %w", err)
	}
	if reused > 0 {
		return nil, fmt.Errorf("transaction %s already used: %w", req.TransactionID, apperr.ErrConflict)
	}

	claim := payment.Claim{Amount: req.Amount, Method: req.Method, TransactionID: req.TransactionID}
	if err := s.verifier.Verify(ctx, claim); err != nil {
		if payment.IsUnverified(err) {
			return nil, err
		}
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	row := database.ResumeSubmission{
		ResumeID:        resumeID,
		Status:          string(StatusPending),
		PaymentStatus:   PaymentPaid,
		PaymentAmount:   req.Amount,
		PaymentMethod:   req.Method,
		TransactionID:   req.TransactionID,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		SpecialRequests: req.SpecialRequests,
		SubmittedAt:     s.now(),
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return toView(&row, userID), nil
}

func normalizeRequest(req Request) Request {
	req.Method = strings.TrimSpace(req.Method)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.SpecialRequests = strings.TrimSpace(req.SpecialRequests)
	return req
}

func (s *Service) validate(req Request) error {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return apperr.Invalid("paymentDetails.amount", "must be positive")
	}
	if s.price > 0 && math.Abs(req.Amount-s.price) > 0.005 {
		return apperr.Invalid("paymentDetails.amount", "must equal the review price %.2f", s.price)
	}
	if req.Method == "" || utf8.RuneCountInString(req.Method) > 50 {
		return apperr.Invalid("paymentDetails.method", "is required and must be at most 50 characters")
	}
	if req.TransactionID == "" || utf8.RuneCountInString(req.TransactionID) > 255 {
		return apperr.Invalid("paymentDetails.transactionId", "is required and must be at most 255 characters")
	}
	if _, err := mail.ParseAddress(req.ContactEmail); err != nil || utf8.RuneCountInString(req.ContactEmail) > 255 {
		return apperr.Invalid("contactInfo.email", "must be a valid email address")
	}
	if req.ContactPhone == "" || utf8.RuneCountInString(req.ContactPhone) > 50 {
		return apperr.Invalid("contactInfo.phone", "is required and must be at most 50 characters")
	}
	if utf8.RuneCountInString(req.SpecialRequests) > maxSpecialRequests {
		return apperr.Invalid("specialRequests", "must be at most %d characters", maxSpecialRequests)
	}
	return nil
}

// Get loads one submission regardless of owner. Admin only.
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	row, userID, err := loadSubmission(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return toView(row, userID), nil
}

// SetStatus moves a submission to status and appends notes.
func (s *Service) SetStatus(ctx context.Context, id uint, status, notes string) (*View, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var out *View
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, userID, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if err := s.transition(tx, row, to, notes, nil); err != nil {
			return err
		}
		out = toView(row, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Review applies a status change and score to the resume's latest submission.
func (s *Service) Review(ctx context.Context, resumeID uint, status, notes string, score *int) (*View, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if score != nil && (*score < 0 || *score > maxScore) {
		return nil, apperr.Invalid("score", "must be between 0 and %d", maxScore)
	}

	var out *View
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row database.ResumeSubmission
		err := tx.Where("resume_id = ?", resumeID).Order("id DESC").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("submission")
		}
		if err != nil {
			return fmt.Errorf("load latest submission: %w", err)
		}
		userID, err := resumeOwner(tx, row.ResumeID)
		if err != nil {
			return err
		}
		if err := s.transition(tx, &row, to, notes, score); err != nil {
			return err
		}
		out = toView(&row, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) transition(tx *gorm.DB, row *database.ResumeSubmission, to Status, notes string, score *int) error {
	from := Canonical(row.Status)
	if !CanTransition(from, to) {
		return fmt.Errorf("%s to %s: %w", from, to, ErrInvalidTransition)
	}

	updates := map[string]any{"status": string(to)}
	row.Status = string(to)

	if note := strings.TrimSpace(notes); note != "" {
		if row.ReviewerNotes != "" {
			row.ReviewerNotes += "\n" + note
		} else {
			row.ReviewerNotes = note
		}
		updates["reviewer_notes"] = row.ReviewerNotes
	}
	if score != nil {
		v := *score
		row.ReviewScore = &v
		updates["review_score"] = v
	}
	if to.marksReviewed() && from != to {
		now := s.now()
		row.ReviewedAt = &now
		updates["reviewed_at"] = now
	}

	if err := tx.Model(&database.ResumeSubmission{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// ListForResume returns the submissions of a resume owned by userID, newest first.
func (s *Service) ListForResume(ctx context.Context, resumeID, userID uint) ([]View, error) {
	db := s.db.WithContext(ctx)
	if err := ensureOwned(db, resumeID, userID); err != nil {
		return nil, err
	}

	var rows []database.ResumeSubmission
	if err := db.Where("resume_id = ?", resumeID).Order("submitted_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]View, 0, len(rows))
	for i := range rows {
		out = append(out, *toView(&rows[i], userID))
	}
	return out, nil
}

// AssignExpert hands a submission to an active expert.
func (s *Service) AssignExpert(ctx context.Context, id, expertID uint) (*View, error) {
	var out *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, userID, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if Canonical(row.Status).Terminal() {
			return fmt.Errorf("submission %d is %s: %w", id, row.Status, apperr.ErrConflict)
		}

		var expert database.Expert
		err = tx.Where("id = ? AND is_active = ?", expertID, true).First(&expert).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("expert")
		}
		if err != nil {
			return fmt.Errorf("load expert: %w", err)
		}

		now := s.now()
		row.ExpertID = &expert.ID
		row.AssignedAt = &now
		if err := tx.Model(&database.ResumeSubmission{}).Where("id = ?", row.ID).
			Updates(map[string]any{"expert_id": expert.ID, "assigned_at": now}).Error; err != nil {
			return fmt.Errorf("assign expert: %w", err)
		}
		out = toView(row, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetSnapshotKey records where the frozen resume copy was stored.
func (s *Service) SetSnapshotKey(ctx context.Context, id uint, key string) error {
	res := s.db.WithContext(ctx).Model(&database.ResumeSubmission{}).Where("id = ?", id).Update("snapshot_key", key)
	if res.Error != nil {
		return fmt.Errorf("set snapshot key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("submission")
	}
	return nil
}

func ensureOwned(db *gorm.DB, resumeID, userID uint) error {
	var n int64
	if err := db.Model(&database.Resume{}).Where("id = ? AND user_id = ?", resumeID, userID).Count(&n).Error; err != nil {
		return fmt.Errorf("check resume owner: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("resume")
	}
	return nil
}

func loadSubmission(db *gorm.DB, id uint) (*database.ResumeSubmission, uint, error) {
	var row database.ResumeSubmission
	err := db.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, apperr.NotFound("submission")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load submission: %w", err)
	}
	userID, err := resumeOwner(db, row.ResumeID)
	if err != nil {
		return nil, 0, err
	}
	return &row, userID, nil
}

func resumeOwner(db *gorm.DB, resumeID uint) (uint, error) {
	var r database.Resume
	err := db.Select("id", "user_id").First(&r, resumeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.NotFound("resume")
	}
	if err != nil {
		return 0, fmt.Errorf("load resume owner: %w", err)
	}
	return r.UserID, nil
}
