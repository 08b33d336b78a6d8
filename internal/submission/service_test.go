package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/database"
	"launchpadResume/internal/database/dbtest"
	"launchpadResume/internal/payment"
)

type fakeVerifier struct {
	err    error
	claims []payment.Claim
}

func (f *fakeVerifier) Verify(_ context.Context, claim payment.Claim) error {
	f.claims = append(f.claims, claim)
	return f.err
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	verifier *fakeVerifier
	owner    database.User
	resume   database.Resume
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "student@example.com", false)
	r := database.Resume{UserID: owner.ID, Title: "CV", TemplateID: "modern", IsActive: true}
	require.NoError(t, db.Create(&r).Error)

	verifier := &fakeVerifier{}
	return &fixture{
		db:       db,
		svc:      NewService(db, verifier, 249),
		verifier: verifier,
		owner:    owner,
		resume:   r,
	}
}

func validRequest(txn string) Request {
	return Request{
		Amount:        249,
		Method:        "card",
		TransactionID: txn,
		ContactEmail:  "student@example.com",
		ContactPhone:  "+91 98765 43210",
	}
}

func TestCreateStoresPendingPaid(t *testing.T) {
	f := newFixture(t)

	sub, err := f.svc.Create(context.Background(), f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, PaymentPaid, sub.PaymentStatus)
	assert.Equal(t, 249.0, sub.PaymentAmount)
	assert.Equal(t, "TXN_1", sub.TransactionID)
	assert.Equal(t, f.owner.ID, sub.UserID)
	assert.False(t, sub.SubmittedAt.IsZero())
	require.Len(t, f.verifier.claims, 1)
	assert.Equal(t, "TXN_1", f.verifier.claims[0].TransactionID)

	var stored database.ResumeSubmission
	require.NoError(t, f.db.First(&stored, sub.ID).Error)
	assert.Equal(t, "pending", stored.Status)
	assert.Equal(t, "paid", stored.PaymentStatus)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := map[string]func(r *Request){
		"zero amount":       func(r *Request) { r.Amount = 0 },
		"wrong price":       func(r *Request) { r.Amount = 99 },
		"missing method":    func(r *Request) { r.Method = " " },
		"missing txn":       func(r *Request) { r.TransactionID = "" },
		"bad email":         func(r *Request) { r.ContactEmail = "not-an-email" },
		"missing phone":     func(r *Request) { r.ContactPhone = "" },
		"long special note": func(r *Request) { r.SpecialRequests = strings.Repeat("a", 2001) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := validRequest("TXN_V")
			mutate(&req)
			_, err := f.svc.Create(context.Background(), f.owner.ID, f.resume.ID, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	assert.Empty(t, f.verifier.claims)
}

func TestCreateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	other := dbtest.CreateUser(t, f.db, "other@example.com", false)

	_, err := f.svc.Create(context.Background(), other.ID, f.resume.ID, validRequest("TXN_1"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.ListForResume(context.Background(), f.resume.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateUnverifiedPayment(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = fmt.Errorf("declined: %w", apperr.ErrPaymentRequired)

	_, err := f.svc.Create(context.Background(), f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	assert.ErrorIs(t, err, apperr.ErrPaymentRequired)

	var n int64
	require.NoError(t, f.db.Model(&database.ResumeSubmission{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateVerifierFailure(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = errors.New("gateway down")

	_, err := f.svc.Create(context.Background(), f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.Error(t, err)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
}

func TestCreateRejectsReusedTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Resubmitting with a new payment creates another row.
	_, err = f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_2"))
	require.NoError(t, err)

	list, err := f.svc.ListForResume(ctx, f.resume.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSetStatusReviewingToCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)

	sub, err = f.svc.SetStatus(ctx, sub.ID, "reviewing", "")
	require.NoError(t, err)
	assert.Equal(t, StatusReviewing, sub.Status)
	assert.Nil(t, sub.ReviewedAt)

	sub, err = f.svc.SetStatus(ctx, sub.ID, "completed", "Great resume")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, sub.Status)
	assert.Equal(t, "Great resume", sub.ReviewerNotes)
	require.NotNil(t, sub.ReviewedAt)

	var stored database.ResumeSubmission
	require.NoError(t, f.db.First(&stored, sub.ID).Error)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, "Great resume", stored.ReviewerNotes)
	assert.NotNil(t, stored.ReviewedAt)

	_, err = f.svc.SetStatus(ctx, sub.ID, "reviewing", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSetStatusAppendsNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, sub.ID, "reviewing", "Looking at education")
	require.NoError(t, err)
	sub, err = f.svc.SetStatus(ctx, sub.ID, "reviewing", "Projects need numbers")
	require.NoError(t, err)
	assert.Equal(t, "Looking at education\nProjects need numbers", sub.ReviewerNotes)

	// Legacy names map onto the canonical enum.
	sub, err = f.svc.SetStatus(ctx, sub.ID, "rejected", "")
	require.NoError(t, err)
	assert.Equal(t, StatusRevision, sub.Status)
	assert.NotNil(t, sub.ReviewedAt)
}

func TestSetStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, 404, "reviewing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sub, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, sub.ID, "archived", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SetStatus(ctx, sub.ID, "reviewing", "")
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, sub.ID, "pending", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReviewLatestSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Review(ctx, f.resume.ID, "completed", "", nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	first, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_2"))
	require.NoError(t, err)

	bad := 101
	_, err = f.svc.Review(ctx, f.resume.ID, "completed", "", &bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	score := 87
	got, err := f.svc.Review(ctx, f.resume.ID, "approved", "Strong projects", &score)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.ReviewScore)
	assert.Equal(t, 87, *got.ReviewScore)

	untouched, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
}

func TestAssignExpert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expert := database.Expert{Name: "Reviewer", Email: "reviewer@example.com", IsActive: true, Expertise: datatypes.JSON(`[]`)}
	require.NoError(t, f.db.Create(&expert).Error)

	sub, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)

	_, err = f.svc.AssignExpert(ctx, sub.ID, expert.ID+10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.AssignExpert(ctx, sub.ID, expert.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpertID)
	assert.Equal(t, expert.ID, *got.ExpertID)
	assert.NotNil(t, got.AssignedAt)

	_, err = f.svc.SetStatus(ctx, sub.ID, "completed", "")
	require.NoError(t, err)
	_, err = f.svc.AssignExpert(ctx, sub.ID, expert.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSetSnapshotKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, f.owner.ID, f.resume.ID, validRequest("TXN_1"))
	require.NoError(t, err)

	key := fmt.Sprintf("submissions/%d/%d.json", f.resume.ID, sub.ID)
	require.NoError(t, f.svc.SetSnapshotKey(ctx, sub.ID, key))

	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, key, got.SnapshotKey)

	assert.ErrorIs(t, f.svc.SetSnapshotKey(ctx, 999, key), apperr.ErrNotFound)
}
