package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/config"
	"launchpadResume/internal/database"
	"launchpadResume/internal/database/dbtest"
	"launchpadResume/internal/payment"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

type resumeDoc map[string]json.RawMessage

func (s *testServer) createResume(t *testing.T, bearer, title string) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/resumes", bearer, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func TestResumeCRUD(t *testing.T) {
	srv := newTestServer(t)
	user := dbtest.CreateUser(t, srv.db, "crud@example.com", false)
	bearer := srv.bearer(t, user.ID)

	rec := srv.do(t, http.MethodPost, "/api/resumes", bearer, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[resumeDoc](t, rec)
	assert.JSONEq(t, `"My Resume"`, string(doc["title"]))
	assert.JSONEq(t, `"modern"`, string(doc["template_id"]))
	assert.JSONEq(t, `{}`, string(doc["personal_info"]))
	assert.JSONEq(t, `[]`, string(doc["skills"]))
	assert.JSONEq(t, `0`, string(doc["completion_percentage"]))

	var id uint
	require.NoError(t, json.Unmarshal(doc["id"], &id))
	path := fmt.Sprintf("/api/resumes/%d", id)

	rec = srv.do(t, http.MethodPut, path, bearer, `{"skills":[{"name":"Go","level":"Advanced"}],"education":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			ID                   uint `json:"id"`
			CompletionPercentage int  `json:"completion_percentage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.True(t, saved.Success)
	assert.Equal(t, id, saved.Data.ID)
	assert.Equal(t, 6, saved.Data.CompletionPercentage)

	rec = srv.do(t, http.MethodGet, path, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc = decode[resumeDoc](t, rec)
	assert.JSONEq(t, `[{"name":"Go","level":"Advanced"}]`, string(doc["skills"]))
	assert.JSONEq(t, `[]`, string(doc["education"]))

	rec = srv.do(t, http.MethodGet, "/api/resumes", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "skills")

	rec = srv.do(t, http.MethodDelete, path, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Resume deleted successfully"}`, rec.Body.String())
	assert.ElementsMatch(t, []string{
		fmt.Sprintf("resume-photos/%d/%d/", user.ID, id),
		fmt.Sprintf("submissions/%d/", id),
	}, srv.objects.deletedPrefix)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, bearer, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, path, bearer, nil).Code)
}

func TestResumeUpdateValidation(t *testing.T) {
	srv := newTestServer(t)
	user := dbtest.CreateUser(t, srv.db, "valid@example.com", false)
	bearer := srv.bearer(t, user.ID)
	path := fmt.Sprintf("/api/resumes/%d", srv.createResume(t, bearer, "Draft"))

	rec := srv.do(t, http.MethodPut, path, bearer, `{"skills":[{"level":"Advanced"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"skills"`)

	rec = srv.do(t, http.MethodPut, path, bearer, `{"title":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, path, bearer, `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/resumes/abc", bearer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/resumes/0", bearer, nil).Code)
}

func TestResumeOwnershipAndLimits(t *testing.T) {
	srv := newTestServer(t)
	owner := dbtest.CreateUser(t, srv.db, "owner@example.com", false)
	other := dbtest.CreateUser(t, srv.db, "other@example.com", false)
	ownerBearer := srv.bearer(t, owner.ID)
	otherBearer := srv.bearer(t, other.ID)

	id := srv.createResume(t, ownerBearer, "Mine")
	path := fmt.Sprintf("/api/resumes/%d", id)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, otherBearer, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPut, path, otherBearer, `{"title":"Stolen"}`).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, path, otherBearer, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path+"/submissions", otherBearer, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, path, "", nil).Code)

	for i := 1; i < srv.cfg.API.MaxResumes; i++ {
		srv.createResume(t, ownerBearer, fmt.Sprintf("Extra %d", i))
	}
	rec := srv.do(t, http.MethodPost, "/api/resumes", ownerBearer, map[string]string{"title": "One too many"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReadiness(t *testing.T) {
	srv := newTestServer(t)
	user := dbtest.CreateUser(t, srv.db, "ready@example.com", false)
	bearer := srv.bearer(t, user.ID)
	path := fmt.Sprintf("/api/resumes/%d", srv.createResume(t, bearer, "Ready"))

	rec := srv.do(t, http.MethodGet, path+"/readiness", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var r struct {
		Ready      bool     `json:"ready"`
		Completed  int      `json:"completed"`
		Total      int      `json:"total"`
		Percentage int      `json:"percentage"`
		Missing    []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.False(t, r.Ready)
	assert.Equal(t, 1, r.Completed)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 25, r.Percentage)
	assert.Contains(t, r.Missing, "firstName")

	body := `{
		"personalInfo": {"firstName":"Asha","lastName":"Rao","email":"asha@example.com"},
		"education": [{"institution":"IIT Madras","degree":"B.Tech"}],
		"skills": [{"name":"Go"},{"name":"SQL"},{"name":"Redis"}]
	}`
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, path, bearer, body).Code)

	rec = srv.do(t, http.MethodGet, path+"/readiness", bearer, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.True(t, r.Ready)
	assert.Equal(t, 100, r.Percentage)
	assert.Empty(t, r.Missing)
}

func submitBody(txn string, amount float64) map[string]any {
	return map[string]any{
		"paymentDetails":  map[string]any{"amount": amount, "method": "card", "transactionId": txn},
		"contactInfo":     map[string]any{"email": "asha@example.com", "phone": "9876543210"},
		"specialRequests": "Focus on internships",
	}
}

func TestSubmitForReview(t *testing.T) {
	srv := newTestServer(t)
	user := dbtest.CreateUser(t, srv.db, "submit@example.com", false)
	bearer := srv.bearer(t, user.ID)
	id := srv.createResume(t, bearer, "Submit me")
	path := fmt.Sprintf("/api/resumes/%d", id)

	rec := srv.do(t, http.MethodPost, path+"/submit", bearer, submitBody("TXN_1", 249))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Message    string `json:"message"`
		Submission struct {
			ID            uint    `json:"id"`
			ResumeID      uint    `json:"resume_id"`
			Status        string  `json:"status"`
			PaymentStatus string  `json:"payment_status"`
			PaymentAmount float64 `json:"payment_amount"`
		} `json:"submission"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Submission.Status)
	assert.Equal(t, "paid", created.Submission.PaymentStatus)
	assert.Equal(t, 249.0, created.Submission.PaymentAmount)
	assert.Equal(t, id, created.Submission.ResumeID)
	assert.Equal(t, []string{tasks.TypeSubmissionSnapshot, tasks.TypeSubmissionNotify}, srv.enqueuer.types())

	rec = srv.do(t, http.MethodPost, path+"/submit", bearer, submitBody("TXN_1", 249))
	assert.Equal(t, http.StatusConflict, rec.Code, "transaction ids are single use")

	rec = srv.do(t, http.MethodPost, path+"/submit", bearer, submitBody("TXN_2", 100))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, path+"/submissions", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[[]map[string]any](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, "TXN_1", subs[0]["transaction_id"])
	assert.NotContains(t, subs[0], "UserID")
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, payment.Claim) error {
	return fmt.Errorf("charge not captured: %w", apperr.ErrPaymentRequired)
}

func TestSubmitUnverifiedPayment(t *testing.T) {
	srv := newTestServer(t, func(_ *config.Config, deps *Dependencies) {
		deps.Submissions = submission.NewService(deps.DB, rejectingVerifier{}, 249)
	})
	user := dbtest.CreateUser(t, srv.db, "unpaid@example.com", false)
	bearer := srv.bearer(t, user.ID)
	path := fmt.Sprintf("/api/resumes/%d/submit", srv.createResume(t, bearer, "Unpaid"))

	rec := srv.do(t, http.MethodPost, path, bearer, submitBody("TXN_FAKE", 249))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Empty(t, srv.enqueuer.types())

	var n int64
	require.NoError(t, srv.db.Model(&database.ResumeSubmission{}).Count(&n).Error)
	assert.Zero(t, n)
}

type fakeScanner struct {
	err     error
	scanned int
}

func (f *fakeScanner) Scan(r io.Reader) error {
	f.scanned++
	_, _ = io.Copy(io.Discard, r)
	return f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func (s *testServer) upload(t *testing.T, path, bearer string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(photoFormField, "photo.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestPhotoUpload(t *testing.T) {
	scanner := &fakeScanner{}
	srv := newTestServer(t, func(_ *config.Config, deps *Dependencies) {
		deps.Scanner = scanner
	})
	user := dbtest.CreateUser(t, srv.db, "photo@example.com", false)
	bearer := srv.bearer(t, user.ID)
	id := srv.createResume(t, bearer, "With photo")
	path := fmt.Sprintf("/api/resumes/%d/photo", id)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, bearer, nil).Code)

	rec := srv.upload(t, path, bearer, pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ObjectKey string `json:"objectKey"`
		URL       string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Regexp(t, fmt.Sprintf(`^resume-photos/%d/%d/photo-\d+\.png$`, user.ID, id), out.ObjectKey)
	assert.Equal(t, "image/png", srv.objects.contentTypes[out.ObjectKey])
	assert.Equal(t, 1, scanner.scanned)

	var stored database.Resume
	require.NoError(t, srv.db.First(&stored, id).Error)
	assert.Equal(t, out.ObjectKey, stored.ProfilePhoto)

	rec = srv.do(t, http.MethodGet, path, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), out.ObjectKey)

	// 再次上传会替换旧头像。
	rec = srv.upload(t, path, bearer, pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, srv.objects.deleted, out.ObjectKey)
}

func TestPhotoUploadRejects(t *testing.T) {
	scanner := &fakeScanner{}
	srv := newTestServer(t, func(_ *config.Config, deps *Dependencies) {
		deps.Scanner = scanner
	})
	user := dbtest.CreateUser(t, srv.db, "badphoto@example.com", false)
	other := dbtest.CreateUser(t, srv.db, "intruder@example.com", false)
	bearer := srv.bearer(t, user.ID)
	path := fmt.Sprintf("/api/resumes/%d/photo", srv.createResume(t, bearer, "Photo"))

	rec := srv.upload(t, path, bearer, []byte("#!/bin/sh\necho not an image\n"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = srv.upload(t, path, srv.bearer(t, other.ID), pngBytes(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	scanner.err = fmt.Errorf("%w: Eicar-Test-Signature", errInfected)
	rec = srv.upload(t, path, bearer, pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malicious")

	scanner.err = errors.New("clamd unreachable")
	rec = srv.upload(t, path, bearer, pngBytes(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Empty(t, srv.objects.objects)
}
