package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpadResume/internal/database/dbtest"
)

func TestMeAndUpdateProfile(t *testing.T) {
	srv := newTestServer(t)
	user := dbtest.CreateUser(t, srv.db, "profile@example.com", false)
	bearer := srv.bearer(t, user.ID)

	rec := srv.do(t, http.MethodGet, "/api/users/me", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[userView](t, rec)
	assert.Equal(t, "profile@example.com", me.Email)
	assert.Equal(t, "Test", me.FirstName)

	rec = srv.do(t, http.MethodPut, "/api/users/profile", bearer, map[string]string{"phone": " 98765 43210 "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[userView](t, rec)
	assert.Equal(t, "98765 43210", updated.Phone)
	assert.Equal(t, "Test", updated.FirstName, "omitted fields keep their value")
	assert.Equal(t, "User", updated.LastName)

	rec = srv.do(t, http.MethodPut, "/api/users/profile", bearer, map[string]string{"firstName": "Asha", "lastName": "Rao"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decode[userView](t, rec)
	assert.Equal(t, "Asha", updated.FirstName)
	assert.Equal(t, "Rao", updated.LastName)
	assert.Equal(t, "98765 43210", updated.Phone)

	rec = srv.do(t, http.MethodPut, "/api/users/profile", bearer, map[string]string{"firstName": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeUnknownUser(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/users/me", srv.bearer(t, 4242), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
