package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpadResume/internal/apperr"
)

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":     StatusPending,
		" Reviewing ": StatusReviewing,
		"revision":    StatusRevision,
		"completed":   StatusCompleted,
		"approved":    StatusCompleted,
		"REJECTED":    StatusRevision,
	}
	for raw, want := range tests {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseStatus("archived")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusReviewing},
		{StatusPending, StatusRevision},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPending},
		{StatusReviewing, StatusCompleted},
		{StatusReviewing, StatusRevision},
		{StatusReviewing, StatusReviewing},
		{StatusRevision, StatusReviewing},
		{StatusRevision, StatusCompleted},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]Status{
		{StatusReviewing, StatusPending},
		{StatusRevision, StatusPending},
		{StatusCompleted, StatusCompleted},
		{StatusCompleted, StatusReviewing},
		{Status("archived"), StatusPending},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusRevision.Terminal())
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, StatusCompleted, Canonical("approved"))
	assert.Equal(t, StatusRevision, Canonical("rejected"))
	assert.Equal(t, Status("weird"), Canonical("weird"))
}

func TestStoredNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"completed", "approved"}, StatusCompleted.StoredNames())
	assert.ElementsMatch(t, []string{"revision", "rejected"}, StatusRevision.StoredNames())
	assert.Equal(t, []string{"pending"}, StatusPending.StoredNames())
}
