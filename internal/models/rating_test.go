// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"pageratings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRating_FreshRatingIsActivated(t *testing.T) {
	rating := &models.Rating{Page: "/reviews/widget", Email: "user@example.com"}

	assert.True(t, rating.IsActivated())
	assert.False(t, rating.IsExpired())
	assert.Equal(t, models.StateActivated, rating.State())
}

func TestRating_IssueActivationToken(t *testing.T) {
	rating := &models.Rating{Page: "/reviews/widget", Email: "user@example.com"}

	err := rating.IssueActivationToken(7 * 24 * time.Hour)

	require.NoError(t, err)
	require.NotNil(t, rating.Token)
	// 32 random bytes, hex-encoded
	assert.Len(t, *rating.Token, 64)
	require.NotNil(t, rating.Expire)
	assert.Greater(t, *rating.Expire, time.Now().Unix())
	assert.Equal(t, models.StatePendingActivation, rating.State())
	assert.True(t, rating.IsPendingActivation())
	assert.False(t, rating.IsActivated())
	assert.False(t, rating.IsExpired())
}

func TestRating_IssueActivationToken_TokensAreUnique(t *testing.T) {
	first := &models.Rating{}
	second := &models.Rating{}

	require.NoError(t, first.IssueActivationToken(time.Hour))
	require.NoError(t, second.IssueActivationToken(time.Hour))

	assert.NotEqual(t, *first.Token, *second.Token)
}

func TestRating_IssueActivationToken_ZeroTTL(t *testing.T) {
	rating := &models.Rating{}

	err := rating.IssueActivationToken(0)

	require.NoError(t, err)
	assert.Nil(t, rating.Token)
	assert.Equal(t, models.StateNeverExpiring, rating.State())
	// No confirmation required means activated for all query purposes.
	assert.True(t, rating.IsActivated())
	assert.False(t, rating.IsExpired())
	assert.False(t, rating.IsPendingActivation())
}

func TestRating_IssueActivationToken_PersistedRating(t *testing.T) {
	rating := &models.Rating{ID: 42}

	err := rating.IssueActivationToken(time.Hour)

	require.ErrorIs(t, err, models.ErrAlreadyPersisted)
}

func TestRating_Activate(t *testing.T) {
	rating := &models.Rating{}
	require.NoError(t, rating.IssueActivationToken(time.Hour))

	rating.Activate()

	assert.True(t, rating.IsActivated())
	assert.False(t, rating.IsExpired())
	assert.False(t, rating.IsPendingActivation())
	// The token stays as a historical record.
	assert.NotNil(t, rating.Token)
}

func TestRating_Activate_Idempotent(t *testing.T) {
	rating := &models.Rating{}
	require.NoError(t, rating.IssueActivationToken(time.Hour))

	rating.Activate()
	rating.Activate()

	assert.Equal(t, models.StateActivated, rating.State())
}

func TestRating_ExpireNow(t *testing.T) {
	rating := &models.Rating{}
	require.NoError(t, rating.IssueActivationToken(time.Hour))

	rating.ExpireNow()

	assert.True(t, rating.IsExpired())
	assert.False(t, rating.IsActivated())
	assert.Equal(t, models.StateExpired, rating.State())
	require.NotNil(t, rating.Expire)
	// The sentinel is always in the past relative to any realistic clock.
	assert.Equal(t, int64(1), *rating.Expire)
}

func TestRating_ActivatedAndExpiredAreMutuallyExclusive(t *testing.T) {
	cases := []struct {
		name   string
		expire *int64
	}{
		{"activated", nil},
		{"never expiring", ptr(int64(0))},
		{"expired sentinel", ptr(int64(1))},
		{"pending in the future", ptr(time.Now().Add(time.Hour).Unix())},
		{"pending in the past", ptr(time.Now().Add(-time.Hour).Unix())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rating := &models.Rating{Expire: tc.expire}
			assert.False(t, rating.IsActivated() && rating.IsExpired())
		})
	}
}

func TestRating_ExpiredPendingToken(t *testing.T) {
	past := time.Now().Add(-time.Minute).Unix()
	rating := &models.Rating{Expire: &past}

	assert.True(t, rating.IsExpired())
	assert.Equal(t, models.StatePendingActivation, rating.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "activated", models.StateActivated.String())
	assert.Equal(t, "pending", models.StatePendingActivation.String())
	assert.Equal(t, "expired", models.StateExpired.String())
	assert.Equal(t, "never-expiring", models.StateNeverExpiring.String())
}

func ptr[T any](v T) *T {
	return &v
}
