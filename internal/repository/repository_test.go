// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"pageratings/internal/models"
	"pageratings/internal/repository"
	"pageratings/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_AssignsID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	rating := &models.Rating{
		Page:      "/reviews/widget",
		Email:     "user@example.com",
		Author:    "User",
		Date:      time.Now().Unix(),
		Stars:     4,
		Review:    "solid",
		Moderated: true,
	}

	err := repo.Create(ctx, rating)

	require.NoError(t, err)
	assert.NotZero(t, rating.ID)
}

func TestCreate_AlreadyPersisted(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	rating := testutil.NewTestRating(t, repo, "/reviews/widget", "user@example.com", 4)

	err := repo.Create(ctx, rating)

	require.ErrorIs(t, err, repository.ErrInvalidOperation)
}

func TestCreate_RoundTrip(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	code := "code-123"
	expire := time.Now().Add(time.Hour).Unix()
	token := "deadbeef"
	rating := &models.Rating{
		Page:             "/reviews/widget",
		Email:            "user@example.com",
		Author:           "User",
		Date:             time.Now().Unix(),
		Stars:            5,
		Title:            "Great",
		Review:           "Would buy again",
		Lang:             "de",
		Moderated:        true,
		Reported:         false,
		Verified:         true,
		VerificationCode: &code,
		Token:            &token,
		Expire:           &expire,
	}
	require.NoError(t, repo.Create(ctx, rating))

	got, err := repo.GetByID(ctx, rating.ID)

	require.NoError(t, err)
	assert.Equal(t, rating, got)
}

func TestGetByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetByID(context.Background(), 4711)

	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_Unpersisted(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.Update(context.Background(), &models.Rating{Page: "/reviews/widget"})

	require.ErrorIs(t, err, repository.ErrInvalidOperation)
}

func TestUpdate_OverwritesAllFields(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	rating := testutil.NewTestRating(t, repo, "/reviews/widget", "user@example.com", 4)
	rating.Stars = 2
	rating.Review = "changed my mind"
	rating.ExpireNow()

	require.NoError(t, repo.Update(ctx, rating))

	got, err := repo.GetByID(ctx, rating.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stars)
	assert.Equal(t, "changed my mind", got.Review)
	assert.Equal(t, models.StateExpired, got.State())
}

func TestFindByToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	pending := testutil.NewPendingRating(t, repo, "/reviews/widget", "user@example.com", time.Hour)
	testutil.NewTestRating(t, repo, "/reviews/widget", "other@example.com", 3)

	found, err := repo.FindByToken(ctx, *pending.Token)

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pending.ID, found[0].ID)
}

func TestFindByToken_NoMatch(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	found, err := repo.FindByToken(context.Background(), "no-such-token")

	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFind_FiltersCombine(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRating(t, repo, "/reviews/widget", "a@example.com", 5)
	testutil.NewTestRating(t, repo, "/reviews/widget", "b@example.com", 4)
	testutil.NewTestRating(t, repo, "/reviews/gadget", "a@example.com", 5)

	byPage, err := repo.Find(ctx, repository.WithPage("/reviews/widget"))
	require.NoError(t, err)
	assert.Len(t, byPage, 2)

	byPageAndEmail, err := repo.Find(ctx,
		repository.WithPage("/reviews/widget"),
		repository.WithEmail("a@example.com"))
	require.NoError(t, err)
	require.Len(t, byPageAndEmail, 1)
	assert.Equal(t, "a@example.com", byPageAndEmail[0].Email)

	byStars, err := repo.Find(ctx, repository.WithStars(5))
	require.NoError(t, err)
	assert.Len(t, byStars, 2)
}

func TestFind_NoFiltersReturnsAll(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRating(t, repo, "/reviews/widget", "a@example.com", 5)
	testutil.NewTestRating(t, repo, "/reviews/gadget", "b@example.com", 4)

	all, err := repo.Find(ctx)

	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFind_StableOrder(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.NewTestRating(t, repo, "/reviews/widget", "a@example.com", 5)
	second := testutil.NewTestRating(t, repo, "/reviews/widget", "b@example.com", 4)

	found, err := repo.Find(ctx, repository.WithPage("/reviews/widget"))

	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, first.ID, found[0].ID)
	assert.Equal(t, second.ID, found[1].ID)
}

func TestFind_ByVerificationCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	code := "receipt-42"
	rating := &models.Rating{
		Page:             "/reviews/widget",
		Email:            "user@example.com",
		Author:           "User",
		Date:             time.Now().Unix(),
		Stars:            5,
		Moderated:        true,
		Verified:         true,
		VerificationCode: &code,
	}
	require.NoError(t, repo.Create(ctx, rating))
	testutil.NewTestRating(t, repo, "/reviews/widget", "other@example.com", 3)

	found, err := repo.Find(ctx, repository.WithVerificationCode(code))

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rating.ID, found[0].ID)
}

func TestCreate_DuplicateVerificationCodeRejected(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	code := "receipt-42"
	first := &models.Rating{
		Page: "/reviews/widget", Email: "a@example.com", Author: "A",
		Date: time.Now().Unix(), Stars: 5, Moderated: true,
		Verified: true, VerificationCode: &code,
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Rating{
		Page: "/reviews/gadget", Email: "b@example.com", Author: "B",
		Date: time.Now().Unix(), Stars: 4, Moderated: true,
		Verified: true, VerificationCode: &code,
	}

	// The unique index closes the race between two submitters using the
	// same code concurrently.
	err := repo.Create(ctx, second)
	require.Error(t, err)
}

func TestCreate_DuplicateActiveVoteRejected(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRating(t, repo, "/reviews/widget", "user@example.com", 5)

	duplicate := &models.Rating{
		Page: "/reviews/widget", Email: "user@example.com", Author: "User",
		Date: time.Now().Unix(), Stars: 3, Moderated: true,
	}

	err := repo.Create(ctx, duplicate)
	require.Error(t, err)
}
