// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"pageratings/internal/database"
	"pageratings/internal/models"
	"pageratings/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestRating persists an activated, moderated rating.
func NewTestRating(t *testing.T, repo *repository.Repository, page, email string, stars int) *models.Rating {
	t.Helper()
	rating := &models.Rating{
		Page:      page,
		Email:     email,
		Author:    "Test Author",
		Date:      time.Now().Unix(),
		Stars:     stars,
		Review:    "test review",
		Moderated: true,
	}
	require.NoError(t, repo.Create(context.Background(), rating))
	return rating
}

// NewPendingRating persists a rating that still waits for activation.
func NewPendingRating(t *testing.T, repo *repository.Repository, page, email string, ttl time.Duration) *models.Rating {
	t.Helper()
	rating := &models.Rating{
		Page:      page,
		Email:     email,
		Author:    "Test Author",
		Date:      time.Now().Unix(),
		Stars:     5,
		Review:    "test review",
		Moderated: true,
	}
	require.NoError(t, rating.IssueActivationToken(ttl))
	require.NoError(t, repo.Create(context.Background(), rating))
	return rating
}
