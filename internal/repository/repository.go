// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository provides durable storage for ratings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vinovest/sqlx"

	"pageratings/internal/models"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// ErrInvalidOperation is returned when an operation is called on a rating in
// the wrong persistence state, e.g. creating an already-persisted rating.
var ErrInvalidOperation = errors.New("invalid repository operation")

// ratingColumns is the canonical column list. Scan order must match
// scanRating.
const ratingColumns = "id, page, email, author, date, stars, title, review, lang, moderated, reported, verified, verification_code, token, expire"

// Repository wraps the SQLite store for rating rows.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new rating and assigns its id. The id comes from the
// insert's own statement, never from a shared "last id" query, so concurrent
// writers cannot read each other's fresh ids.
func (r *Repository) Create(ctx context.Context, rating *models.Rating) error {
	if rating.ID != 0 {
		return fmt.Errorf("%w: rating %d already exists", ErrInvalidOperation, rating.ID)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (page, email, author, date, stars, title, review, lang, moderated, reported, verified, verification_code, token, expire)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rating.Page, rating.Email, rating.Author, rating.Date, rating.Stars,
		rating.Title, rating.Review, rating.Lang, rating.Moderated, rating.Reported,
		rating.Verified, rating.VerificationCode, rating.Token, rating.Expire)
	if err != nil {
		return fmt.Errorf("inserting rating: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted rating id: %w", err)
	}
	rating.ID = id
	return nil
}

// Update overwrites all mutable fields of a persisted rating by primary key.
func (r *Repository) Update(ctx context.Context, rating *models.Rating) error {
	if rating.ID == 0 {
		return fmt.Errorf("%w: cannot update a rating that does not yet exist in the database", ErrInvalidOperation)
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE ratings
		 SET page = ?, email = ?, author = ?, date = ?, stars = ?, title = ?,
		     review = ?, lang = ?, moderated = ?, reported = ?, verified = ?,
		     verification_code = ?, token = ?, expire = ?
		 WHERE id = ?`,
		rating.Page, rating.Email, rating.Author, rating.Date, rating.Stars,
		rating.Title, rating.Review, rating.Lang, rating.Moderated, rating.Reported,
		rating.Verified, rating.VerificationCode, rating.Token, rating.Expire,
		rating.ID)
	if err != nil {
		return fmt.Errorf("updating rating %d: %w", rating.ID, err)
	}
	return nil
}

// GetByID retrieves a single rating by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	rating, err := scanRating(rows)
	if err != nil {
		return nil, err
	}
	return rating, rows.Err()
}

// FindByToken returns all ratings carrying the given activation token.
// Tokens are expected unique; the caller treats more than one match as an
// integrity error and zero matches as not-found.
func (r *Repository) FindByToken(ctx context.Context, token string) ([]models.Rating, error) {
	return r.Find(ctx, WithToken(token))
}

// Filter is an optional equality predicate for Find.
type Filter func(*filterSet)

type filterSet struct {
	clauses []string
	args    []any
}

// WithPage filters by page route.
func WithPage(page string) Filter {
	return func(f *filterSet) {
		f.clauses = append(f.clauses, "page = ?")
		f.args = append(f.args, page)
	}
}

// WithEmail filters by submitter identity.
func WithEmail(email string) Filter {
	return func(f *filterSet) {
		f.clauses = append(f.clauses, "email = ?")
		f.args = append(f.args, email)
	}
}

// WithStars filters by star value.
func WithStars(stars int) Filter {
	return func(f *filterSet) {
		f.clauses = append(f.clauses, "stars = ?")
		f.args = append(f.args, stars)
	}
}

// WithToken filters by activation token.
func WithToken(token string) Filter {
	return func(f *filterSet) {
		f.clauses = append(f.clauses, "token = ?")
		f.args = append(f.args, token)
	}
}

// WithVerificationCode filters by attached verification code.
func WithVerificationCode(code string) Filter {
	return func(f *filterSet) {
		f.clauses = append(f.clauses, "verification_code = ?")
		f.args = append(f.args, code)
	}
}

// Find returns all ratings matching the given filters. Omitted filters are
// not applied. Results are ordered by id so queries are stable.
func (r *Repository) Find(ctx context.Context, filters ...Filter) ([]models.Rating, error) {
	var set filterSet
	for _, filter := range filters {
		filter(&set)
	}

	var query strings.Builder
	query.WriteString("SELECT " + ratingColumns + " FROM ratings")
	if len(set.clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(set.clauses, " AND "))
	}
	query.WriteString(" ORDER BY id")

	rows, err := r.db.QueryContext(ctx, query.String(), set.args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ratings []models.Rating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rating)
	}
	return ratings, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRating maps one row onto a Rating, field by field.
func scanRating(row scanner) (*models.Rating, error) {
	var rating models.Rating
	err := row.Scan(
		&rating.ID, &rating.Page, &rating.Email, &rating.Author, &rating.Date,
		&rating.Stars, &rating.Title, &rating.Review, &rating.Lang,
		&rating.Moderated, &rating.Reported, &rating.Verified,
		&rating.VerificationCode, &rating.Token, &rating.Expire)
	if err != nil {
		return nil, fmt.Errorf("scanning rating row: %w", err)
	}
	return &rating, nil
}
