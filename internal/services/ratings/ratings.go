// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratings orchestrates the rating lifecycle: submission validation,
// duplicate and limit checks, activation token issuance, verification code
// cross-checks, expiration of superseded votes and cache invalidation.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"pageratings/internal/cache"
	"pageratings/internal/models"
	"pageratings/internal/repository"
	"pageratings/internal/services/email"
	"pageratings/internal/verification"
)

// Validation errors, surfaced to the submitter and never retried.
var (
	ErrStarsOutOfRange         = errors.New("stars out of accepted range")
	ErrAlreadyRated            = errors.New("this page was already rated by this email address")
	ErrRatingLimitReached      = errors.New("rating limit reached")
	ErrInvalidVerificationCode = errors.New("verification code is not valid for this page")
	ErrVerificationCodeUsed    = errors.New("verification code was already used")
	ErrInvalidLanguage         = errors.New("invalid language tag")
)

// Integrity and not-found errors for the token lookup.
var (
	ErrTokenNotFound  = errors.New("activation token not found")
	ErrDuplicateToken = errors.New("multiple ratings share one activation token")
)

// Options configures the engine.
type Options struct { //nolint:govet // fieldalignment not critical here
	MinStars           int
	MaxStars           int
	PagesLimit         int // 0 means unlimited
	ActivationTokenTTL time.Duration
	Moderation         bool
	ActivationURL      string
	CacheSalt          string
}

// Service is the ratings engine. All collaborators are injected; the engine
// holds no ambient state.
type Service struct {
	repo   *repository.Repository
	codes  verification.Lookup
	mailer email.Mailer
	cache  cache.Cache
	opts   Options
}

// New creates a ratings engine. codes may be nil when no verification code
// list is configured; every submitted code is rejected then.
func New(repo *repository.Repository, codes verification.Lookup, mailer email.Mailer, store cache.Cache, opts Options) *Service {
	if opts.MinStars == 0 {
		opts.MinStars = 1
	}
	if opts.MaxStars == 0 {
		opts.MaxStars = 5
	}
	return &Service{
		repo:   repo,
		codes:  codes,
		mailer: mailer,
		cache:  store,
		opts:   opts,
	}
}

// Submission carries the form fields of one rating submission.
type Submission struct {
	Page             string
	Email            string
	Author           string
	Title            string
	Review           string
	Lang             string
	VerificationCode string
	Stars            int
}

// SubmitRating runs the full submission pipeline: validation, duplicate and
// limit checks, confirmation path resolution, expiration of superseded
// votes, persistence and the activation email. Exactly one confirmation
// path applies to the new rating: pending email activation, verification
// code, or none.
func (s *Service) SubmitRating(ctx context.Context, sub Submission) (*models.Rating, error) {
	if sub.Stars < s.opts.MinStars || sub.Stars > s.opts.MaxStars {
		return nil, fmt.Errorf("%w: got %d, accept %d-%d", ErrStarsOutOfRange, sub.Stars, s.opts.MinStars, s.opts.MaxStars)
	}

	lang := ""
	if sub.Lang != "" {
		tag, err := language.Parse(sub.Lang)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, sub.Lang)
		}
		lang = tag.String()
	}

	rating := &models.Rating{
		Page:      sub.Page,
		Email:     NormalizeEmail(sub.Email),
		Author:    sub.Author,
		Date:      time.Now().Unix(),
		Stars:     sub.Stars,
		Title:     sub.Title,
		Review:    sub.Review,
		Lang:      lang,
		Moderated: !s.opts.Moderation,
	}

	already, err := s.HasAlreadyRated(ctx, rating)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyRated
	}

	limited, err := s.HasReachedRatingLimit(ctx, rating)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, ErrRatingLimitReached
	}

	if sub.VerificationCode != "" {
		if err := s.applyVerificationCode(ctx, rating, sub.VerificationCode); err != nil {
			return nil, err
		}
	} else {
		if err := rating.IssueActivationToken(s.opts.ActivationTokenTTL); err != nil {
			return nil, err
		}
	}

	// A user may always overwrite their own still-pending vote.
	if err := s.ExpireAllRatings(ctx, rating.Page, rating.Email); err != nil {
		return nil, err
	}

	if err := s.AddRating(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// applyVerificationCode resolves the verification code confirmation path. A
// valid code activates the rating immediately; the code is bound to the row
// and can never validate a second rating.
func (s *Service) applyVerificationCode(ctx context.Context, rating *models.Rating, code string) error {
	if s.codes == nil {
		return ErrInvalidVerificationCode
	}

	entry, err := s.codes.GetVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, verification.ErrCodeNotFound) {
			return ErrInvalidVerificationCode
		}
		return err
	}
	// A code valid for page A must never authorize a submission on page B.
	if entry.Page != rating.Page {
		return ErrInvalidVerificationCode
	}

	used, err := s.IsVerificationCodeAlreadyUsed(ctx, code)
	if err != nil {
		return err
	}
	if used {
		return ErrVerificationCodeUsed
	}

	rating.Verified = true
	rating.VerificationCode = &code
	rating.Expire = nil
	return nil
}

// AddRating persists a rating and, if an activation token was issued, sends
// the activation email. A mailer failure is reported but the stored rating
// is not rolled back; the user can still be activated out-of-band.
func (s *Service) AddRating(ctx context.Context, rating *models.Rating) error {
	if err := s.repo.Create(ctx, rating); err != nil {
		return err
	}

	s.invalidatePage(ctx, rating.Page)

	if rating.Token != nil {
		if err := s.sendActivationEmail(ctx, rating); err != nil {
			return fmt.Errorf("rating %d stored, but sending the activation email failed: %w", rating.ID, err)
		}
	}
	return nil
}

// sendActivationEmail mails the activation link for a pending rating.
func (s *Service) sendActivationEmail(ctx context.Context, rating *models.Rating) error {
	link := fmt.Sprintf("%s?token=%s", strings.TrimSuffix(s.opts.ActivationURL, "/"), *rating.Token)

	subject := "Please confirm your rating"
	body := fmt.Sprintf(
		"Hello %s,\n\nplease confirm your rating for %s by opening this link:\n\n%s\n\nIf you did not submit a rating, you can ignore this message.\n",
		rating.Author, rating.Page, link)

	return s.mailer.Send(ctx, rating.Email, rating.Author, subject, body)
}

// GetRatingByToken resolves an activation token. Zero matches surface as
// ErrTokenNotFound; more than one match means the store lost the token
// uniqueness guarantee and is an integrity error.
func (s *Service) GetRatingByToken(ctx context.Context, token string) (*models.Rating, error) {
	found, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(found) > 1 {
		return nil, fmt.Errorf("%w: token matches %d ratings", ErrDuplicateToken, len(found))
	}
	if len(found) == 0 {
		return nil, ErrTokenNotFound
	}
	return &found[0], nil
}

// ActivationOutcome describes the result of an activation link visit.
type ActivationOutcome int

const (
	// ActivationOK - the rating is now activated.
	ActivationOK ActivationOutcome = iota
	// ActivationAlreadyActivated - the link was visited before; no change.
	ActivationAlreadyActivated
	// ActivationAlreadyRated - another rating by the same identity is
	// already active on the page.
	ActivationAlreadyRated
	// ActivationTokenExpired - the activation window has passed.
	ActivationTokenExpired
)

func (o ActivationOutcome) String() string {
	switch o {
	case ActivationOK:
		return "activated"
	case ActivationAlreadyActivated:
		return "already activated"
	case ActivationAlreadyRated:
		return "already rated"
	case ActivationTokenExpired:
		return "token expired"
	}
	return fmt.Sprintf("ActivationOutcome(%d)", int(o))
}

// ActivateByToken handles an activation link visit end to end. Visiting a
// link twice is not an error; the caller can tell the outcomes apart to
// phrase its response. The returned rating carries the page to redirect to.
func (s *Service) ActivateByToken(ctx context.Context, token string) (*models.Rating, ActivationOutcome, error) {
	rating, err := s.GetRatingByToken(ctx, token)
	if err != nil {
		return nil, 0, err
	}

	if rating.IsActivated() {
		return rating, ActivationAlreadyActivated, nil
	}

	already, err := s.HasAlreadyRated(ctx, rating)
	if err != nil {
		return nil, 0, err
	}
	if already {
		return rating, ActivationAlreadyRated, nil
	}

	if rating.IsExpired() {
		return rating, ActivationTokenExpired, nil
	}

	if err := s.ActivateRating(ctx, rating); err != nil {
		return nil, 0, err
	}
	return rating, ActivationOK, nil
}

// ActivateRating transitions a rating to activated and persists it.
func (s *Service) ActivateRating(ctx context.Context, rating *models.Rating) error {
	rating.Activate()
	if err := s.repo.Update(ctx, rating); err != nil {
		return err
	}
	s.invalidatePage(ctx, rating.Page)
	return nil
}

// ExpireAllRatings marks every rating for the page and identity as expired,
// so a newer submission becomes the only eligible one.
func (s *Service) ExpireAllRatings(ctx context.Context, page, emailAddr string) error {
	found, err := s.repo.Find(ctx, repository.WithPage(page), repository.WithEmail(NormalizeEmail(emailAddr)))
	if err != nil {
		return err
	}
	return s.expireRatings(ctx, found)
}

// ExpireAllRatingsByVerificationCode marks every rating carrying the code as
// expired. Used when an operator revokes a code: the rows stay for history
// but no longer count anywhere.
func (s *Service) ExpireAllRatingsByVerificationCode(ctx context.Context, code string) error {
	found, err := s.repo.Find(ctx, repository.WithVerificationCode(code))
	if err != nil {
		return err
	}
	return s.expireRatings(ctx, found)
}

func (s *Service) expireRatings(ctx context.Context, found []models.Rating) error {
	pages := make(map[string]struct{})
	for i := range found {
		rating := &found[i]
		if rating.State() == models.StateExpired {
			continue
		}
		rating.ExpireNow()
		if err := s.repo.Update(ctx, rating); err != nil {
			return err
		}
		pages[rating.Page] = struct{}{}
	}
	for page := range pages {
		s.invalidatePage(ctx, page)
	}
	return nil
}

// HasAlreadyRated reports whether an activated rating by the same identity
// exists for the page. Pending and expired votes do not block a new
// submission.
func (s *Service) HasAlreadyRated(ctx context.Context, rating *models.Rating) (bool, error) {
	found, err := s.repo.Find(ctx, repository.WithPage(rating.Page), repository.WithEmail(rating.Email))
	if err != nil {
		return false, err
	}
	for i := range found {
		if found[i].ID == rating.ID {
			continue
		}
		if found[i].IsActivated() {
			return true, nil
		}
	}
	return false, nil
}

// HasReachedRatingLimit reports whether the identity already voted on the
// configured maximum of distinct pages. Expired votes never count, and the
// page of the new submission is excluded so a user may always retry or
// overwrite their own vote there.
func (s *Service) HasReachedRatingLimit(ctx context.Context, rating *models.Rating) (bool, error) {
	if s.opts.PagesLimit == 0 {
		return false, nil
	}

	found, err := s.repo.Find(ctx, repository.WithEmail(rating.Email))
	if err != nil {
		return false, err
	}

	pages := make(map[string]struct{})
	for i := range found {
		row := &found[i]
		if row.Page == rating.Page {
			continue
		}
		switch row.State() {
		case models.StateExpired:
			continue
		case models.StatePendingActivation:
			if row.IsExpired() {
				continue
			}
		case models.StateActivated, models.StateNeverExpiring:
		}
		pages[row.Page] = struct{}{}
	}
	return len(pages) >= s.opts.PagesLimit, nil
}

// IsVerificationCodeAlreadyUsed reports whether any rating carries the code.
// A code is single-use the moment it is attached to a submission, even one
// that is not activated yet, to narrow the window where two submitters use
// the same code concurrently.
func (s *Service) IsVerificationCodeAlreadyUsed(ctx context.Context, code string) (bool, error) {
	found, err := s.repo.Find(ctx, repository.WithVerificationCode(code))
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// NormalizeEmail lowercases and trims an identity address.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// invalidatePage drops both cache entries for a page. Invalidation is
// best-effort: a failing cache must not abort the write that triggered it.
func (s *Service) invalidatePage(ctx context.Context, page string) {
	for _, key := range []string{s.listKey(page), s.resultsKey(page)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.Warn("cache invalidation failed", "page", page, "error", err)
		}
	}
}
