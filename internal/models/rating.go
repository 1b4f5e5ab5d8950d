// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// tokenLength is the number of random bytes for activation tokens.
const tokenLength = 32

// ErrAlreadyPersisted is returned when a lifecycle transition is only valid
// on a rating that has not been stored yet.
var ErrAlreadyPersisted = errors.New("rating is already persisted")

// State describes the activation lifecycle of a rating.
//
// On disk the state is encoded in the expire column: NULL means activated,
// 0 means the token never expires, 1 is the expired sentinel (always in the
// past), any other value is an absolute expiry time in epoch seconds. The
// encoding never leaks out of this package; application code only sees
// State values.
type State int

const (
	// StateActivated - the rating counts, expire is NULL.
	StateActivated State = iota
	// StatePendingActivation - an activation token was issued and has not
	// been confirmed yet.
	StatePendingActivation
	// StateExpired - the rating was superseded by a newer submission and is
	// kept for history only.
	StateExpired
	// StateNeverExpiring - legacy state for tokens without an expiry time,
	// equivalent to StateActivated for query purposes.
	StateNeverExpiring
)

func (s State) String() string {
	switch s {
	case StateActivated:
		return "activated"
	case StatePendingActivation:
		return "pending"
	case StateExpired:
		return "expired"
	case StateNeverExpiring:
		return "never-expiring"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	expireNever    int64 = 0
	expireSentinel int64 = 1
)

// Rating is one submitted vote for a content page.
type Rating struct { //nolint:govet // fieldalignment not critical for models
	ID               int64   `db:"id" json:"id"`
	Page             string  `db:"page" json:"page"`
	Email            string  `db:"email" json:"email"`
	Author           string  `db:"author" json:"author"`
	Date             int64   `db:"date" json:"date"`
	Stars            int     `db:"stars" json:"stars"`
	Title            string  `db:"title" json:"title"`
	Review           string  `db:"review" json:"review"`
	Lang             string  `db:"lang" json:"lang"`
	Moderated        bool    `db:"moderated" json:"moderated"`
	Reported         bool    `db:"reported" json:"reported"`
	Verified         bool    `db:"verified" json:"verified"`
	VerificationCode *string `db:"verification_code" json:"-"`
	Token            *string `db:"token" json:"-"`
	Expire           *int64  `db:"expire" json:"-"`
}

// State returns the lifecycle state derived from the expire field.
func (r *Rating) State() State {
	switch {
	case r.Expire == nil:
		return StateActivated
	case *r.Expire == expireNever:
		return StateNeverExpiring
	case *r.Expire == expireSentinel:
		return StateExpired
	default:
		return StatePendingActivation
	}
}

// IsActivated reports whether the rating counts. Never-expiring ratings
// required no confirmation and are activated for all query purposes.
func (r *Rating) IsActivated() bool {
	return r.Expire == nil || *r.Expire == expireNever
}

// IsPendingActivation reports whether the rating still waits for its
// activation link to be visited.
func (r *Rating) IsPendingActivation() bool {
	return r.State() == StatePendingActivation
}

// IsExpired reports whether the activation window has passed. Activated and
// never-expiring ratings are never expired.
func (r *Rating) IsExpired() bool {
	if r.Expire == nil || *r.Expire == expireNever {
		return false
	}
	return time.Now().Unix() > *r.Expire
}

// IssueActivationToken generates a fresh activation token and sets the
// expiry window. It is only valid on a rating that has not been persisted.
//
// A ttl of zero means no confirmation is required: the token is cleared and
// the rating is marked never-expiring.
func (r *Rating) IssueActivationToken(ttl time.Duration) error {
	if r.ID != 0 {
		return fmt.Errorf("%w: cannot issue a token for rating %d", ErrAlreadyPersisted, r.ID)
	}

	if ttl == 0 {
		never := expireNever
		r.Expire = &never
		r.Token = nil
		return nil
	}

	token, err := newActivationToken()
	if err != nil {
		return err
	}
	expire := time.Now().Add(ttl).Unix()
	r.Token = &token
	r.Expire = &expire
	return nil
}

// Activate confirms the rating. The token is kept as a historical record but
// never satisfies IsPendingActivation again.
func (r *Rating) Activate() {
	r.Expire = nil
}

// ExpireNow marks the rating as superseded. The sentinel value is always in
// the past, so the row stays out of activation and limit counting while
// remaining available for audit.
func (r *Rating) ExpireNow() {
	sentinel := expireSentinel
	r.Expire = &sentinel
}

// newActivationToken returns a hex-encoded token with 256 bits of entropy.
func newActivationToken() (string, error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
