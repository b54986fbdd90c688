package auth

import (
	"context"
	"time"
)

// SessionTokenStrategy serves a pre-provisioned session token (e.g. copied from
// `sf org display`). It never performs I/O.
type SessionTokenStrategy struct {
	token string
	now   func() time.Time
}

// NewSessionTokenStrategy creates the strategy; an empty token makes it ineligible
func NewSessionTokenStrategy(token string) *SessionTokenStrategy {
	return &SessionTokenStrategy{token: token, now: time.Now}
}

func (s *SessionTokenStrategy) Name() string { return "session_token" }

// Attempt returns the configured token as a CLI-derived credential
func (s *SessionTokenStrategy) Attempt(ctx context.Context) (Credential, error) {
	if s.token == "" {
		return Credential{}, ConfigIncompleteError{Strategy: s.Name(), Missing: []string{"SF_SESSION_TOKEN"}}
	}
	return newCredential(s.token, SourceCLIFlow, s.now()), nil
}
