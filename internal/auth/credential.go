package auth

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// TokenLifetime is how long a Salesforce access token is trusted after issue.
	// Salesforce does not return expires_in, so we assume the default 2 hour session timeout.
	TokenLifetime = 2 * time.Hour

	// AssertionLifetime bounds the signed JWT assertion, not the token it is exchanged for
	AssertionLifetime = 3 * time.Minute
)

// Source identifies how a credential was obtained
type Source int

const (
	SourceCached Source = iota
	SourcePasswordFlow
	SourceJWTFlow
	SourceCLIFlow
	SourceOffline
)

func (s Source) String() string {
	switch s {
	case SourceCached:
		return "cached"
	case SourcePasswordFlow:
		return "password"
	case SourceJWTFlow:
		return "jwt"
	case SourceCLIFlow:
		return "cli"
	case SourceOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Credential is an opaque bearer value plus its expiry instant
type Credential struct {
	Value     string
	ExpiresAt time.Time
	Source    Source
}

// OfflineCredential is the sentinel returned when no real credential can be obtained.
// It never expires and is never cached.
func OfflineCredential() Credential {
	return Credential{Value: "offline", Source: SourceOffline}
}

// newCredential stamps a freshly issued token with its validity window
func newCredential(value string, source Source, issuedAt time.Time) Credential {
	return Credential{
		Value:     value,
		ExpiresAt: issuedAt.Add(TokenLifetime),
		Source:    source,
	}
}

// IsOffline reports whether upstream calls must be skipped
func (c Credential) IsOffline() bool {
	return c.Source == SourceOffline
}

// ValidAt reports whether the credential can still be used at now
func (c Credential) ValidAt(now time.Time) bool {
	if c.IsOffline() {
		return true
	}
	return c.Value != "" && now.Before(c.ExpiresAt)
}

// MarshalZerologObject logs the credential without its bearer value
func (c Credential) MarshalZerologObject(e *zerolog.Event) {
	e.Str("source", c.Source.String())
	if !c.ExpiresAt.IsZero() {
		e.Time("expiresAt", c.ExpiresAt)
	}
}

// Resolution is a Credential plus where the broker found it.
// From is SourceCached on a cache hit and the credential's own source otherwise.
type Resolution struct {
	Credential Credential
	From       Source
}
