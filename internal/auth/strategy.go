package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/config"
	"github.com/rs/zerolog/log"
)

// Strategy is one way of obtaining a credential.
// Attempt returns an error wrapping ErrConfigIncomplete when the strategy is not
// configured, and a StrategyError when it ran and failed.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context) (Credential, error)
}

// TokenPath is appended to the instance URL for both OAuth grants
const TokenPath = "/services/oauth2/token"

// DefaultStrategies builds the fixed priority order: session token, password
// flow, JWT bearer, then the CLI as a last attempt before going offline.
// A JWT key that cannot be parsed only disables that strategy; the others still run.
func DefaultStrategies(sf config.Salesforce, tokenTimeout, cliTimeout time.Duration) []Strategy {
	client := &http.Client{Timeout: tokenTimeout}

	jwtStrategy := NewJWTBearerStrategy(sf, client)
	if err := jwtStrategy.KeyError(); err != nil {
		log.Warn().Err(err).Msg("JWT bearer flow disabled: check SF_JWT_PRIVATE_KEY formatting")
	}

	strategies := []Strategy{
		NewSessionTokenStrategy(sf.SessionToken),
		NewPasswordStrategy(sf, client),
		jwtStrategy,
	}

	if sf.CLIFallback {
		strategies = append(strategies, NewCLIStrategy(sf.CLIPath, sf.CLITargetOrg, cliTimeout))
	}

	return strategies
}
