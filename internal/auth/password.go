package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/config"
	"golang.org/x/oauth2"
)

// PasswordStrategy performs the OAuth resource-owner password grant.
//
// Salesforce expects the user's security token appended to the password, so the
// password sent is always Password+SecurityToken. An empty security token (trusted
// IP ranges) sends the bare password.
type PasswordStrategy struct {
	oauth    oauth2.Config
	username string
	password string
	missing  []string
	client   *http.Client
	now      func() time.Time
}

// NewPasswordStrategy creates the strategy; missing fields make it ineligible
func NewPasswordStrategy(sf config.Salesforce, client *http.Client) *PasswordStrategy {
	return &PasswordStrategy{
		oauth: oauth2.Config{
			ClientID:     sf.ClientID,
			ClientSecret: sf.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  sf.InstanceURL + TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		username: sf.Username,
		password: sf.Password + sf.SecurityToken,
		missing:  sf.MissingPasswordFields(),
		client:   client,
		now:      time.Now,
	}
}

func (s *PasswordStrategy) Name() string { return "password" }

// Attempt exchanges username/password for an access token
func (s *PasswordStrategy) Attempt(ctx context.Context) (Credential, error) {
	if len(s.missing) > 0 {
		return Credential{}, ConfigIncompleteError{Strategy: s.Name(), Missing: s.missing}
	}

	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	issuedAt := s.now()
	tok, err := s.oauth.PasswordCredentialsToken(ctx, s.username, s.password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return Credential{}, StrategyError{
				Strategy: s.Name(),
				Reason:   fmt.Sprintf("token endpoint returned %d", re.Response.StatusCode),
				Err:      err,
			}
		}
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "token request failed", Err: err}
	}

	return newCredential(tok.AccessToken, SourcePasswordFlow, issuedAt), nil
}
