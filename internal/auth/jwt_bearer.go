package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// JWTBearerGrantType is the OAuth grant used to exchange a signed assertion
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// JWTBearerStrategy signs an RS256 assertion with the connected app's private key
// and exchanges it for an access token.
type JWTBearerStrategy struct {
	tokenURL string
	clientID string
	username string
	audience string
	key      *rsa.PrivateKey
	keyErr   error
	missing  []string
	client   *http.Client
	now      func() time.Time
}

// NewJWTBearerStrategy parses the private key once. Missing fields make the
// strategy ineligible; unparseable key material makes every Attempt fail, see KeyError.
func NewJWTBearerStrategy(sf config.Salesforce, client *http.Client) *JWTBearerStrategy {
	s := &JWTBearerStrategy{
		tokenURL: sf.InstanceURL + TokenPath,
		clientID: sf.ClientID,
		username: sf.Username,
		audience: sf.JWTAudience,
		client:   client,
		now:      time.Now,
	}
	if s.audience == "" {
		s.audience = sf.InstanceURL
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}

	for _, f := range []struct {
		key, val string
	}{
		{"SF_INSTANCE_URL", sf.InstanceURL},
		{"SF_CLIENT_ID", sf.ClientID},
		{"SF_USERNAME", sf.Username},
		{"SF_JWT_PRIVATE_KEY", sf.JWTPrivateKey},
	} {
		if f.val == "" {
			s.missing = append(s.missing, f.key)
		}
	}

	if sf.JWTPrivateKey != "" {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sf.JWTPrivateKey))
		if err != nil {
			// Never include the key material itself
			s.keyErr = fmt.Errorf("invalid JWT private key: %w", err)
		} else {
			s.key = key
		}
	}

	return s
}

// KeyError reports why the configured private key could not be parsed, or nil
func (s *JWTBearerStrategy) KeyError() error {
	return s.keyErr
}

func (s *JWTBearerStrategy) Name() string { return "jwt_bearer" }

// BuildAssertion signs the claims Salesforce expects for the JWT bearer flow
func (s *JWTBearerStrategy) BuildAssertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": s.clientID,
		"sub": s.username,
		"aud": s.audience,
		"iat": now.Unix(),
		"exp": now.Add(AssertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["typ"] = "JWT"
	return token.SignedString(s.key)
}

// Attempt signs a fresh assertion and exchanges it at the token endpoint
func (s *JWTBearerStrategy) Attempt(ctx context.Context) (Credential, error) {
	if len(s.missing) > 0 {
		return Credential{}, ConfigIncompleteError{Strategy: s.Name(), Missing: s.missing}
	}
	if s.keyErr != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonInvalidKey, Err: s.keyErr}
	}

	issuedAt := s.now()
	assertion, err := s.BuildAssertion(issuedAt)
	if err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "sign assertion", Err: err}
	}

	form := url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Credential{}, StrategyError{
			Strategy: s.Name(),
			Reason:   fmt.Sprintf("token endpoint returned %d", resp.StatusCode),
			Err:      fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "parse token response", Err: err}
	}
	if tokenResp.AccessToken == "" {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: "response missing access_token"}
	}

	return newCredential(tokenResp.AccessToken, SourceJWTFlow, issuedAt), nil
}
