package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DuplicatesPath is the Apex REST resource fronted by the proxy
const DuplicatesPath = "/services/apexrest/duplicates"

// DefaultTimeout bounds each upstream call
const DefaultTimeout = 20 * time.Second

// CredentialSource abstracts the broker for testing
type CredentialSource interface {
	// ResolveDetailed returns a usable credential; it never fails
	ResolveDetailed(ctx context.Context) auth.Resolution

	// Invalidate removes a rejected credential from the cache
	Invalidate(value string)
}

// Request is an inbound API call, forwarded as-is apart from the auth header
type Request struct {
	Method   string
	Path     string // suffix after DuplicatesPath, e.g. "/pending"
	RawQuery string
	Body     json.RawMessage
}

// Response is what the caller receives: the upstream status and body verbatim,
// or a canned offline answer
type Response struct {
	StatusCode int
	Body       []byte
	Offline    bool
}

// Proxy forwards requests to Salesforce with whichever credential the broker provides
type Proxy struct {
	baseURL    string
	creds      CredentialSource
	httpClient *http.Client
}

// New creates a proxy for instanceURL with its own upstream timeout
func New(instanceURL string, creds CredentialSource, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Proxy{
		baseURL:    instanceURL + DuplicatesPath,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the upstream client (tests, custom transports)
func (p *Proxy) WithHTTPClient(c *http.Client) *Proxy {
	p.httpClient = c
	return p
}

// Forward resolves a credential and relays req upstream.
// Returns *TransportError when the upstream is unreachable and ErrInvalidBody
// when the body is not JSON; upstream error statuses are returned as Responses.
func (p *Proxy) Forward(ctx context.Context, req Request) (*Response, error) {
	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	logger := log.Ctx(ctx).With().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("correlationId", correlationID).
		Logger()

	res := p.creds.ResolveDetailed(ctx)
	cred := res.Credential

	if cred.IsOffline() {
		logger.Info().Msg("serving offline response")
		return offlineResponse(req.Method), nil
	}

	target := p.baseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if req.Method != http.MethodGet && len(bytes.TrimSpace(req.Body)) > 0 {
		// Compact rather than decode so numbers and key order reach Salesforce untouched
		var encoded bytes.Buffer
		if err := json.Compact(&encoded, req.Body); err != nil {
			return nil, ErrInvalidBody{Err: err}
		}
		body = &encoded
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	upstreamReq.Header.Set("Authorization", "Bearer "+cred.Value)
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("X-Correlation-ID", correlationID)

	start := time.Now()
	resp, err := p.httpClient.Do(upstreamReq)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("upstream request failed")
		return nil, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("reading upstream response failed")
		return nil, &TransportError{URL: target, Err: err}
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Str("credentialFrom", res.From.String()).
		Msg("upstream request completed")

	if resp.StatusCode == http.StatusUnauthorized {
		// Surface the 401 but make the next request resolve a fresh credential
		logger.Warn().Object("credential", cred).Msg("upstream rejected credential, invalidating cache")
		p.creds.Invalidate(cred.Value)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
