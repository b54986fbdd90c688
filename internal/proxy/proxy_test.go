package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/auth"
)

// mockCredentials is a simple mock for testing
type mockCredentials struct {
	cred        auth.Credential
	resolves    int
	invalidated []string
}

func (m *mockCredentials) ResolveDetailed(ctx context.Context) auth.Resolution {
	m.resolves++
	return auth.Resolution{Credential: m.cred, From: m.cred.Source}
}

func (m *mockCredentials) Invalidate(value string) {
	m.invalidated = append(m.invalidated, value)
}

func liveCredential() auth.Credential {
	return auth.Credential{Value: "00Dxx!live", ExpiresAt: time.Now().Add(time.Hour), Source: auth.SourcePasswordFlow}
}

// failingTransport fails the test if any request is attempted
type failingTransport struct {
	t *testing.T
}

func (f failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected network call to %s", r.URL)
	return nil, errors.New("network disabled")
}

func TestForward_OfflineRead(t *testing.T) {
	creds := &mockCredentials{cred: auth.OfflineCredential()}
	p := New("https://example.my.salesforce.com", creds, time.Second).
		WithHTTPClient(&http.Client{Transport: failingTransport{t}})

	resp, err := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !resp.Offline {
		t.Errorf("unexpected response: %d offline=%v", resp.StatusCode, resp.Offline)
	}

	var matches []DuplicateMatch
	if err := json.Unmarshal(resp.Body, &matches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "a01XX000001234" || matches[1].MatchScore != 50 {
		t.Errorf("unexpected offline dataset: %+v", matches)
	}

	// deterministic across calls, and callers cannot corrupt it
	resp.Body[0] = 'X'
	again, _ := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})
	if string(again.Body) != string(mustMarshal(OfflineMatches())) {
		t.Error("offline dataset changed between calls")
	}
}

func TestForward_OfflineWrite(t *testing.T) {
	creds := &mockCredentials{cred: auth.OfflineCredential()}
	p := New("https://example.my.salesforce.com", creds, time.Second).
		WithHTTPClient(&http.Client{Transport: failingTransport{t}})

	for i := 0; i < 2; i++ {
		resp, err := p.Forward(context.Background(), Request{
			Method: http.MethodPost,
			Path:   "/a01XX000001234/resolve",
			Body:   json.RawMessage(`{"action":"merge"}`),
		})
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}

		var result ResolveResult
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !result.Success || result.Message != "Mock operation completed successfully" {
			t.Errorf("unexpected result: %+v", result)
		}
	}
}

func TestForward_CredentialedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DuplicatesPath+"/pending" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.RawQuery != "limit=10&status=Pending%20Review" {
			t.Errorf("query not forwarded verbatim: %s", r.URL.RawQuery)
		}
		if authz := r.Header.Get("Authorization"); authz != "Bearer 00Dxx!live" {
			t.Errorf("unexpected auth header: %s", authz)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if id := r.Header.Get("X-Correlation-ID"); id != "corr-123" {
			t.Errorf("unexpected correlation id: %s", id)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"a01live"}]`))
	}))
	defer server.Close()

	creds := &mockCredentials{cred: liveCredential()}
	p := New(server.URL, creds, time.Second)

	ctx := WithCorrelationID(context.Background(), "corr-123")
	resp, err := p.Forward(ctx, Request{Method: http.MethodGet, Path: "/pending", RawQuery: "limit=10&status=Pending%20Review"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `[{"id":"a01live"}]` {
		t.Errorf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if resp.Offline {
		t.Error("credentialed response must not be marked offline")
	}
}

func TestForward_PostBodyReserialized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"action":"ignore"}` {
			t.Errorf("unexpected body: %s", body)
		}
		w.Write([]byte(`{"success":true,"message":"Duplicate match resolved"}`))
	}))
	defer server.Close()

	p := New(server.URL, &mockCredentials{cred: liveCredential()}, time.Second)
	resp, err := p.Forward(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/a01/resolve",
		Body:   json.RawMessage("{ \"action\" :\n \"ignore\" }"),
	})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

func TestForward_PostBodyNumbersPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"action":"merge","version":9007199254740993,"ratio":1.50}` {
			t.Errorf("body changed in transit: %s", body)
		}
		w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	p := New(server.URL, &mockCredentials{cred: liveCredential()}, time.Second)
	_, err := p.Forward(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/a01/resolve",
		Body:   json.RawMessage(`{"action": "merge", "version": 9007199254740993, "ratio": 1.50}`),
	})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
}

func TestForward_TrailingGarbageRejected(t *testing.T) {
	p := New("https://example.my.salesforce.com", &mockCredentials{cred: liveCredential()}, time.Second).
		WithHTTPClient(&http.Client{Transport: failingTransport{t}})

	_, err := p.Forward(context.Background(), Request{Method: http.MethodPost, Path: "/a01/resolve", Body: json.RawMessage(`{"action":"merge"} extra`)})

	var invalid ErrInvalidBody
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidBody, got %v", err)
	}
}

func TestForward_InvalidBody(t *testing.T) {
	p := New("https://example.my.salesforce.com", &mockCredentials{cred: liveCredential()}, time.Second).
		WithHTTPClient(&http.Client{Transport: failingTransport{t}})

	_, err := p.Forward(context.Background(), Request{Method: http.MethodPost, Path: "/a01/resolve", Body: json.RawMessage(`{"action":`)})

	var invalid ErrInvalidBody
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidBody, got %v", err)
	}
}

func TestForward_UpstreamErrorRelayedVerbatim(t *testing.T) {
	const upstreamBody = `[{"errorCode":"APEX_ERROR","message":"System.NullPointerException"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(upstreamBody))
	}))
	defer server.Close()

	creds := &mockCredentials{cred: liveCredential()}
	p := New(server.URL, creds, time.Second)

	resp, err := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})
	if err != nil {
		t.Fatalf("upstream 500 must not be a transport error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError || string(resp.Body) != upstreamBody {
		t.Errorf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if len(creds.invalidated) != 0 {
		t.Error("500 must not invalidate the credential")
	}
}

func TestForward_UnauthorizedInvalidatesCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`[{"errorCode":"INVALID_SESSION_ID","message":"Session expired or invalid"}]`))
	}))
	defer server.Close()

	creds := &mockCredentials{cred: liveCredential()}
	p := New(server.URL, creds, time.Second)

	resp, err := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 relayed, got %d", resp.StatusCode)
	}
	if len(creds.invalidated) != 1 || creds.invalidated[0] != "00Dxx!live" {
		t.Errorf("expected credential invalidated once, got %v", creds.invalidated)
	}
	if creds.resolves != 1 {
		t.Errorf("401 must not be retried, got %d resolves", creds.resolves)
	}
}

func TestForward_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := New(url, &mockCredentials{cred: liveCredential()}, time.Second)
	_, err := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Err == nil || te.Error() == "" {
		t.Error("expected underlying error message")
	}
}

func TestForward_UpstreamTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := New(server.URL, &mockCredentials{cred: liveCredential()}, 20*time.Millisecond)
	_, err := p.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/pending"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
}
