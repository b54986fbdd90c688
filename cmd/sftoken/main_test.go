package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/erauner12/shopnow-proxy/internal/config"
)

func TestResolveCmd_SessionToken(t *testing.T) {
	load := func() (config.Config, error) {
		cfg := config.Default()
		cfg.Salesforce.SessionToken = "00D!from-env"
		cfg.Salesforce.CLIFallback = false
		return cfg, nil
	}

	var out bytes.Buffer
	cmd := newResolveCmd(load)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var got resolveOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if got.Source != "cli" {
		t.Errorf("expected cli source, got %s", got.Source)
	}
	if got.Token != "" {
		t.Error("token must not be printed without --show-token")
	}
	if got.ExpiresAt == nil {
		t.Error("expected expiry")
	}
}

func TestResolveCmd_OfflineShowToken(t *testing.T) {
	load := func() (config.Config, error) {
		cfg := config.Default()
		cfg.Salesforce.CLIFallback = false
		return cfg, nil
	}

	var out bytes.Buffer
	cmd := newResolveCmd(load)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--show-token"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out.String(), "source:  offline") {
		t.Errorf("expected offline source, got %q", out.String())
	}
	if strings.Contains(out.String(), "token:") {
		t.Error("offline sentinel must not be printed as a token")
	}
}
