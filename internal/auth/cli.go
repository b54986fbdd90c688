package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// CLIStrategy asks the local Salesforce CLI for the default org's session via
// `sf org display --json`.
type CLIStrategy struct {
	path      string
	targetOrg string
	timeout   time.Duration
	now       func() time.Time
}

// NewCLIStrategy creates the strategy; an empty path makes it ineligible
func NewCLIStrategy(path, targetOrg string, timeout time.Duration) *CLIStrategy {
	return &CLIStrategy{
		path:      path,
		targetOrg: targetOrg,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *CLIStrategy) Name() string { return "sf_cli" }

// orgDisplay is the subset of `sf org display --json` we read
type orgDisplay struct {
	Status  *int   `json:"status"`
	Message string `json:"message"`
	Result  *struct {
		AccessToken string `json:"accessToken"`
		InstanceURL string `json:"instanceUrl"`
		Username    string `json:"username"`
	} `json:"result"`
}

// Attempt shells out to the CLI and parses its JSON output
func (s *CLIStrategy) Attempt(ctx context.Context) (Credential, error) {
	if s.path == "" {
		return Credential{}, ConfigIncompleteError{Strategy: s.Name(), Missing: []string{"SF_CLI_PATH"}}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := []string{"org", "display", "--json"}
	if s.targetOrg != "" {
		args = append(args, "--target-org", s.targetOrg)
	}

	issuedAt := s.now()
	out, err := execCommandContext(ctx, s.path, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// binary missing, not executable, or killed by the timeout
			return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonToolUnavailable, Err: err}
		}
		// sf exits non-zero but still prints a JSON envelope; fall through to parse it
		if len(out) == 0 {
			return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonToolUnavailable, Err: err}
		}
	}

	return s.parse(out, issuedAt)
}

func (s *CLIStrategy) parse(out []byte, issuedAt time.Time) (Credential, error) {
	var display orgDisplay
	if err := json.Unmarshal(out, &display); err != nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonMalformedOutput, Err: err}
	}

	if display.Status == nil {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonMalformedOutput, Err: errors.New("missing status")}
	}
	if *display.Status != 0 {
		msg := strings.TrimSpace(display.Message)
		return Credential{}, StrategyError{
			Strategy: s.Name(),
			Reason:   ReasonMalformedOutput,
			Err:      fmt.Errorf("status %d: %s", *display.Status, msg),
		}
	}

	if display.Result == nil || display.Result.AccessToken == "" {
		return Credential{}, StrategyError{Strategy: s.Name(), Reason: ReasonNoTokenField}
	}

	return newCredential(display.Result.AccessToken, SourceCLIFlow, issuedAt), nil
}
