// test_jwt_bearer_assertion.go
//
// Manual check for the JWT bearer strategy.
// Verifies assertion signing locally, then (optionally) the exchange against a real org.
//
// Usage:
//   go run test/manual/test_jwt_bearer_assertion.go
//   SF_INSTANCE_URL=... SF_CLIENT_ID=... SF_USERNAME=... SF_JWT_PRIVATE_KEY_FILE=server.key \
//     go run test/manual/test_jwt_bearer_assertion.go
//
// What it tests:
//   1. Assertion signed with a generated RSA key verifies and carries iss/sub/aud/iat/exp
//   2. Assertion lifetime is exactly 180 seconds
//   3. With real configuration: the token endpoint accepts the assertion
//
// Step 3 is skipped unless SF_JWT_PRIVATE_KEY or SF_JWT_PRIVATE_KEY_FILE is set.

package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/auth"
	"github.com/erauner12/shopnow-proxy/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	fmt.Println("=" + strings.Repeat("=", 69))
	fmt.Println("  JWT Bearer Assertion Check")
	fmt.Println("=" + strings.Repeat("=", 69))
	fmt.Println()

	passed := 0
	failed := 0

	// Test 1: sign with a generated key and verify the claims
	fmt.Println("Test 1: Sign assertion with generated RSA key")
	fmt.Println("-" + strings.Repeat("-", 69))

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		fmt.Printf("  FAIL: Failed to generate RSA key: %v\n", err)
		os.Exit(1)
	}
	pkcs8Bytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		fmt.Printf("  FAIL: Failed to marshal PKCS#8: %v\n", err)
		os.Exit(1)
	}
	pemBlock := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8Bytes})

	strategy := auth.NewJWTBearerStrategy(config.Salesforce{
		InstanceURL:   "https://login.salesforce.com",
		ClientID:      "3MVG9-manual-check",
		Username:      "manual@example.com",
		JWTPrivateKey: string(pemBlock),
	}, nil)
	if err := strategy.KeyError(); err != nil {
		fmt.Printf("  FAIL: generated key rejected: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().Truncate(time.Second)
	assertion, err := strategy.BuildAssertion(now)
	if err != nil {
		fmt.Printf("  FAIL: BuildAssertion failed: %v\n", err)
		failed++
	} else {
		token, err := jwt.Parse(assertion, func(t *jwt.Token) (interface{}, error) {
			return &privateKey.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil {
			fmt.Printf("  FAIL: assertion did not verify: %v\n", err)
			failed++
		} else {
			claims := token.Claims.(jwt.MapClaims)
			fmt.Printf("  Header: %v\n", token.Header)
			fmt.Printf("  iss=%v sub=%v aud=%v\n", claims["iss"], claims["sub"], claims["aud"])
			fmt.Println("  OK: Assertion verifies with RS256")
			passed++

			// Test 2: lifetime
			fmt.Println()
			fmt.Println("Test 2: Assertion lifetime")
			fmt.Println("-" + strings.Repeat("-", 69))
			iat, _ := claims.GetIssuedAt()
			exp, _ := claims.GetExpirationTime()
			if iat == nil || exp == nil || exp.Sub(iat.Time) != auth.AssertionLifetime {
				fmt.Printf("  FAIL: expected %v between iat and exp\n", auth.AssertionLifetime)
				failed++
			} else {
				fmt.Printf("  OK: exp - iat = %v\n", exp.Sub(iat.Time))
				passed++
			}
		}
	}
	fmt.Println()

	// Test 3: exchange against the configured org
	fmt.Println("Test 3: Exchange against configured org")
	fmt.Println("-" + strings.Repeat("-", 69))

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("  FAIL: config.Load failed: %v\n", err)
		failed++
	} else if cfg.Salesforce.JWTPrivateKey == "" {
		fmt.Println("  SKIP: no SF_JWT_PRIVATE_KEY configured")
	} else {
		live := auth.NewJWTBearerStrategy(cfg.Salesforce, &http.Client{Timeout: cfg.Server.TokenTimeout})
		if err := live.KeyError(); err != nil {
			fmt.Printf("  FAIL: configured key rejected: %v\n", err)
			failed++
		} else if cred, err := live.Attempt(context.Background()); err != nil {
			fmt.Printf("  FAIL: exchange failed: %v\n", err)
			failed++
		} else {
			fmt.Printf("  OK: obtained %s credential, expires %s\n", cred.Source, cred.ExpiresAt.Format(time.RFC3339))
			passed++
		}
	}
	fmt.Println()

	// Summary
	fmt.Println("=" + strings.Repeat("=", 69))
	fmt.Printf("  Results: %d passed, %d failed\n", passed, failed)
	fmt.Println("=" + strings.Repeat("=", 69))

	if failed > 0 {
		os.Exit(1)
	}
}
