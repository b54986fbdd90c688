// Command sftoken runs the proxy's credential strategies once and reports which
// one produced a usable Salesforce credential.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/auth"
	"github.com/erauner12/shopnow-proxy/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "sftoken",
		Short:        "Inspect the credential the ShopNow proxy would use",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"}).Level(level)
			zerolog.DefaultContextLogger = &log.Logger
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every strategy attempt")

	root.AddCommand(newResolveCmd(config.Load))
	return root
}

type resolveOutput struct {
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Token     string     `json:"token,omitempty"`
}

func newResolveCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		showToken bool
		asJSON    bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Run the strategy chain once and print the winning source",
		Long: `Runs session token, password, JWT bearer and Salesforce CLI strategies
in the same order as the proxy server. Prints "offline" when none succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			strategies := auth.DefaultStrategies(cfg.Salesforce, cfg.Server.TokenTimeout, cfg.Server.CLITimeout)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cred := auth.NewBroker(auth.NewTokenCache(), strategies...).Resolve(ctx)
			return printCredential(cmd.OutOrStdout(), cred, showToken, asJSON)
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "print the bearer value (sensitive)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall resolution deadline")
	return cmd
}

func printCredential(w io.Writer, cred auth.Credential, showToken, asJSON bool) error {
	out := resolveOutput{Source: cred.Source.String()}
	if !cred.ExpiresAt.IsZero() {
		exp := cred.ExpiresAt
		out.ExpiresAt = &exp
	}
	if showToken && !cred.IsOffline() {
		out.Token = cred.Value
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "source:  %s\n", out.Source)
	if out.ExpiresAt != nil {
		fmt.Fprintf(w, "expires: %s\n", out.ExpiresAt.Format(time.RFC3339))
	}
	if out.Token != "" {
		fmt.Fprintf(w, "token:   %s\n", out.Token)
	}
	return nil
}
