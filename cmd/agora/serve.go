package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/restapi"
)

var (
	serveAddr      string
	serveSecret    string
	serveRelayURL  string
	serveTokenTTL  time.Duration
	serveMailboxSz int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST façade that fronts a relay connection for non-Go callers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveSecret, "jwt-secret", "", "HS256 secret for session tokens (falls back to AGORA_JWT_SECRET)")
	serveCmd.Flags().StringVar(&serveRelayURL, "relay", "", "relay URL the façade connects sessions to (required)")
	serveCmd.Flags().DurationVar(&serveTokenTTL, "token-ttl", time.Hour, "session token lifetime")
	serveCmd.Flags().IntVar(&serveMailboxSz, "mailbox-size", 64, "per-session inbound mailbox size")
}

func runServe(cmd *cobra.Command, args []string) error {
	secret := serveSecret
	if secret == "" {
		secret = os.Getenv("AGORA_JWT_SECRET")
	}
	if secret == "" {
		return printFailureAndReturn(fail("jwt_secret_required", nil))
	}
	if serveRelayURL == "" {
		return printFailureAndReturn(fail("relay_url_required", nil))
	}

	srv := restapi.NewServer(restapi.Config{
		Secret:      []byte(secret),
		RelayURL:    serveRelayURL,
		MailboxSize: serveMailboxSz,
		TokenTTL:    serveTokenTTL,
	})

	httpSrv := &http.Server{Addr: serveAddr, Handler: srv.Handler()}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return printFailureAndReturn(fail("listen_failed", err))
	}
	return nil
}
