package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mithrel/craftforum/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the forum HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v := app.Cfg
			applyConfigFlagOverrides(cmd, v, map[string]string{"listen": "http_addr", "tls-domain": "tls.domains"})
			if strings.TrimSpace(v.GetString("auth.jwt_secret")) == "" {
				return fmt.Errorf("auth.jwt_secret is required to serve")
			}

			srv := server.New(v, app.Forum, app.Log)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if domains := v.GetStringSlice("tls.domains"); len(domains) > 0 {
				return serveTLS(ctx, app.Log, srv.Router(), domains, v.GetString("tls.email"), v.GetString("data_dir"))
			}

			addr := v.GetString("http_addr")
			httpSrv := &http.Server{Addr: addr, Handler: srv.Router(), ReadHeaderTimeout: 10 * time.Second}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "craftforum listening on %s\n", addr)
			return runHTTP(ctx, app.Log, httpSrv)
		},
	}
	cmd.Flags().String("listen", "", "listen address (override config http_addr)")
	cmd.Flags().StringSlice("tls-domain", nil, "serve HTTPS for these domains (override config tls.domains)")
	return cmd
}

// runHTTP serves until ctx is done, then shuts down gracefully.
func runHTTP(ctx context.Context, log *zap.Logger, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down", zap.String("addr", srv.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// serveTLS obtains and renews certificates for domains and serves on :443,
// redirecting :80.
func serveTLS(ctx context.Context, log *zap.Logger, h http.Handler, domains []string, email, dataDir string) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = email
	certmagic.Default.Logger = log
	if dataDir != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: filepath.Join(dataDir, "certmagic")}
	}
	log.Info("serving https", zap.Strings("domains", domains))
	errc := make(chan error, 1)
	go func() { errc <- certmagic.HTTPS(domains, h) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}
