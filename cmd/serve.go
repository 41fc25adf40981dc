// File: cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/certmint/internal/certauth"
	"github.com/xkilldash9x/certmint/internal/network"
	"github.com/xkilldash9x/certmint/internal/observability"
)

// newServeCmd creates and configures the `serve` command, which runs the
// interception proxy backed by the certificate authority.
func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the TLS interception proxy",
		Long: `Runs an HTTP proxy that terminates TLS for every CONNECT target with
a certificate minted by the root authority. Clients that trust the root
certificate see a valid chain for any intercepted host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Proxy.Addr = addr
			}

			logger := observability.GetLogger()

			ca, err := certauth.New(cfg.CA, logger)
			if err != nil {
				return err
			}
			logger.Info("Certificate authority ready",
				zap.String("root", cfg.CA.RootFile),
				zap.String("certs_dir", cfg.CA.CertsDir))

			proxy := network.NewInterceptionProxy(ca, cfg.Proxy.Verbose, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return proxy.Start(ctx, cfg.Proxy.Addr)
		},
	}

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address for the proxy")
	return serveCmd
}
