// File: cmd/host.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/certmint/internal/certauth"
	"github.com/xkilldash9x/certmint/internal/observability"
)

// newHostCmd creates and configures the `host` command, which issues (or
// reuses) a leaf certificate for a hostname, signed by the root.
func newHostCmd() *cobra.Command {
	var (
		rootFile string
		certsDir string
		force    bool
	)

	hostCmd := &cobra.Command{
		Use:   "host <hostname>",
		Short: "Issue a leaf certificate for a hostname",
		Long: `Issues a certificate for the given hostname, signed by the root
authority, and caches it under the certs directory as <hostname>.pem
(private key followed by certificate). The hostname is used verbatim as
the certificate's common name. A cached certificate is reused unless
--force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("use-root") {
				cfg.CA.RootFile = rootFile
			}
			if cmd.Flags().Changed("certs-dir") {
				cfg.CA.CertsDir = certsDir
			}

			ca, err := certauth.New(cfg.CA, observability.GetLogger())
			if err != nil {
				return err
			}

			hostname := args[0]
			created, path, err := ca.GetCertForHost(hostname, force || cfg.CA.Force)
			if err != nil {
				return fmt.Errorf("issue certificate for %q: %w", hostname, err)
			}

			// "already exists" is informational, not an error.
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created new cert %q signed by root cert %s\n", path, cfg.CA.RootFile)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cert %q already exists, use -f to overwrite\n", path)
			}
			return nil
		},
	}

	hostCmd.Flags().StringVarP(&rootFile, "use-root", "r", "", "path to the root certificate bundle")
	hostCmd.Flags().StringVarP(&certsDir, "certs-dir", "d", "", "directory for cached host certificates")
	hostCmd.Flags().BoolVarP(&force, "force", "f", false, "reissue even if a cached certificate exists")
	return hostCmd
}
