// File: cmd/ca.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/certmint/internal/certauth"
	"github.com/xkilldash9x/certmint/internal/config"
)

// newCACmd creates and configures the `ca` command, which generates (or
// reuses) the self-signed root certificate.
func newCACmd() *cobra.Command {
	var (
		name  string
		force bool
	)

	caCmd := &cobra.Command{
		Use:   "ca [output-file]",
		Short: "Generate a self-signed root certificate",
		Long: `Generates a 2048-bit RSA root certificate authority and writes its
private key and certificate, concatenated in PEM form, to the output file.
An existing root is reused unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path := cfg.CA.RootFile
			if len(args) == 1 {
				path = args[0]
			}
			if cmd.Flags().Changed("name") {
				cfg.CA.Name = name
			}

			created, _, err := certauth.LoadOrCreateRoot(path, cfg.CA.Name, force || cfg.CA.Force)
			if err != nil {
				return fmt.Errorf("generate root certificate: %w", err)
			}

			// "already exists" is informational, not an error.
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created new root cert: %q\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Root cert %q already exists, use -f to overwrite\n", path)
			}
			return nil
		},
	}

	caCmd.Flags().StringVarP(&name, "name", "n", config.DefaultAuthorityName, "common name for the root certificate")
	caCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing root certificate")
	return caCmd
}
