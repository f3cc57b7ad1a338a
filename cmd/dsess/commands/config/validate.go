package config

import (
	"fmt"

	"github.com/marmos91/dittosession/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dsess configuration file.

Checks for syntax errors, missing required fields, invalid values and
combinations the server refuses to start with.

Examples:
  # Validate default config
  dsess config validate

  # Validate specific config file
  dsess config validate --config /etc/dsess/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.API.IsEnabled() && !cfg.API.AuthEnabled() {
		warnings = append(warnings, "JWT secret not configured - the session API is unauthenticated")
	}
	if cfg.Store.Type == config.StoreTypeMemory {
		warnings = append(warnings, "memory store selected - sessions are lost on restart")
	}
	if cfg.Session.MaxInactiveInterval == 0 {
		warnings = append(warnings, "max_inactive_interval is 0 - sessions never expire")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Store type:      %s\n", cfg.Store.Type)
	_, _ = fmt.Fprintf(out, "  Codec:           %s (compression: %s)\n", cfg.Marshal.Codec, cfg.Marshal.Compression)
	_, _ = fmt.Fprintf(out, "  Transactional:   %t\n", cfg.Session.Transactional)
	if cfg.API.IsEnabled() {
		_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.API.Port)
	}
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
