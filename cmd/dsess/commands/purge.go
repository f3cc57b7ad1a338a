package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/pkg/session"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired sessions",
	Long: `Run one pass of the expiration loop against the configured store and
report how many sessions were removed.

Examples:
  dsess purge --config /etc/dsess/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	return withManager(func(ctx context.Context, m *session.Manager) error {
		purged, err := m.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired session(s)\n", purged)
		return nil
	})
}
