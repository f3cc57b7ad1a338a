package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittosession/internal/cli/output"
	"github.com/marmos91/dittosession/internal/cli/prompt"
	"github.com/marmos91/dittosession/pkg/session"
	"github.com/spf13/cobra"
)

var (
	sessionOutput string
	deleteForce   bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and remove stored sessions",
	Long: `Work directly on the configured store. These commands open the store
themselves; use them against stores that allow a second client (postgres,
sql, s3) or while the server is stopped (badger).`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored session ids",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Show the metadata and attributes of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionInspect,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Invalidate a session and remove its attributes",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	sessionCmd.PersistentFlags().StringVarP(&sessionOutput, "output", "o", "table", "Output format (table|json|yaml)")
	sessionDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Do not ask for confirmation")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

// withManager runs fn against a manager opened on the configured store.
func withManager(fn func(ctx context.Context, m *session.Manager) error) error {
	cfg, err := loadForAdmin()
	if err != nil {
		return err
	}
	ctx := context.Background()
	manager, cleanup, err := openManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, manager)
}

type sessionList []string

func (l sessionList) Headers() []string { return []string{"ID"} }

func (l sessionList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, id := range l {
		rows[i] = []string{id}
	}
	return rows
}

func runSessionList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionOutput)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *session.Manager) error {
		ids, err := m.ListSessions(ctx)
		if err != nil {
			return err
		}
		if ids == nil {
			ids = []string{}
		}
		if format == output.FormatTable && len(ids) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
			return nil
		}
		return output.Print(cmd.OutOrStdout(), format, sessionList(ids))
	})
}

func runSessionInspect(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionOutput)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *session.Manager) error {
		info, err := m.Inspect(ctx, args[0])
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.Print(cmd.OutOrStdout(), format, info)
		}
		return printSessionInfo(cmd, info)
	})
}

func printSessionInfo(cmd *cobra.Command, info *session.Info) error {
	out := cmd.OutOrStdout()
	meta := info.Metadata

	expiry := "never"
	if meta.MaxInactiveInterval > 0 {
		expiry = meta.MaxInactiveInterval.String()
	}
	if err := output.PrintKeyValue(out, [][2]string{
		{"ID", info.ID},
		{"Created", meta.CreationTime.Local().Format(time.RFC3339)},
		{"Last accessed", humanize.Time(meta.LastAccessedTime)},
		{"Max inactive", expiry},
		{"Expired", strconv.FormatBool(info.Expired)},
	}); err != nil {
		return err
	}

	if len(info.Attributes) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo attributes")
		return nil
	}
	_, _ = fmt.Fprintln(out)
	table := output.NewTable("ID", "NAME", "SIZE")
	for _, a := range info.Attributes {
		table.AddRow(strconv.Itoa(int(a.ID)), a.Name, humanize.IBytes(uint64(a.Size)))
	}
	return output.PrintTable(out, table)
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete session %s", id), deleteForce)
	if err != nil || !ok {
		return err
	}
	return withManager(func(ctx context.Context, m *session.Manager) error {
		if err := m.InvalidateSession(ctx, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", id)
		return nil
	})
}
