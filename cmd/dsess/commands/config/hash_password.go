package config

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/marmos91/dittosession/internal/cli/prompt"
	"github.com/marmos91/dittosession/pkg/api/auth"
	"github.com/spf13/cobra"
)

var hashFromStdin bool

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash an admin password for api.admin.password_hash",
	Long: `Prompt for a password and print its bcrypt hash, ready to paste into
api.admin.password_hash.

Examples:
  dsess config hash-password

  # Non-interactive
  echo -n 's3cret-passw0rd' | dsess config hash-password --stdin`,
	Args: cobra.NoArgs,
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().BoolVar(&hashFromStdin, "stdin", false, "Read the password from standard input")
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var (
		password string
		err      error
	)
	if hashFromStdin {
		password, err = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && password == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")
	} else {
		password, err = prompt.NewPassword(auth.MinPasswordLength)
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
