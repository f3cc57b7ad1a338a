package commands

import (
	"fmt"

	"github.com/marmos91/dittosession/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample dsess configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/dsess/config.yaml.
Use --config to specify a custom path. The file gets a random JWT secret and
a random admin password, which is printed once.

Examples:
  # Initialize with default location
  dsess init

  # Initialize with custom path
  dsess init --config /etc/dsess/config.yaml

  # Force overwrite existing config
  dsess init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var (
		configPath string
		password   string
		err        error
	)
	if configFile != "" {
		password, err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, password, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintf(out, "\nAdmin password: %s\n", password)
	_, _ = fmt.Fprintln(out, "Please save this password. It will not be shown again.")
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to select a store")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: dsess serve")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: dsess serve --config %s\n", configPath)
	return nil
}
