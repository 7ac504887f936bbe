package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the daemon's systemd user service",
	Long: `Stop the naviscribe daemon and remove its systemd user service.

This command will:
  - Stop and disable the running daemon (if any)
  - Remove the unit file from $XDG_CONFIG_HOME/systemd/user/
  - Reload systemd

The session journal and state file are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		unitPath := daemon.GetUnitPath()

		if _, err := os.Stat(unitPath); os.IsNotExist(err) {
			fmt.Fprintln(out, "Daemon is not installed (unit not found)")
			return nil
		}

		fmt.Fprintln(out, "Stopping daemon...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Fprintf(out, "Warning: failed to stop daemon: %v\n", err)
			fmt.Fprintln(out, "Continuing with unit removal...")
		} else {
			fmt.Fprintln(out, "✓ Daemon stopped")
		}

		if err := os.Remove(unitPath); err != nil {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		fmt.Fprintf(out, "✓ Removed unit from %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}

		fmt.Fprintln(out, "\nThe naviscribe daemon has been uninstalled successfully.")
		fmt.Fprintln(out, "\nTo reinstall, run:")
		fmt.Fprintln(out, "  naviscribe install")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
