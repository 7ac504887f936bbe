package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a systemd user service",
	Long: `Install the naviscribe daemon as a systemd user service that runs on login.

This command will:
  - Generate a systemd unit for the naviscribe daemon
  - Install it to $XDG_CONFIG_HOME/systemd/user/
  - Reload systemd and enable the service
  - Start the daemon

The daemon will run in the background and report what MPD plays to the
server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		logPath := daemon.GetDefaultLogPath()
		if err := os.MkdirAll(logPath, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		unit, err := daemon.GenerateUnit(daemon.UnitConfig{
			BinaryPath:       binaryPath,
			LogPath:          logPath,
			WorkingDirectory: home,
		})
		if err != nil {
			return fmt.Errorf("failed to generate unit: %w", err)
		}

		unitPath := daemon.GetUnitPath()
		if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
			return fmt.Errorf("failed to create systemd user directory: %w", err)
		}

		if _, err := os.Stat(unitPath); err == nil {
			fmt.Fprintln(out, "Daemon is already installed. Stopping it first...")
			if err := systemctl("stop", daemon.UnitName); err != nil {
				fmt.Fprintf(out, "Warning: failed to stop existing daemon: %v\n", err)
			}
		}

		if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		fmt.Fprintf(out, "✓ Installed unit to %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			return err
		}
		if err := systemctl("enable", "--now", daemon.UnitName); err != nil {
			return err
		}

		fmt.Fprintln(out, "✓ Daemon enabled and started successfully")
		fmt.Fprintf(out, "✓ Logs will be written to %s\n", logPath)
		fmt.Fprintln(out, "\nYou can check the daemon status with:")
		fmt.Fprintln(out, "  systemctl --user status naviscribe")
		fmt.Fprintln(out, "\nTo uninstall, run:")
		fmt.Fprintln(out, "  naviscribe uninstall")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// systemctl runs systemctl against the user manager.
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("systemctl %s failed: %s", strings.Join(args, " "), msg)
		}
		return fmt.Errorf("failed to run systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
