package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

var (
	loginURL      string
	loginUser     string
	loginPassword string
	loginAuthMode string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect naviscribe to a Subsonic server",
	Long: `Connect naviscribe to a Subsonic compatible server such as Navidrome.

This command will:
1. Prompt for the server URL, username and password (unless given as flags)
2. Check them with a ping against the server
3. Save them to the config file

Servers that reject token authentication need --auth-mode plain.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginURL, "url", "", "Server URL, e.g. https://music.example.com")
	loginCmd.Flags().StringVar(&loginUser, "username", "", "Account name")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	loginCmd.Flags().StringVar(&loginAuthMode, "auth-mode", "", "How the password is sent (token, plain)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, "Subsonic Server Login")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	if cfg.Server.URL, err = promptValue(reader, out, "Server URL", loginURL, cfg.Server.URL); err != nil {
		return err
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	if cfg.Server.Username, err = promptValue(reader, out, "Username", loginUser, cfg.Server.Username); err != nil {
		return err
	}
	// Never offer the stored password as a default.
	if cfg.Server.Password, err = promptValue(reader, out, "Password", loginPassword, ""); err != nil {
		return err
	}
	if loginAuthMode != "" {
		cfg.Server.AuthMode = loginAuthMode
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	api, err := subsonic.NewClient(subsonic.Config{
		Source:     subsonic.StaticSource(cfg.SubsonicServer()),
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	fmt.Fprintln(out, "\nChecking credentials...")
	if err := api.Catalog().Ping(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Logged in to %s as %s\n", cfg.Server.URL, cfg.Server.Username)
	fmt.Fprintf(out, "✓ Settings saved to %s\n", path)
	fmt.Fprintln(out, "\nYou can now use 'naviscribe daemon' to start scrobbling.")
	return nil
}

// promptValue returns flagValue if set, otherwise asks for a value and
// falls back to current on empty input.
func promptValue(reader *bufio.Reader, out io.Writer, label, flagValue, current string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if current != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	value, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || value == "") {
		if current != "" {
			return current, nil
		}
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = current
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}
