package daemon

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/adrg/xdg"
)

// UnitName is the systemd user unit installed by "naviscribe install".
const UnitName = "naviscribe.service"

const unitTemplate = `[Unit]
Description=naviscribe scrobbler for Subsonic servers
After=network-online.target mpd.service
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon --log-file {{.LogPath}}/naviscribe.log
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// UnitConfig holds the configuration for generating a systemd unit
type UnitConfig struct {
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
}

// GenerateUnit generates a systemd user unit from the template
func GenerateUnit(config UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// GetUnitPath returns the path where the unit should be installed
func GetUnitPath() string {
	return filepath.Join(xdg.ConfigHome, "systemd", "user", UnitName)
}

// GetDefaultLogPath returns the default directory for daemon logs
func GetDefaultLogPath() string {
	return filepath.Join(xdg.DataHome, "naviscribe", "logs")
}

// GetDefaultDataDir returns the directory for the state file and journal
func GetDefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "naviscribe")
}
