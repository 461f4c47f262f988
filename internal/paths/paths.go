// Package paths provides sudo-aware path resolution for signalstamp.
//
// When running with sudo, these functions resolve to the original user's
// directories (via SUDO_USER) instead of root's.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		u, err := user.Lookup(sudoUser)
		if err == nil {
			return u.HomeDir, nil
		}
	}

	return os.UserHomeDir()
}

// UserConfigDir returns ~/.config for the actual user.
func UserConfigDir() (string, error) {
	homeDir, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config"), nil
}

// AppDir returns ~/.config/signalstamp for the actual user.
func AppDir() (string, error) {
	configDir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "signalstamp"), nil
}

// ConfigPath returns ~/.config/signalstamp/config.toml.
func ConfigPath() (string, error) {
	return inAppDir("config.toml")
}

// HistoryPath returns ~/.config/signalstamp/history.db.
func HistoryPath() (string, error) {
	return inAppDir("history.db")
}

// LogPath returns ~/.config/signalstamp/logs/signalstamp.log.
func LogPath() (string, error) {
	return inAppDir("logs", "signalstamp.log")
}

// ExpandHome replaces a leading ~ with the actual user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ActualUser returns the actual username (not root when using sudo).
func ActualUser() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		return sudoUser
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func inAppDir(elem ...string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}
