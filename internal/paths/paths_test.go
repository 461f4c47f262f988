package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"
)

func TestUserHomeDir_NoSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	expected, _ := os.UserHomeDir()
	if got != expected {
		t.Errorf("UserHomeDir() = %q, want %q", got, expected)
	}
}

func TestUserHomeDir_WithSudoUser(t *testing.T) {
	currentUser, err := user.Current()
	if err != nil {
		t.Skip("Cannot get current user")
	}
	if currentUser.Username == "root" {
		t.Skip("SUDO_USER=root is ignored")
	}

	t.Setenv("SUDO_USER", currentUser.Username)

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}
	if got != currentUser.HomeDir {
		t.Errorf("UserHomeDir() = %q, want %q", got, currentUser.HomeDir)
	}
}

func TestUserHomeDir_NonexistentUser(t *testing.T) {
	t.Setenv("SUDO_USER", "nonexistent_user_12345")

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	expected, _ := os.UserHomeDir()
	if got != expected {
		t.Errorf("UserHomeDir() = %q, want %q", got, expected)
	}
}

func TestAppFiles(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".config", "signalstamp")

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", ConfigPath, filepath.Join(base, "config.toml")},
		{"history", HistoryPath, filepath.Join(base, "history.db")},
		{"log", LogPath, filepath.Join(base, "logs", "signalstamp.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()

	got, err := ExpandHome("~/photos/in")
	if err != nil {
		t.Fatalf("ExpandHome() error = %v", err)
	}
	if want := filepath.Join(home, "photos", "in"); got != want {
		t.Errorf("ExpandHome() = %q, want %q", got, want)
	}

	got, _ = ExpandHome("/abs/path")
	if got != "/abs/path" {
		t.Errorf("ExpandHome() changed absolute path: %q", got)
	}

	got, _ = ExpandHome("~user/path")
	if got != "~user/path" {
		t.Errorf("ExpandHome() changed ~user path: %q", got)
	}
}
