package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Nomadcxx/signalstamp/internal/logging"
	"github.com/Nomadcxx/signalstamp/internal/paths"
	"github.com/Nomadcxx/signalstamp/internal/transfer"
)

// EnvPrefix prefixes environment overrides, e.g. SIGNALSTAMP_INPUT_DIR.
const EnvPrefix = "SIGNALSTAMP"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	InputDir    string            `mapstructure:"input_dir"`
	OutputDir   string            `mapstructure:"output_dir"`
	Options     OptionsConfig     `mapstructure:"options"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Watch       WatchConfig       `mapstructure:"watch"`
	History     HistoryConfig     `mapstructure:"history"`
	Activity    ActivityConfig    `mapstructure:"activity"`
	Logging     logging.Config    `mapstructure:"logging"`
}

type OptionsConfig struct {
	DryRun     bool   `mapstructure:"dry_run"`
	OnConflict string `mapstructure:"on_conflict"`
	Backend    string `mapstructure:"backend"`
	Checksum   bool   `mapstructure:"checksum"`
}

type PermissionsConfig struct {
	// Modes are strings in octal (e.g., "0644" or "644"). Empty means preserve source.
	FileMode string `mapstructure:"file_mode"`
	DirMode  string `mapstructure:"dir_mode"`
}

type WatchConfig struct {
	Debounce string `mapstructure:"debounce"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ActivityConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		InputDir:  "input",
		OutputDir: "output",
		Options: OptionsConfig{
			DryRun:     false,
			OnConflict: "overwrite",
			Backend:    "auto",
			Checksum:   false,
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},
		Activity: ActivityConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the configuration file at path (or the default location when
// path is empty), applies SIGNALSTAMP_* environment overrides and returns the
// result on top of the defaults. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("unable to get config path: %w", err)
		}
		path = p
	}
	v.SetConfigFile(path)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file does not mention them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("options.dry_run", d.Options.DryRun)
	v.SetDefault("options.on_conflict", d.Options.OnConflict)
	v.SetDefault("options.backend", d.Options.Backend)
	v.SetDefault("options.checksum", d.Options.Checksum)
	v.SetDefault("permissions.file_mode", d.Permissions.FileMode)
	v.SetDefault("permissions.dir_mode", d.Permissions.DirMode)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("activity.enabled", d.Activity.Enabled)
	v.SetDefault("activity.retention_days", d.Activity.RetentionDays)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	var problems []string

	in := strings.TrimSpace(c.InputDir)
	out := strings.TrimSpace(c.OutputDir)
	if in == "" {
		problems = append(problems, "input_dir is empty")
	}
	if out == "" {
		problems = append(problems, "output_dir is empty")
	}
	if in != "" && out != "" && sameDir(in, out) {
		problems = append(problems, "input_dir and output_dir are the same directory")
	}
	if _, err := c.ConflictPolicy(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Backend(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.DebounceDuration(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Permissions.ParseFileMode(); err != nil {
		problems = append(problems, fmt.Sprintf("permissions.file_mode: %v", err))
	}
	if _, err := c.Permissions.ParseDirMode(); err != nil {
		problems = append(problems, fmt.Sprintf("permissions.dir_mode: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func (c *Config) ConflictPolicy() (transfer.ConflictPolicy, error) {
	return transfer.ParseConflictPolicy(c.Options.OnConflict)
}

func (c *Config) Backend() (transfer.Backend, error) {
	return transfer.ParseBackend(c.Options.Backend)
}

// DebounceDuration parses watch.debounce; empty means 2s.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Watch.Debounce) == "" {
		return 2 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch.debounce must be positive, got %s", d)
	}
	return d, nil
}

// TransferOptions builds the relocation options from the configuration.
func (c *Config) TransferOptions() transfer.Options {
	opts := transfer.DefaultOptions()
	opts.Checksum = c.Options.Checksum
	if mode, err := c.Permissions.ParseFileMode(); err == nil && mode != 0 {
		opts.FileMode = mode
	}
	if mode, err := c.Permissions.ParseDirMode(); err == nil && mode != 0 {
		opts.DirMode = mode
	}
	return opts
}

// HistoryPath returns the database path, expanding ~ and falling back to
// ~/.config/signalstamp/history.db.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path == "" {
		return paths.HistoryPath()
	}
	return paths.ExpandHome(c.History.Path)
}

func (p *PermissionsConfig) ParseFileMode() (os.FileMode, error) {
	return parseMode(p.FileMode)
}

func (p *PermissionsConfig) ParseDirMode() (os.FileMode, error) {
	return parseMode(p.DirMode)
}

func parseMode(s string) (os.FileMode, error) {
	m := strings.TrimSpace(s)
	if m == "" {
		return 0, nil
	}
	if len(m) == 3 { // allow "644"
		m = "0" + m
	}
	v, err := strconv.ParseUint(m, 8, 32)
	if err != nil {
		return 0, err
	}
	if v > 0777 {
		return 0, fmt.Errorf("mode %s out of range", s)
	}
	return os.FileMode(v), nil
}

// Save writes the configuration to path (or the default location)
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	return os.WriteFile(path, []byte(c.ToTOML()), 0644)
}

func ConfigPath() (string, error) {
	return paths.ConfigPath()
}

func ConfigExists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (c *Config) ToTOML() string {
	return fmt.Sprintf(`# signalstamp configuration
# Generated by: signalstamp config init

# Directory holding signal-YYYY-MM-DD-HH-MM-SS-mmm.jpg exports
input_dir = %q

# Stamped files are moved here (created if missing)
output_dir = %q

[options]
dry_run = %t
# What to do when output_dir already has a file of the same name:
# overwrite | fail | rename (rename picks name-1.jpg, name-2.jpg, ...)
on_conflict = %q
# auto tries a rename and falls back to copy+verify across filesystems
# auto | rename | native
backend = %q
# Verify copied bytes with SHA-256 (native backend only)
checksum = %t

[permissions]
# Octal modes for moved files and created directories; empty keeps source
file_mode = %q
dir_mode = %q

[watch]
# How long a new file must stay unchanged before it is processed
debounce = %q

[history]
enabled = %t
# Empty means ~/.config/signalstamp/history.db
path = %q

[activity]
enabled = %t
retention_days = %d

[logging]
level = %q
# Empty means ~/.config/signalstamp/logs/signalstamp.log
file = %q
max_size_mb = %d
max_backups = %d
`,
		c.InputDir, c.OutputDir,
		c.Options.DryRun, c.Options.OnConflict, c.Options.Backend, c.Options.Checksum,
		c.Permissions.FileMode, c.Permissions.DirMode,
		c.Watch.Debounce,
		c.History.Enabled, c.History.Path,
		c.Activity.Enabled, c.Activity.RetentionDays,
		c.Logging.Level, c.Logging.File, c.Logging.MaxSizeMB, c.Logging.MaxBackups,
	)
}
