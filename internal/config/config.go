package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// UpstreamRepo is the salt repository cloned by git installs.
const UpstreamRepo = "https://github.com/saltstack/salt.git"

const (
	defaultTimeout      = 5 * time.Minute
	defaultPollInterval = 25 * time.Millisecond
)

// Config holds persistent settings loaded from ~/.salt-bootstrap/config.yaml.
// Zero fields fall back to the defaults returned by the accessor methods.
type Config struct {
	TempDir          string   `yaml:"temp_dir,omitempty"`
	LogFile          string   `yaml:"log_file,omitempty"`
	LogLevel         string   `yaml:"log_level,omitempty"`
	Color            string   `yaml:"color,omitempty"` // "auto" | "always" | "never"
	Repo             string   `yaml:"repo,omitempty"`
	Ref              string   `yaml:"ref,omitempty"`
	Virtualenv       string   `yaml:"virtualenv,omitempty"`
	VirtualenvPython string   `yaml:"virtualenv_python,omitempty"`
	CommandTimeout   Duration `yaml:"command_timeout,omitempty"`
	PollInterval     Duration `yaml:"poll_interval,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s", "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// IsZero lets omitempty drop unset durations.
func (d Duration) IsZero() bool { return d.Duration == 0 }

// DefaultPath returns the default config file path: ~/.salt-bootstrap/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".salt-bootstrap", "config.yaml")
}

// BaseTempDir is $TMPDIR, except on macOS where $TMPDIR is a randomized
// per-user directory under /var/folders; /tmp keeps the bootstrap temp dir
// and log file at the same short path across users and reboots.
func BaseTempDir() string {
	if runtime.GOOS == "darwin" {
		return "/tmp"
	}
	return os.TempDir()
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) TempDirOrDefault() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return filepath.Join(BaseTempDir(), "salt-bootstrap")
}

func (c *Config) LogFileOrDefault() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(BaseTempDir(), "salt-bootstrap.log")
}

func (c *Config) LogLevelOrDefault() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}

func (c *Config) ColorOrDefault() string {
	if c.Color != "" {
		return c.Color
	}
	return "auto"
}

func (c *Config) RepoOrDefault() string {
	if c.Repo != "" {
		return c.Repo
	}
	return UpstreamRepo
}

// CommandTimeoutOrDefault bounds every command run during an install.
func (c *Config) CommandTimeoutOrDefault() time.Duration {
	if c.CommandTimeout.Duration > 0 {
		return c.CommandTimeout.Duration
	}
	return defaultTimeout
}

func (c *Config) PollIntervalOrDefault() time.Duration {
	if c.PollInterval.Duration > 0 {
		return c.PollInterval.Duration
	}
	return defaultPollInterval
}
