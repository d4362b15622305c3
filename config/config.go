// Package config loads the client configuration from YAML, fills defaults
// and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lev "github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"tn5250/codec"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "TN5250_CONFIG"

// DefaultPath is read from the working directory when EnvPath is unset.
const DefaultPath = "tn5250.yaml"

// UI modes.
const (
	UIModeTview    = "tview"
	UIModeANSI     = "ansi"
	UIModeHeadless = "headless"
)

var uiModes = []string{UIModeTview, UIModeANSI, UIModeHeadless}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config represents the complete client configuration
type Config struct {
	Host     HostConfig     `yaml:"host"`
	Terminal TerminalConfig `yaml:"terminal"`
	Session  SessionConfig  `yaml:"session"`
	UI       UIConfig       `yaml:"ui"`
	Trace    TraceConfig    `yaml:"trace"`
	Logging  LoggingConfig  `yaml:"logging"`

	// LoadedFrom is the file or directory the configuration came from; empty
	// when only defaults apply.
	LoadedFrom string `yaml:"-"`
}

// HostConfig names the IBM i host.
type HostConfig struct {
	Address            string `yaml:"address"`
	Port               int    `yaml:"port"`
	DialTimeoutSeconds int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
}

// TerminalConfig describes the emulated device. MachineType and Model
// override the values derived from Type.
type TerminalConfig struct {
	Type        string `yaml:"type"`
	CodePage    string `yaml:"code_page"`
	MachineType string `yaml:"machine_type"`
	Model       string `yaml:"model"`
}

// SessionConfig controls reconnects.
type SessionConfig struct {
	Reconnect             bool `yaml:"reconnect"`
	InitialBackoffSeconds int  `yaml:"initial_backoff_seconds"`
	MaxBackoffSeconds     int  `yaml:"max_backoff_seconds"`
}

// UIConfig selects the front end.
type UIConfig struct {
	Mode      string `yaml:"mode"`
	Color     bool   `yaml:"color"`
	RefreshMS int    `yaml:"refresh_ms"`
}

// TraceConfig enables the SQLite session trace.
type TraceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Snapshots bool   `yaml:"snapshots"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	ProtocolDebug bool   `yaml:"protocol_debug"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Purpose: Read configuration from a YAML file or a directory of them.
// Key aspects: Directory files are merged in name order; defaults are
// applied but Validate is left to the caller.
// Upstream: main.loadConfig.
// Downstream: yaml.Unmarshal, applyDefaults.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = yamlFiles(path)
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(file), err)
		}
	}
	cfg.LoadedFrom = path
	cfg.applyDefaults()
	return &cfg, nil
}

// Resolve picks the config path: EnvPath if set, else DefaultPath if it
// exists. An empty result means defaults only.
func Resolve() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func (c *Config) applyDefaults() {
	if c.Host.Port == 0 {
		c.Host.Port = 23
	}
	if c.Host.DialTimeoutSeconds <= 0 {
		c.Host.DialTimeoutSeconds = 30
	}
	if c.Terminal.Type == "" {
		c.Terminal.Type = "IBM-3477-FC"
	}
	if c.Terminal.CodePage == "" {
		c.Terminal.CodePage = codec.DefaultCodePage
	}
	c.Terminal.CodePage = strings.ToLower(strings.TrimSpace(c.Terminal.CodePage))
	if c.Session.InitialBackoffSeconds <= 0 {
		c.Session.InitialBackoffSeconds = 5
	}
	if c.Session.MaxBackoffSeconds <= 0 {
		c.Session.MaxBackoffSeconds = 60
	}
	if c.Session.MaxBackoffSeconds < c.Session.InitialBackoffSeconds {
		c.Session.MaxBackoffSeconds = c.Session.InitialBackoffSeconds
	}
	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
	if c.UI.Mode == "" {
		c.UI.Mode = UIModeTview
	}
	if c.UI.RefreshMS <= 0 {
		c.UI.RefreshMS = 50
	}
	if c.Trace.Path == "" {
		c.Trace.Path = filepath.Join("data", "trace", "session.db")
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = filepath.Join("data", "logs")
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

// Validate reports the first problem found. Unknown names come with a
// suggestion.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host.Address) == "" {
		return fmt.Errorf("%w: host.address is required", ErrInvalid)
	}
	if c.Host.Port < 1 || c.Host.Port > 65535 {
		return fmt.Errorf("%w: host.port %d out of range", ErrInvalid, c.Host.Port)
	}
	if c.Host.ReadTimeoutSeconds < 0 {
		return fmt.Errorf("%w: host.read_timeout_seconds must be >= 0", ErrInvalid)
	}
	if _, err := codec.Lookup(c.Terminal.CodePage); err != nil {
		return fmt.Errorf("%w: terminal.code_page %q%s: %w", ErrInvalid, c.Terminal.CodePage,
			didYouMean(c.Terminal.CodePage, codec.Names()), err)
	}
	if !contains(uiModes, c.UI.Mode) {
		return fmt.Errorf("%w: ui.mode %q%s", ErrInvalid, c.UI.Mode, didYouMean(c.UI.Mode, uiModes))
	}
	return nil
}

// didYouMean returns a hint naming the closest candidate, or "" when nothing
// is close enough to be a likely typo.
func didYouMean(got string, candidates []string) string {
	best, bestDist := "", -1
	for _, cand := range candidates {
		d := lev.ComputeDistance(strings.ToLower(got), cand)
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best == "" || bestDist > max(2, len(best)/2) {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DialTimeout and the other helpers convert the second counts to durations.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Host.DialTimeoutSeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Host.ReadTimeoutSeconds) * time.Second
}

func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Session.InitialBackoffSeconds) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Session.MaxBackoffSeconds) * time.Second
}

func (c *Config) Refresh() time.Duration {
	return time.Duration(c.UI.RefreshMS) * time.Millisecond
}

// Print displays the configuration
func (c *Config) Print() {
	if c.LoadedFrom != "" {
		fmt.Printf("Config: %s\n", c.LoadedFrom)
	} else {
		fmt.Printf("Config: built-in defaults\n")
	}
	fmt.Printf("Host: %s:%d (dial timeout %ds)\n", c.Host.Address, c.Host.Port, c.Host.DialTimeoutSeconds)
	fmt.Printf("Terminal: %s code page %s\n", c.Terminal.Type, c.Terminal.CodePage)
	if c.Session.Reconnect {
		fmt.Printf("Reconnect: backoff %ds..%ds\n", c.Session.InitialBackoffSeconds, c.Session.MaxBackoffSeconds)
	}
	fmt.Printf("UI: %s (color=%t refresh=%dms)\n", c.UI.Mode, c.UI.Color, c.UI.RefreshMS)
	if c.Trace.Enabled {
		fmt.Printf("Trace: %s (snapshots=%t)\n", c.Trace.Path, c.Trace.Snapshots)
	}
	if c.Logging.Enabled {
		fmt.Printf("Logging: %s (retention %d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
}
