// Package config loads the static volume configuration. It is read once
// at startup and never written back.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nace/vcmounter/internal/system"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name searched for by Find
const FileName = "vc-mounter.yml"

// EnvConfig names the environment variable holding an explicit config path
const EnvConfig = "VCMNT_CFG"

var (
	// ErrNotFound is returned when no configuration file exists
	ErrNotFound = errors.New("config file not found")
	// ErrEngineNotExecutable is returned when the engine binary is missing
	ErrEngineNotExecutable = errors.New("engine not found or not executable")
	// ErrInvalid is returned for structurally broken configuration
	ErrInvalid = errors.New("invalid configuration")
)

// Defaults
const (
	DefaultApp          = "/usr/bin/veracrypt"
	DefaultUser         = "root"
	DefaultMountOptions = "users,suid,exec,async,nodiscard"
	DefaultSettleDelay  = time.Second
	DefaultMountScript  = "enc-hd-mount"
	DefaultUmountScript = "enc-hd-umount"
)

// Config is the parsed configuration file
type Config struct {
	App              string          `yaml:"app"`
	User             string          `yaml:"user"`
	MountOptions     MountOptionList `yaml:"mount_opts"`
	SettleDelay      time.Duration   `yaml:"settle_delay"`
	PIM              string          `yaml:"pim"`
	Hash             string          `yaml:"hash"`
	Encryption       string          `yaml:"encryption"`
	SelectHash       bool            `yaml:"select_hash"`
	SelectEncryption bool            `yaml:"select_encryption"`
	CPUGovernor      string          `yaml:"cpu_governor"`
	MountScript      string          `yaml:"mount_script"`
	UmountScript     string          `yaml:"umount_script"`
	Spindown         bool            `yaml:"spindown"`
	StopServices     []string        `yaml:"stop_services"`
	Volumes          VolumeList      `yaml:"volumes"`

	// Path is the file the configuration was loaded from
	Path string `yaml:"-"`
}

// Volume is one configured encrypted volume
type Volume struct {
	Name       string `yaml:"name"`
	Device     string `yaml:"dev"`
	MountPoint string `yaml:"mp"`

	// NoKernelCrypto overrides the solid-state detection when set
	NoKernelCrypto *bool `yaml:"nokernelcrypto,omitempty"`
}

// Default returns a configuration holding every default value
func Default() *Config {
	return &Config{
		App:          DefaultApp,
		User:         DefaultUser,
		MountOptions: ParseMountOptions(DefaultMountOptions),
		SettleDelay:  DefaultSettleDelay,
		MountScript:  DefaultMountScript,
		UmountScript: DefaultUmountScript,
		Spindown:     true,
	}
}

// Candidates returns the search path for the configuration file, most
// specific first. explicit (the --config flag) wins when non-empty.
func Candidates(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	var paths []string
	if env := os.Getenv(EnvConfig); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, FileName, "."+FileName)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+FileName))
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, FileName), filepath.Join(dir, "."+FileName))
	}
	paths = append(paths, filepath.Join("/etc", FileName))
	return paths
}

// Find returns the first existing candidate
func Find(explicit string) (string, error) {
	candidates := Candidates(explicit)
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return filepath.Abs(path)
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNotFound, strings.Join(candidates, ", "))
}

// Load finds, parses and validates the configuration
func Load(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses and validates the configuration at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path

	if !system.IsExecutable(cfg.App) {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotExecutable, cfg.App)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the volume set.
// It does not touch the filesystem.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the volume set and basic field sanity
func (c *Config) Validate() error {
	if c.App == "" {
		return fmt.Errorf("%w: app is empty", ErrInvalid)
	}
	if len(c.Volumes) == 0 {
		return fmt.Errorf("%w: no volumes configured", ErrInvalid)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%w: settle_delay must not be negative", ErrInvalid)
	}
	// a bare "mount_opts:" decodes to null and wipes the defaults
	if c.MountOptions == nil {
		c.MountOptions = ParseMountOptions(DefaultMountOptions)
	}

	seen := make(map[string]bool, len(c.Volumes))
	for i, v := range c.Volumes {
		if v.Name == "" {
			return fmt.Errorf("%w: volume #%d has no name", ErrInvalid, i+1)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate volume name %q", ErrInvalid, v.Name)
		}
		seen[v.Name] = true
		if v.Device == "" {
			return fmt.Errorf("%w: volume %q has no dev", ErrInvalid, v.Name)
		}
		if v.MountPoint == "" {
			return fmt.Errorf("%w: volume %q has no mp", ErrInvalid, v.Name)
		}
	}
	return nil
}

// Volume returns the named volume
func (c *Config) Volume(name string) (Volume, bool) {
	for _, v := range c.Volumes {
		if v.Name == name {
			return v, true
		}
	}
	return Volume{}, false
}
