package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the program configuration
type Config struct {
	MappingFile string `yaml:"mapping_file"`
	LockFile    string `yaml:"lock_file"`
	LocalDir    string `yaml:"local_dir"`
	LogDir      string `yaml:"log_dir"`
	Verbose     bool   `yaml:"verbose"`
	DryRun      bool   `yaml:"dry_run"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MappingFile: filepath.Join(dataDir(), "local_tracks.json"),
		LocalDir:    filepath.Join(homeDir(), "Music"),
		LogDir:      GetDefaultLogPath(),
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.MappingFile = ExpandHome(cfg.MappingFile)
	cfg.LockFile = ExpandHome(cfg.LockFile)
	cfg.LocalDir = ExpandHome(cfg.LocalDir)
	cfg.LogDir = ExpandHome(cfg.LogDir)

	return cfg, nil
}

// LockPath returns the advisory lock file guarding the mapping file.
func (c *Config) LockPath() string {
	if c.LockFile != "" {
		return c.LockFile
	}
	return c.MappingFile + ".lock"
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./yotolink.yaml",
		"./yotolink.yml",
		filepath.Join(home, ".config", "yotolink", "config.yaml"),
		filepath.Join(home, ".config", "yotolink", "config.yml"),
		filepath.Join(home, ".yotolink.yaml"),
		filepath.Join(home, ".yotolink.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "yotolink", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(dataDir(), "logs")
}

func dataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "yotolink")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MappingFile) == "" {
		return fmt.Errorf("mapping_file cannot be empty")
	}
	if info, err := os.Stat(c.MappingFile); err == nil && info.IsDir() {
		return fmt.Errorf("mapping_file %s is a directory", c.MappingFile)
	}
	if c.LockPath() == c.MappingFile {
		return fmt.Errorf("lock_file must differ from mapping_file")
	}
	return nil
}
