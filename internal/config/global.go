package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/atlas/config.yml.
type GlobalConfig struct {
	AtlasPath   string `yaml:"atlas_path,omitempty"` // Default repository when not inside one
	OllamaURL   string `yaml:"ollama_url,omitempty"`
	OllamaModel string `yaml:"ollama_model,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "atlas"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/atlas/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.AtlasPath != "" {
		cfg.AtlasPath = ExpandPath(cfg.AtlasPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetAtlasPath returns the configured default repository from global config.
func GetAtlasPath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.AtlasPath
}

// GetConfigValue returns the environment variable if set, otherwise fallback.
func GetConfigValue(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

// ErrAtlasPathNotConfigured is returned when atlas_path is not set in config.
var ErrAtlasPathNotConfigured = errors.New("atlas_path not configured")

// ErrAtlasPathNotExist is returned when the configured atlas_path is not a repository.
var ErrAtlasPathNotExist = errors.New("atlas_path is not an atlas repository")

// ValidateAtlasPath returns the atlas path from global config after validation.
func ValidateAtlasPath() (string, error) {
	path := GetAtlasPath()
	if path == "" {
		return "", ErrAtlasPathNotConfigured
	}
	if !IsRepository(path) {
		return "", fmt.Errorf("%w: %s", ErrAtlasPathNotExist, path)
	}
	return path, nil
}

// LocateRepository finds the repository containing start, falling back to the
// globally configured atlas_path.
func LocateRepository(start string) (string, error) {
	root, err := FindRepository(start)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, ErrNotRepository) {
		return "", err
	}
	if path, gerr := ValidateAtlasPath(); gerr == nil {
		return path, nil
	} else if errors.Is(gerr, ErrAtlasPathNotExist) {
		return "", gerr
	}
	return "", err
}

// HelpfulConfigMessage returns a helpful message when no repository is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No atlas repository found.

Run 'atlas init' to create one here, or create %s to set a default:
  mkdir -p %s
  echo 'atlas_path: /path/to/your/atlas' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
