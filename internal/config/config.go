// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/viz"
)

// Config represents repository configuration stored in .atlas/config.json.
type Config struct {
	DefaultLevels    []int    `json:"default_levels,omitempty"`     // Levels visible when rendering starts
	DefaultEdgeTypes []string `json:"default_edge_types,omitempty"` // Relationships visible when rendering starts
	Layout           string   `json:"layout,omitempty"`             // force, circle, grid, breadthfirst
	OllamaURL        string   `json:"ollama_url,omitempty"`
	OllamaModel      string   `json:"ollama_model,omitempty"`
	CytoscapeJS      string   `json:"cytoscape_js,omitempty"` // Local Cytoscape.js bundle for offline pages
}

const (
	AtlasDir     = ".atlas"
	ConfigFile   = "config.json"
	SnapshotFile = "graph.snap"
	CacheDir     = "cache"
	DBFile       = "atlas.db"
)

// ErrNotRepository is returned when no .atlas directory is found.
var ErrNotRepository = errors.New("not in an atlas repository (no .atlas directory found)")

// Keys lists the settable configuration keys.
var Keys = []string{"default-levels", "default-edge-types", "layout", "ollama-url", "ollama-model", "cytoscape-js"}

// AtlasPath returns the path to the .atlas directory from a root path.
func AtlasPath(root string) string {
	return filepath.Join(root, AtlasDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, AtlasDir, ConfigFile)
}

// SnapshotPath returns the path to the graph snapshot from a root path.
func SnapshotPath(root string) string {
	return filepath.Join(root, AtlasDir, SnapshotFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, AtlasDir, CacheDir)
}

// DBPath returns the path to atlas.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, AtlasDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains an atlas repository.
func IsRepository(root string) bool {
	info, err := os.Stat(AtlasPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find an atlas repository.
// Returns the repository root path or ErrNotRepository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		DefaultLevels:    append([]int(nil), selection.DefaultLevels...),
		DefaultEdgeTypes: append([]string(nil), selection.DefaultEdgeTypes...),
		Layout:           "force",
	}
}

// Load reads configuration from the repository at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := ValidateLevels(c.DefaultLevels); err != nil {
		return err
	}
	if err := viz.ValidateLayout(c.Layout); err != nil {
		return err
	}
	return ValidateCytoscapeJS(c.CytoscapeJS)
}

// InitialState returns the selection state a render starts from. Nil
// fields fall back to the built-in defaults.
func (c *Config) InitialState() *selection.State {
	st := selection.NewState()
	if c.DefaultLevels != nil {
		st.Levels = selection.Only(c.DefaultLevels...)
	}
	if c.DefaultEdgeTypes != nil {
		st.EdgeTypes = selection.Only(c.DefaultEdgeTypes...)
	}
	return st
}

// Get returns the value of a key formatted as it is accepted by Set.
func (c *Config) Get(key string) (string, error) {
	switch NormalizeKey(key) {
	case "default-levels":
		return FormatLevels(c.DefaultLevels), nil
	case "default-edge-types":
		return strings.Join(c.DefaultEdgeTypes, ","), nil
	case "layout":
		return c.Layout, nil
	case "ollama-url":
		return c.OllamaURL, nil
	case "ollama-model":
		return c.OllamaModel, nil
	case "cytoscape-js":
		return c.CytoscapeJS, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set parses and validates value and stores it under key.
func (c *Config) Set(key, value string) error {
	switch NormalizeKey(key) {
	case "default-levels":
		levels, err := ParseLevels(value)
		if err != nil {
			return err
		}
		c.DefaultLevels = levels
	case "default-edge-types":
		c.DefaultEdgeTypes = ParseList(value)
	case "layout":
		if err := viz.ValidateLayout(value); err != nil {
			return err
		}
		c.Layout = value
	case "ollama-url":
		c.OllamaURL = value
	case "ollama-model":
		c.OllamaModel = value
	case "cytoscape-js":
		expanded := ExpandPath(value)
		if err := ValidateCytoscapeJS(expanded); err != nil {
			return err
		}
		c.CytoscapeJS = expanded
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// NormalizeKey converts key formats (ollama-url, ollama_url, OLLAMA_URL) to consistent format.
func NormalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

// ParseLevels parses a comma-separated list of non-negative integers.
// The result is sorted and deduplicated.
func ParseLevels(s string) ([]int, error) {
	seen := make(map[int]bool)
	levels := []int{}
	for _, part := range ParseList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: must be an integer", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid level %d: %w", n, graph.ErrNegativeLevel)
		}
		if !seen[n] {
			seen[n] = true
			levels = append(levels, n)
		}
	}
	sort.Ints(levels)
	return levels, nil
}

// FormatLevels is the inverse of ParseLevels.
func FormatLevels(levels []int) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ",")
}

// ParseList splits a comma-separated list, dropping blanks.
func ParseList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateLevels checks that no level is negative.
func ValidateLevels(levels []int) error {
	for _, l := range levels {
		if l < 0 {
			return fmt.Errorf("invalid default level %d: %w", l, graph.ErrNegativeLevel)
		}
	}
	return nil
}

// ValidateCytoscapeJS checks that the offline bundle path exists and is a file.
func ValidateCytoscapeJS(path string) error {
	if path == "" {
		return nil // Empty is allowed (offline rendering disabled)
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", expandedPath)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
