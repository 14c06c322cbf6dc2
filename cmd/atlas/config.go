package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  atlas config                             # Show all config
  atlas config layout                      # Get specific value
  atlas config layout circle               # Set value
  atlas config default-levels 0,1          # Levels shown when rendering starts
  atlas config cytoscape-js ~/js/cytoscape.min.js

Keys:
  default-levels      Comma-separated levels visible by default
  default-edge-types  Comma-separated relationships visible by default
  layout              force, circle, grid, or breadthfirst
  ollama-url          Ollama server for the assistant
  ollama-model        Ollama model for the assistant
  cytoscape-js        Local Cytoscape.js bundle for --offline pages`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg := mustLoadConfig(root)

	// No args: show all config
	if len(args) == 0 {
		values := configValues(cfg)
		if humanOutput {
			for _, key := range config.Keys {
				fmt.Printf("%-20s %s\n", key+":", values[key])
			}
		} else {
			outputJSON(values)
		}
		return nil
	}

	key := config.NormalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v\n\nValid keys: %s", err, strings.Join(config.Keys, ", "))
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	// Two args: set value
	if err := cfg.Set(key, args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	value, _ := cfg.Get(key)
	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	return nil
}

// configValues returns every key with its current value.
func configValues(cfg *config.Config) map[string]string {
	values := make(map[string]string, len(config.Keys))
	for _, key := range config.Keys {
		values[key], _ = cfg.Get(key)
	}
	return values
}
