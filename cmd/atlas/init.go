package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/graph"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new atlas repository",
	Long: `Create a new atlas repository in the given directory (default: current).

Creates .atlas/ with a default config.json, an empty graph snapshot, and the
search index cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	if config.IsRepository(dir) {
		exitWithError(ExitConfigError, "already an atlas repository: %s", dir)
	}

	if err := os.MkdirAll(config.CachePath(dir), 0755); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.AtlasPath(dir), err)
	}
	if err := config.Default().Save(dir); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	mustSaveGraph(dir, graph.New())

	if humanOutput {
		fmt.Printf("%s atlas repository in %s\n", styleGood.Sprint("Initialized"), config.AtlasPath(dir))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.AtlasPath(dir)})
	}
	return nil
}
