package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/storage"
)

func init() {
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup [name]",
	Short: "Copy the current snapshot to a named backup",
	Long: `Copy the current snapshot to .atlas/graph_backup_<name>.snap.
Without a name the backup is called "latest" and is overwritten each time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	dest, err := storage.Backup(config.SnapshotPath(root), name)
	if err != nil {
		exitWithErr(err)
	}

	if humanOutput {
		fmt.Printf("Backup written to %s\n", dest)
	} else {
		outputJSON(StatusResponse{Status: "backed_up", Path: dest})
	}
	return nil
}
