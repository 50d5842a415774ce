package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"codegraph/internal/app"
	"codegraph/internal/messaging"
)

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index <project.toml>",
	Short: "Load a project and index its sources",
	Long: `Load the project described by the given settings file and index
its source paths into the project database. Unchanged files are skipped
unless --all is set.

Example:
  codegraph index demo/demo.toml --all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		a := app.New(applicationVersion(), app.Options{SettingsPath: settingsPath})
		defer a.Shutdown()

		a.Queue().Publish(messaging.LoadProject{ProjectSettingsFilePath: projectPath})
		a.Queue().Publish(messaging.Refresh{All: indexAll})
		a.WaitIdle()

		if a.CurrentProject() == nil {
			return fmt.Errorf("failed to load project %s", projectPath)
		}

		stats := a.StorageCache().GetStorageStats()
		errorCount := a.StorageCache().GetErrorCount()
		fmt.Printf("%d nodes, %d edges, %d files, %d lines of code\n",
			stats.NodeCount, stats.EdgeCount, stats.FileCount, stats.FileLOCCount)
		if errorCount.Total > 0 {
			fmt.Printf("%d errors (%d fatal)\n", errorCount.Total, errorCount.Fatal)
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "re-index every file instead of only changed ones")
	rootCmd.AddCommand(indexCmd)
}
