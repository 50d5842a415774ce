package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsProject string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print graph and diagnostic counts for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openProjectStorage(statsProject)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		fmt.Println("Graph:")
		fmt.Printf("\t%d Nodes\n", store.GetNodeCount())
		fmt.Printf("\t%d Edges\n", store.GetEdgeCount())
		fmt.Println("Code:")
		fmt.Printf("\t%d Files\n", store.GetFileCount())
		fmt.Printf("\t%d Lines of Code\n", store.GetFileLOCCount())

		errorCount := store.GetErrorCount()
		fmt.Println("Errors:")
		fmt.Printf("\t%d Errors\n", errorCount.Total)
		fmt.Printf("\t%d Fatal Errors\n", errorCount.Fatal)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsProject, "project", "", "project settings file (required)")
	_ = statsCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(statsCmd)
}
