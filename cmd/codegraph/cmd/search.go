package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"codegraph/internal/project"
	"codegraph/internal/storage"
)

var searchProject string

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Full-text search over the indexed file contents",
	Long: `Search the project's indexed file contents and print every match
as path:line:column ranges.

Example:
  codegraph search --project demo/demo.toml Counter`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := args[0]

		store, err := openProjectStorage(searchProject)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		locations := store.SearchFullText(term)
		if len(locations) == 0 {
			fmt.Println("No matches found")
			return nil
		}
		for _, loc := range locations {
			fmt.Printf("%s:%d:%d-%d:%d\n",
				loc.FilePath, loc.StartLine, loc.StartCol, loc.EndLine, loc.EndCol)
		}
		return nil
	},
}

// openProjectStorage opens the database belonging to a project settings
// file, in read mode, without touching the index.
func openProjectStorage(settingsFile string) (*storage.Storage, error) {
	path, err := filepath.Abs(settingsFile)
	if err != nil {
		return nil, err
	}
	settings, err := project.LoadSettings(path)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(settings.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(semver.MustParse(Version)); err != nil {
		_ = store.Close()
		return nil, err
	}
	store.SetMode(storage.ModeRead)
	return store, nil
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "project settings file (required)")
	_ = searchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(searchCmd)
}
