package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"codegraph/internal/storage"
)

// Version is the application version, overridable at build time.
var Version = "1.0.0"

var settingsPath string

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "Persistent code graph store and explorer",
	Long: `codegraph indexes source code into a queryable graph: symbols,
relations, source locations and diagnostics, persisted in a single SQLite
file with full-text search over file contents.`,
}

// Execute runs the root command
func Execute() {
	log.SetOutput(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsPath(), "path to the application settings file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codegraph %s\n", Version)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
			fmt.Printf("Storage Version: %d\n", storage.StorageVersion)
		},
	})
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codegraph.toml"
	}
	return filepath.Join(home, ".codegraph", "settings.toml")
}

func applicationVersion() *semver.Version {
	version, err := semver.NewVersion(Version)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return version
}
