package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"codegraph/internal/app"
	"codegraph/internal/cache"
	"codegraph/internal/ide"
	"codegraph/internal/messaging"
)

var (
	serveListen  string
	serveProject string
)

// ideFactory adapts the ide package to the application's NetworkFactory.
type ideFactory struct {
	addr string
}

func (f ideFactory) CreateIDEController(c *cache.StorageCache, q *messaging.Queue) app.IDEController {
	return ide.NewController(f.addr, c, q)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless with the IDE channel listening on a socket",
	Long: `Start the application without a GUI and expose the IDE
communication channel on a TCP address. IDE requests are translated into
bus messages; the process runs until interrupted.

Example:
  codegraph serve --listen 127.0.0.1:6667 --project demo/demo.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.New(applicationVersion(), app.Options{
			SettingsPath:   settingsPath,
			NetworkFactory: ideFactory{addr: serveListen},
		})
		defer a.Shutdown()

		if serveProject != "" {
			projectPath, err := filepath.Abs(serveProject)
			if err != nil {
				return err
			}
			a.Queue().Publish(messaging.LoadProject{ProjectSettingsFilePath: projectPath})
		}

		fmt.Printf("codegraph listening on %s\n", serveListen)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		fmt.Printf("received %v, shutting down\n", sig)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:6667", "address for the IDE channel")
	serveCmd.Flags().StringVar(&serveProject, "project", "", "project settings file to load on startup")
	rootCmd.AddCommand(serveCmd)
}
