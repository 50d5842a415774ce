// Package app hosts the application coordinator: the single long-lived
// value owning the storage cache, the current project, and the message and
// scheduler loops that serialize every state transition.
package app

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"codegraph/internal/cache"
	"codegraph/internal/messaging"
	"codegraph/internal/project"
	"codegraph/internal/scheduling"
)

// Options configures construction. Factories are optional collaborators; a
// zero Options runs headless without an IDE channel.
type Options struct {
	SettingsPath   string
	ViewFactory    ViewFactory
	NetworkFactory NetworkFactory
}

// Application coordinates the lifecycle of the loaded project. It owns the
// scheduler and message queue for its lifetime and tears them down in
// reverse order; handlers all run on the scheduler worker, so application
// state needs no further locking.
type Application struct {
	version  *semver.Version
	settings *Settings

	scheduler    *scheduling.TaskScheduler
	queue        *messaging.Queue
	storageCache *cache.StorageCache

	project       *project.Project
	mainView      MainView
	ideController IDEController

	hasGUI            bool
	isInTrial         bool
	activeColorScheme string
}

// New constructs the application: settings are loaded and applied, the
// loops materialized, the cache created (no project yet), the optional view
// and IDE collaborators wired, and finally both loops started with message
// delivery routed through the scheduler.
func New(version *semver.Version, opts Options) *Application {
	a := &Application{
		version:   version,
		isInTrial: true,
	}

	a.settings = LoadSettings(opts.SettingsPath)
	a.loadStyle(a.settings.ColorSchemePath)

	a.scheduler = scheduling.NewTaskScheduler()
	a.queue = messaging.NewQueue(a.scheduler)
	a.storageCache = cache.New()

	a.subscribe()

	if opts.ViewFactory != nil {
		a.hasGUI = true
		a.mainView = opts.ViewFactory.CreateMainView()
		a.updateTitle()
		a.mainView.LoadLayout()
		a.queue.Publish(messaging.ShowStartScreen{})
	}

	if opts.NetworkFactory != nil {
		a.ideController = opts.NetworkFactory.CreateIDEController(a.storageCache, a.queue)
		if err := a.ideController.StartListening(); err != nil {
			log.Printf("app: ide controller: %v", err)
		}
	}

	a.startMessagingAndScheduling()
	return a
}

// Queue exposes the bus for external drivers (CLI, IDE controller tests).
func (a *Application) Queue() *messaging.Queue {
	return a.queue
}

// StorageCache exposes the cache by shared ownership; the application
// outlives every borrower.
func (a *Application) StorageCache() *cache.StorageCache {
	return a.storageCache
}

// CurrentProject returns the loaded project, nil before the first load.
func (a *Application) CurrentProject() *project.Project {
	return a.project
}

// IsInTrial reports whether no license has been entered yet.
func (a *Application) IsInTrial() bool {
	return a.isInTrial
}

// Settings returns the live application settings.
func (a *Application) Settings() *Settings {
	return a.settings
}

// WaitIdle blocks until every published message and every scheduled task,
// including the ones handlers enqueue while draining, has been processed.
// Headless drivers publish a batch of messages and call this before reading
// application state; the loops are running again when it returns.
func (a *Application) WaitIdle() {
	for {
		a.queue.StopMessageLoop()
		a.scheduler.StopSchedulerLoop()
		idle := a.queue.Pending() == 0 && a.scheduler.Pending() == 0
		a.scheduler.StartSchedulerLoopThreaded()
		a.queue.StartMessageLoopThreaded()
		if idle {
			return
		}
	}
}

// Shutdown stops the message loop, then the scheduler, persists the view
// layout and closes the current project.
func (a *Application) Shutdown() {
	a.queue.StopMessageLoop()
	a.scheduler.StopSchedulerLoop()

	if a.ideController != nil {
		a.ideController.StopListening()
	}
	if a.hasGUI {
		a.mainView.SaveLayout()
	}
	if a.project != nil {
		_ = a.project.Close()
	}
}

func (a *Application) startMessagingAndScheduling() {
	a.scheduler.StartSchedulerLoopThreaded()
	a.queue.SetSendMessagesAsTasks(true)
	a.queue.StartMessageLoopThreaded()
}

func (a *Application) subscribe() {
	messaging.On(a.queue, a.handleActivateWindow)
	messaging.On(a.queue, a.handleEnteredLicense)
	messaging.On(a.queue, a.handleFinishedParsing)
	messaging.On(a.queue, a.handleLoadProject)
	messaging.On(a.queue, a.handleRefresh)
	messaging.On(a.queue, a.handleSwitchColorScheme)
	messaging.On(a.queue, a.handleShowStartScreen)
}

func (a *Application) handleActivateWindow(messaging.ActivateWindow) {
	if a.hasGUI {
		a.mainView.ActivateWindow()
	}
}

func (a *Application) handleEnteredLicense(messaging.EnteredLicense) {
	a.queue.Publish(messaging.Status{Text: "Found valid license key, unlocked application."})
	a.isInTrial = false
	a.updateTitle()
}

func (a *Application) handleFinishedParsing(messaging.FinishedParsing) {
	a.logStorageStats()
	if a.hasGUI {
		a.queue.Publish(messaging.RefreshUIOnly())
	}
}

func (a *Application) handleLoadProject(m messaging.LoadProject) {
	path := m.ProjectSettingsFilePath
	if path == "" {
		return
	}

	if a.project != nil && path == a.project.SettingsFilePath() {
		if m.ForceRefresh {
			a.project.RequireReindex()
			a.refreshProject(false)
		}
		return
	}

	a.createAndLoadProject(path)
}

func (a *Application) handleRefresh(m messaging.Refresh) {
	if m.ReloadStyle {
		a.loadStyle(a.settings.ColorSchemePath)
	}

	if a.hasGUI {
		a.mainView.RefreshViews()
	}

	if !m.UIOnly {
		a.refreshProject(m.All)
	}
}

func (a *Application) handleSwitchColorScheme(m messaging.SwitchColorScheme) {
	a.queue.Publish(messaging.Status{Text: "Switch color scheme: " + m.ColorSchemePath})

	a.loadStyle(m.ColorSchemePath)
	a.queue.Publish(messaging.Refresh{UIOnly: true, ReloadStyle: false})
}

func (a *Application) handleShowStartScreen(messaging.ShowStartScreen) {
	if a.hasGUI {
		a.mainView.ShowStartScreen()
	}
}

// createAndLoadProject swaps the current project for the one described at
// path. Every failure, including panics out of the project layer, surfaces
// as a Status error; the message loop keeps running.
func (a *Application) createAndLoadProject(path string) {
	a.queue.Publish(messaging.Status{Text: "Loading Project: " + path, IsTransient: true})

	defer func() {
		if r := recover(); r != nil {
			log.Printf("app: load project panic: %v", r)
			a.queue.Publish(messaging.Status{
				Text:    fmt.Sprintf("Failed to load project, unknown error was thrown: %s", path),
				IsError: true,
			})
		}
	}()

	a.updateRecentProjects(path)

	a.storageCache.Clear()
	a.storageCache.SetSubject(nil)

	if a.project != nil {
		_ = a.project.Close()
	}
	a.project = project.New(path, a.storageCache, a.queue, a.version)

	if err := a.project.Load(); err != nil {
		log.Printf("app: load project: %v", err)
		a.queue.Publish(messaging.Status{
			Text:    "Failed to load project: " + path,
			IsError: true,
		})
		return
	}

	if a.hasGUI {
		a.updateTitle()
		a.mainView.HideStartScreen()
	}
}

func (a *Application) refreshProject(all bool) {
	if a.project == nil {
		return
	}
	if a.project.Refresh(all) {
		a.storageCache.Clear()
		if a.hasGUI {
			a.mainView.RefreshViews()
		}
	}
}

func (a *Application) updateRecentProjects(path string) {
	a.settings.AddRecentProject(path)
	if err := a.settings.Save(); err != nil {
		log.Printf("app: save settings: %v", err)
	}
	if a.hasGUI {
		a.mainView.UpdateRecentProjectMenu(a.settings.RecentProjects)
	}
}

// loadStyle applies a color scheme path; the scheme itself belongs to the
// external style collaborator.
func (a *Application) loadStyle(colorSchemePath string) {
	a.activeColorScheme = colorSchemePath
}

func (a *Application) logStorageStats() {
	if !a.settings.LoggingEnabled {
		return
	}

	stats := a.storageCache.GetStorageStats()
	errorCount := a.storageCache.GetErrorCount()

	log.Printf(
		"\nGraph:\n\t%d Nodes\n\t%d Edges\n\nCode:\n\t%d Files\n\t%d Lines of Code\n\nErrors:\n\t%d Errors\n\t%d Fatal Errors\n",
		stats.NodeCount, stats.EdgeCount,
		stats.FileCount, stats.FileLOCCount,
		errorCount.Total, errorCount.Fatal,
	)
}

func (a *Application) updateTitle() {
	if !a.hasGUI {
		return
	}

	title := "CodeGraph"
	if a.isInTrial {
		title = "CodeGraph Trial"
	}
	if a.project != nil {
		title += " - " + filepath.Base(a.project.SettingsFilePath())
	}
	a.mainView.SetTitle(title)
}
