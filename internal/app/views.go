package app

import (
	"codegraph/internal/cache"
	"codegraph/internal/messaging"
)

// MainView is the abstract surface the coordinator drives. The GUI
// collaborator makes these operations thread-safe, typically by re-posting
// onto its own loop.
type MainView interface {
	SetTitle(title string)
	ActivateWindow()
	ShowStartScreen()
	HideStartScreen()
	RefreshViews()
	LoadLayout()
	SaveLayout()
	UpdateRecentProjectMenu(recent []string)
}

// ViewFactory constructs the GUI layer. A nil factory runs the application
// headless.
type ViewFactory interface {
	CreateMainView() MainView
}

// IDEController listens for IDE requests and translates them into bus
// messages.
type IDEController interface {
	StartListening() error
	StopListening()
}

// NetworkFactory constructs the IDE communication controller. A nil factory
// disables the IDE channel.
type NetworkFactory interface {
	CreateIDEController(c *cache.StorageCache, q *messaging.Queue) IDEController
}
