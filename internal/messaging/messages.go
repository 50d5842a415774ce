package messaging

// Message is the unit of communication on the bus. MessageType is the
// dispatch tag subscribers register under.
type Message interface {
	MessageType() string
}

// The known message set is a closed enumeration; handlers dispatch on the
// concrete type.

// ActivateWindow asks the main view to bring itself to the foreground.
type ActivateWindow struct{}

func (ActivateWindow) MessageType() string { return "ActivateWindow" }

// EnteredLicense reports that a valid license key was entered.
type EnteredLicense struct{}

func (EnteredLicense) MessageType() string { return "EnteredLicense" }

// FinishedParsing reports that the current project finished indexing.
type FinishedParsing struct{}

func (FinishedParsing) MessageType() string { return "FinishedParsing" }

// LoadProject asks the application to load the project described by the
// settings file at the given path.
type LoadProject struct {
	ProjectSettingsFilePath string
	ForceRefresh            bool
}

func (LoadProject) MessageType() string { return "LoadProject" }

// Refresh asks for views and, unless UIOnly is set, the current project to
// be refreshed. ReloadStyle additionally reloads the color scheme first.
type Refresh struct {
	All         bool
	UIOnly      bool
	ReloadStyle bool
}

func (Refresh) MessageType() string { return "Refresh" }

// NewRefresh returns a full refresh request with style reload enabled, the
// default a plain user refresh carries.
func NewRefresh() Refresh {
	return Refresh{ReloadStyle: true}
}

// RefreshUIOnly returns a refresh limited to the view layer.
func RefreshUIOnly() Refresh {
	return Refresh{UIOnly: true, ReloadStyle: true}
}

// SwitchColorScheme asks for the color scheme at the given path to be
// applied.
type SwitchColorScheme struct {
	ColorSchemePath string
}

func (SwitchColorScheme) MessageType() string { return "SwitchColorScheme" }

// Status carries a user-visible one-line notice.
type Status struct {
	Text        string
	IsError     bool
	IsTransient bool
}

func (Status) MessageType() string { return "Status" }

// ShowStartScreen asks the view layer to present the start screen.
type ShowStartScreen struct{}

func (ShowStartScreen) MessageType() string { return "ShowStartScreen" }
