package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const maxRecentProjects = 7

// Settings is the persisted application configuration. The recent projects
// list is ordered most-recent-first and capped at seven entries.
type Settings struct {
	LoggingEnabled  bool     `toml:"logging_enabled"`
	ColorSchemePath string   `toml:"color_scheme_path"`
	RecentProjects  []string `toml:"recent_projects"`

	path string
}

// LoadSettings reads the settings file at path. A missing file yields
// defaults; the path is remembered for Save.
func LoadSettings(path string) *Settings {
	settings := &Settings{path: path}
	if _, err := toml.DecodeFile(path, settings); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "settings: %v\n", err)
	}
	return settings
}

// Save writes the settings back to disk atomically.
func (s *Settings) Save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// AddRecentProject prepends a path to the recent list, deduplicating and
// truncating to the cap.
func (s *Settings) AddRecentProject(path string) {
	recent := make([]string, 0, len(s.RecentProjects)+1)
	recent = append(recent, path)
	for _, p := range s.RecentProjects {
		if p != path {
			recent = append(recent, p)
		}
	}
	if len(recent) > maxRecentProjects {
		recent = recent[:maxRecentProjects]
	}
	s.RecentProjects = recent
}
