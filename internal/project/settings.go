package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings describes one project: where its sources live and where the
// graph database is kept. The file is TOML, referenced by absolute path in
// LoadProject messages.
type Settings struct {
	Name         string   `toml:"name"`
	SourcePaths  []string `toml:"source_paths"`
	DatabasePath string   `toml:"database_path"`
}

// LoadSettings parses a project settings file. Relative source and database
// paths resolve against the settings file's directory.
func LoadSettings(path string) (*Settings, error) {
	var settings Settings
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse project settings %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, src := range settings.SourcePaths {
		if !filepath.IsAbs(src) {
			settings.SourcePaths[i] = filepath.Join(dir, src)
		}
	}

	if settings.DatabasePath == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		settings.DatabasePath = filepath.Join(dir, base+".db")
	} else if !filepath.IsAbs(settings.DatabasePath) {
		settings.DatabasePath = filepath.Join(dir, settings.DatabasePath)
	}

	if settings.Name == "" {
		settings.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &settings, nil
}

// discoverSourceFiles walks the configured source paths and returns every
// Go file found, skipping vendor and hidden directories.
func (s *Settings) discoverSourceFiles() ([]string, error) {
	var files []string
	for _, root := range s.SourcePaths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				name := info.Name()
				if name == "vendor" || (strings.HasPrefix(name, ".") && name != "." && name != "..") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ".go") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return files, nil
}
