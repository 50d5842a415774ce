// Package project drives the lifecycle of one indexed codebase: loading its
// settings, opening the graph database, and refreshing the index from
// source.
package project

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"codegraph/internal/analyzer"
	"codegraph/internal/cache"
	"codegraph/internal/messaging"
	"codegraph/internal/storage"
)

// Project owns the storage engine for one settings path. The cache and
// queue are non-owning back references; the application outlives both.
type Project struct {
	settingsPath string
	settings     *Settings
	store        *storage.Storage
	cache        *cache.StorageCache
	queue        *messaging.Queue
	version      *semver.Version

	settingsUpdated bool
}

// New creates an unloaded project for the given settings file.
func New(settingsPath string, c *cache.StorageCache, q *messaging.Queue, version *semver.Version) *Project {
	return &Project{
		settingsPath: settingsPath,
		cache:        c,
		queue:        q,
		version:      version,
	}
}

// SettingsFilePath returns the path the project was created from.
func (p *Project) SettingsFilePath() string {
	return p.settingsPath
}

// Storage exposes the engine for headless drivers. Nil until Load.
func (p *Project) Storage() *storage.Storage {
	return p.store
}

// Load parses the settings, opens the database (clearing it on a version
// mismatch) and points the cache at it.
func (p *Project) Load() error {
	settings, err := LoadSettings(p.settingsPath)
	if err != nil {
		return err
	}
	p.settings = settings

	store, err := storage.Open(settings.DatabasePath)
	if err != nil {
		return err
	}
	if err := store.Init(p.version); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to init storage: %w", err)
	}

	p.store = store
	p.settingsUpdated = false
	if p.cache != nil {
		p.cache.SetSubject(store)
	}
	return nil
}

// Close detaches the cache and closes the database.
func (p *Project) Close() error {
	if p.cache != nil {
		p.cache.SetSubject(nil)
	}
	if p.store == nil {
		return nil
	}
	p.store.OptimizeMemory()
	err := p.store.Close()
	p.store = nil
	return err
}

// RequireReindex marks the project's settings as updated so the next
// refresh re-indexes everything.
func (p *Project) RequireReindex() {
	p.settingsUpdated = true
}

// Refresh re-indexes the project's sources and reports whether indexing
// started. With all unset only files whose modification time changed since
// the last index (plus new and deleted ones) are processed.
func (p *Project) Refresh(all bool) bool {
	if p.store == nil || p.settings == nil {
		return false
	}
	if p.settingsUpdated {
		all = true
		p.settingsUpdated = false
	}

	discovered, err := p.settings.discoverSourceFiles()
	if err != nil {
		p.publish(messaging.Status{Text: err.Error(), IsError: true})
		return false
	}

	toIndex, removed := p.partitionWork(discovered, all)
	if len(toIndex) == 0 && len(removed) == 0 {
		return false
	}

	p.publish(messaging.Status{
		Text:        fmt.Sprintf("Indexing %d source files", len(toIndex)),
		IsTransient: true,
	})

	p.index(toIndex, removed)
	p.publish(messaging.FinishedParsing{})
	return true
}

// partitionWork splits the discovered files into those needing indexing and
// collects stored files that disappeared from disk.
func (p *Project) partitionWork(discovered []string, all bool) (toIndex []string, removed []storage.File) {
	onDisk := make(map[string]bool, len(discovered))
	for _, path := range discovered {
		onDisk[path] = true
		if all {
			toIndex = append(toIndex, path)
			continue
		}
		stored := p.store.GetFileByPath(path)
		if stored.ID == 0 {
			toIndex = append(toIndex, path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !stored.ModificationTime.Equal(info.ModTime().Truncate(time.Second)) {
			toIndex = append(toIndex, path)
		}
	}

	for _, stored := range p.store.GetAllFiles() {
		if !onDisk[stored.Path] {
			removed = append(removed, stored)
		}
	}
	return toIndex, removed
}

// fileResult pairs a parsed file with its modification time.
type fileResult struct {
	path   string
	mtime  time.Time
	result *analyzer.Result
}

// index parses the files concurrently, then applies all rows through a
// single writer, one transaction per file.
func (p *Project) index(paths []string, removed []storage.File) {
	p.store.SetMode(storage.ModeWrite)
	defer func() {
		p.store.SetMode(storage.ModeRead)
		p.store.OptimizeFTS()
		if p.cache != nil {
			p.cache.Clear()
		}
	}()

	p.removeStaleData(paths, removed)

	results := make([]fileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	var mu sync.Mutex

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil // skipped: no file row is stored, so the next refresh retries it
			}
			info, statErr := os.Stat(path)
			mtime := time.Now()
			if statErr == nil {
				mtime = info.ModTime()
			}
			result := analyzer.New().AnalyzeFile(path, src)
			mu.Lock()
			results[i] = fileResult{path: path, mtime: mtime, result: result}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	nodeIDs := make(map[string]int64)
	for _, fr := range results {
		if fr.result == nil {
			continue
		}
		p.store.BeginTransaction()
		p.storeResult(fr, nodeIDs)
		p.store.CommitTransaction()
	}
}

// removeStaleData drops the previous index rows of the files about to be
// re-indexed and of the files that vanished from disk.
func (p *Project) removeStaleData(paths []string, removed []storage.File) {
	var fileIDs []int64
	var filePaths []string

	for _, path := range paths {
		if stored := p.store.GetFileByPath(path); stored.ID != 0 {
			fileIDs = append(fileIDs, stored.ID)
			filePaths = append(filePaths, path)
		}
	}
	for _, stored := range removed {
		fileIDs = append(fileIDs, stored.ID)
		filePaths = append(filePaths, stored.Path)
	}
	if len(fileIDs) == 0 {
		return
	}

	p.store.BeginTransaction()
	p.store.RemoveElementsWithLocationInFiles(fileIDs)
	p.store.RemoveElements(fileIDs)
	p.store.RemoveErrorsInFiles(filePaths)
	p.store.CommitTransaction()
}

// ensureNode resolves a serialized name to a node id, creating a node with the
// given kind and definition type when the name has not been seen yet. An
// explicit definition re-tags a node seen earlier in this pass, or a stored
// node that is not yet explicit, with the given kind.
func (p *Project) ensureNode(
	nodeIDs map[string]int64, name string, kind storage.NodeType, definition storage.DefinitionType,
) int64 {
	if id, ok := nodeIDs[name]; ok {
		if definition == storage.DefinitionExplicit {
			p.store.SetNodeType(id, kind)
			p.store.SetNodeDefinitionType(id, definition)
		}
		return id
	}
	if existing := p.store.GetNodeBySerializedName(name); existing.ID != 0 {
		nodeIDs[name] = existing.ID
		if definition == storage.DefinitionExplicit && existing.DefinitionType != storage.DefinitionExplicit {
			p.store.SetNodeType(existing.ID, kind)
			p.store.SetNodeDefinitionType(existing.ID, definition)
		}
		return existing.ID
	}
	id := p.store.AddNode(kind, name, definition)
	nodeIDs[name] = id
	return id
}

func (p *Project) storeResult(fr fileResult, nodeIDs map[string]int64) {
	res := fr.result
	fileID := p.store.AddFile(fr.path, fr.path, fr.mtime.Truncate(time.Second))
	if fileID == 0 {
		return
	}
	nodeIDs[fr.path] = fileID

	for _, sym := range res.Symbols {
		id := p.ensureNode(nodeIDs, sym.Name, sym.Kind, storage.DefinitionExplicit)
		p.store.AddSourceLocation(
			id, fileID,
			sym.Range.StartLine, sym.Range.StartCol, sym.Range.EndLine, sym.Range.EndCol,
			storage.LocationTypeToken,
		)
		if sym.Parent != "" {
			parentID := p.ensureNode(nodeIDs, sym.Parent, storage.NodeTypeUndefined, storage.DefinitionImplicit)
			edgeID := p.store.AddEdge(storage.EdgeTypeMember, parentID, id)
			if edgeID != 0 && sym.Access != storage.AccessNone {
				p.store.AddComponentAccess(edgeID, sym.Access)
			}
		}
	}

	for _, ref := range res.References {
		fromID := p.ensureNode(nodeIDs, ref.From, storage.NodeTypeUndefined, storage.DefinitionImplicit)
		toID := p.ensureNode(nodeIDs, ref.To, storage.NodeTypeUndefined, storage.DefinitionImplicit)
		edgeID := p.store.AddEdge(ref.Kind, fromID, toID)
		if edgeID != 0 {
			p.store.AddSourceLocation(
				edgeID, fileID,
				ref.Range.StartLine, ref.Range.StartCol, ref.Range.EndLine, ref.Range.EndCol,
				storage.LocationTypeToken,
			)
		}
	}

	for _, local := range res.Locals {
		localID := p.store.AddLocalSymbol(local.Name)
		if localID != 0 {
			p.store.AddSourceLocation(
				localID, fileID,
				local.Range.StartLine, local.Range.StartCol, local.Range.EndLine, local.Range.EndCol,
				storage.LocationTypeLocalSymbol,
			)
		}
	}

	for _, comment := range res.Comments {
		p.store.AddCommentLocation(
			fileID, comment.StartLine, comment.StartCol, comment.EndLine, comment.EndCol,
		)
	}

	for _, diag := range res.Diagnostics {
		p.store.AddError(diag.Message, diag.Fatal, fr.path, diag.Line, diag.Column)
	}
}

func (p *Project) publish(message messaging.Message) {
	if p.queue != nil {
		p.queue.Publish(message)
	}
}
