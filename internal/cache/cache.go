// Package cache provides the read-through, write-through facade interactive
// consumers use in front of the storage engine.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"codegraph/internal/storage"
)

const bufferSize = 4096

// StorageCache buffers hot lookups over a storage subject and notifies
// observers when the buffered view is invalidated. It holds a non-owning
// reference to the engine; the subject is swapped when a project loads and
// detached when it closes.
type StorageCache struct {
	mu      sync.Mutex
	subject *storage.Storage

	nodeByName *lru.Cache[string, storage.Node]
	fileByPath *lru.Cache[string, storage.File]

	observers []func()
}

// New creates an empty cache with no subject attached.
func New() *StorageCache {
	nodeByName, _ := lru.New[string, storage.Node](bufferSize)
	fileByPath, _ := lru.New[string, storage.File](bufferSize)
	return &StorageCache{
		nodeByName: nodeByName,
		fileByPath: fileByPath,
	}
}

// SetSubject points the cache at a storage engine. Passing nil detaches it.
func (c *StorageCache) SetSubject(subject *storage.Storage) {
	c.mu.Lock()
	c.subject = subject
	c.mu.Unlock()
	c.invalidate()
}

// Subscribe registers an observer fired whenever the buffered view is
// invalidated.
func (c *StorageCache) Subscribe(observer func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// Clear drops the buffered view and notifies observers. The backing store
// is untouched; the engine performs the actual clear.
func (c *StorageCache) Clear() {
	c.invalidate()
}

func (c *StorageCache) invalidate() {
	c.nodeByName.Purge()
	c.fileByPath.Purge()

	c.mu.Lock()
	observers := make([]func(), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, observer := range observers {
		observer()
	}
}

func (c *StorageCache) store() *storage.Storage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Typed readers. Without a subject every reader returns a zero value.

// GetNodeBySerializedName resolves a canonical name, buffering the result.
func (c *StorageCache) GetNodeBySerializedName(name string) storage.Node {
	if node, ok := c.nodeByName.Get(name); ok {
		return node
	}
	s := c.store()
	if s == nil {
		return storage.Node{}
	}
	node := s.GetNodeBySerializedName(name)
	if node.ID != 0 {
		c.nodeByName.Add(name, node)
	}
	return node
}

// GetFileByPath resolves a file row, buffering the result.
func (c *StorageCache) GetFileByPath(path string) storage.File {
	if file, ok := c.fileByPath.Get(path); ok {
		return file
	}
	s := c.store()
	if s == nil {
		return storage.File{}
	}
	file := s.GetFileByPath(path)
	if file.ID != 0 {
		c.fileByPath.Add(path, file)
	}
	return file
}

// GetNodeByID forwards to the engine.
func (c *StorageCache) GetNodeByID(id int64) storage.Node {
	if s := c.store(); s != nil {
		return s.GetNodeByID(id)
	}
	return storage.Node{}
}

// GetAllNodes forwards to the engine.
func (c *StorageCache) GetAllNodes() []storage.Node {
	if s := c.store(); s != nil {
		return s.GetAllNodes()
	}
	return nil
}

// GetEdgeByID forwards to the engine.
func (c *StorageCache) GetEdgeByID(id int64) storage.Edge {
	if s := c.store(); s != nil {
		return s.GetEdgeByID(id)
	}
	return storage.Edge{}
}

// GetAllEdges forwards to the engine.
func (c *StorageCache) GetAllEdges() []storage.Edge {
	if s := c.store(); s != nil {
		return s.GetAllEdges()
	}
	return nil
}

// GetFileByID forwards to the engine.
func (c *StorageCache) GetFileByID(id int64) storage.File {
	if s := c.store(); s != nil {
		return s.GetFileByID(id)
	}
	return storage.File{}
}

// GetAllFiles forwards to the engine.
func (c *StorageCache) GetAllFiles() []storage.File {
	if s := c.store(); s != nil {
		return s.GetAllFiles()
	}
	return nil
}

// GetLocalSymbolByName forwards to the engine.
func (c *StorageCache) GetLocalSymbolByName(name string) storage.LocalSymbol {
	if s := c.store(); s != nil {
		return s.GetLocalSymbolByName(name)
	}
	return storage.LocalSymbol{}
}

// GetAllLocalSymbols forwards to the engine.
func (c *StorageCache) GetAllLocalSymbols() []storage.LocalSymbol {
	if s := c.store(); s != nil {
		return s.GetAllLocalSymbols()
	}
	return nil
}

// GetSourceLocationsForElementID forwards to the engine.
func (c *StorageCache) GetSourceLocationsForElementID(elementID int64) []storage.SourceLocation {
	if s := c.store(); s != nil {
		return s.GetSourceLocationsForElementID(elementID)
	}
	return nil
}

// GetComponentAccessByEdgeID forwards to the engine.
func (c *StorageCache) GetComponentAccessByEdgeID(edgeID int64) storage.ComponentAccess {
	if s := c.store(); s != nil {
		return s.GetComponentAccessByEdgeID(edgeID)
	}
	return storage.ComponentAccess{}
}

// GetNodesByIDs forwards to the engine.
func (c *StorageCache) GetNodesByIDs(ids []int64) []storage.Node {
	if s := c.store(); s != nil {
		return s.GetNodesByIDs(ids)
	}
	return nil
}

// GetEdgesBySourceID forwards to the engine.
func (c *StorageCache) GetEdgesBySourceID(id int64) []storage.Edge {
	if s := c.store(); s != nil {
		return s.GetEdgesBySourceID(id)
	}
	return nil
}

// GetEdgesByTargetID forwards to the engine.
func (c *StorageCache) GetEdgesByTargetID(id int64) []storage.Edge {
	if s := c.store(); s != nil {
		return s.GetEdgesByTargetID(id)
	}
	return nil
}

// GetEdgesBySourceIDs forwards to the engine.
func (c *StorageCache) GetEdgesBySourceIDs(ids []int64) []storage.Edge {
	if s := c.store(); s != nil {
		return s.GetEdgesBySourceIDs(ids)
	}
	return nil
}

// GetSourceLocationsInFile forwards to the engine.
func (c *StorageCache) GetSourceLocationsInFile(fileNodeID int64) []storage.SourceLocation {
	if s := c.store(); s != nil {
		return s.GetSourceLocationsInFile(fileNodeID)
	}
	return nil
}

// GetCommentLocationsInFile forwards to the engine.
func (c *StorageCache) GetCommentLocationsInFile(fileNodeID int64) []storage.CommentLocation {
	if s := c.store(); s != nil {
		return s.GetCommentLocationsInFile(fileNodeID)
	}
	return nil
}

// GetAllErrors forwards to the engine.
func (c *StorageCache) GetAllErrors() []storage.StorageError {
	if s := c.store(); s != nil {
		return s.GetAllErrors()
	}
	return nil
}

// SearchFullText forwards to the engine.
func (c *StorageCache) SearchFullText(term string) []storage.ParseLocation {
	if s := c.store(); s != nil {
		return s.SearchFullText(term)
	}
	return nil
}

// Write-through forwarders. Writes that can change a buffered node or file
// drop the affected entries; element removals and rollbacks invalidate the
// whole buffered view and notify observers. Other writes leave the buffers
// alone.

// AddNode forwards to the engine and drops the name's buffered entry.
func (c *StorageCache) AddNode(t storage.NodeType, name string, d storage.DefinitionType) int64 {
	s := c.store()
	if s == nil {
		return 0
	}
	id := s.AddNode(t, name, d)
	c.nodeByName.Remove(name)
	return id
}

// AddEdge forwards to the engine.
func (c *StorageCache) AddEdge(t storage.EdgeType, src, tgt int64) int64 {
	if s := c.store(); s != nil {
		return s.AddEdge(t, src, tgt)
	}
	return 0
}

// AddFile forwards to the engine and drops the path's buffered entry.
func (c *StorageCache) AddFile(name, path string, mtime time.Time) int64 {
	s := c.store()
	if s == nil {
		return 0
	}
	id := s.AddFile(name, path, mtime)
	c.fileByPath.Remove(path)
	return id
}

// AddLocalSymbol forwards to the engine.
func (c *StorageCache) AddLocalSymbol(name string) int64 {
	if s := c.store(); s != nil {
		return s.AddLocalSymbol(name)
	}
	return 0
}

// AddSourceLocation forwards to the engine.
func (c *StorageCache) AddSourceLocation(
	elementID, fileNodeID int64, startLine, startCol, endLine, endCol int, locationType storage.LocationType,
) int64 {
	if s := c.store(); s != nil {
		return s.AddSourceLocation(elementID, fileNodeID, startLine, startCol, endLine, endCol, locationType)
	}
	return 0
}

// AddComponentAccess forwards to the engine.
func (c *StorageCache) AddComponentAccess(edgeID int64, accessType storage.AccessType) int64 {
	if s := c.store(); s != nil {
		return s.AddComponentAccess(edgeID, accessType)
	}
	return 0
}

// AddCommentLocation forwards to the engine.
func (c *StorageCache) AddCommentLocation(fileNodeID int64, startLine, startCol, endLine, endCol int) int64 {
	if s := c.store(); s != nil {
		return s.AddCommentLocation(fileNodeID, startLine, startCol, endLine, endCol)
	}
	return 0
}

// AddError forwards to the engine.
func (c *StorageCache) AddError(message string, fatal bool, filePath string, line, column int) int64 {
	if s := c.store(); s != nil {
		return s.AddError(message, fatal, filePath, line, column)
	}
	return 0
}

// SetNodeType forwards to the engine and drops the stale name buffer.
func (c *StorageCache) SetNodeType(id int64, nodeType storage.NodeType) {
	if s := c.store(); s != nil {
		s.SetNodeType(id, nodeType)
		c.nodeByName.Purge()
	}
}

// SetNodeDefinitionType forwards to the engine and drops the stale name
// buffer.
func (c *StorageCache) SetNodeDefinitionType(id int64, definitionType storage.DefinitionType) {
	if s := c.store(); s != nil {
		s.SetNodeDefinitionType(id, definitionType)
		c.nodeByName.Purge()
	}
}

// RemoveElement forwards to the engine and invalidates the buffers.
func (c *StorageCache) RemoveElement(id int64) {
	if s := c.store(); s != nil {
		s.RemoveElement(id)
		c.invalidate()
	}
}

// RemoveElements forwards to the engine and invalidates the buffers.
func (c *StorageCache) RemoveElements(ids []int64) {
	if s := c.store(); s != nil {
		s.RemoveElements(ids)
		c.invalidate()
	}
}

// RemoveElementsWithLocationInFiles forwards to the engine and invalidates
// the buffers.
func (c *StorageCache) RemoveElementsWithLocationInFiles(fileNodeIDs []int64) {
	if s := c.store(); s != nil {
		s.RemoveElementsWithLocationInFiles(fileNodeIDs)
		c.invalidate()
	}
}

// RemoveErrorsInFiles forwards to the engine.
func (c *StorageCache) RemoveErrorsInFiles(filePaths []string) {
	if s := c.store(); s != nil {
		s.RemoveErrorsInFiles(filePaths)
	}
}

// Transactions, maintenance and mode forward straight through; the engine
// owns their semantics.

// BeginTransaction forwards to the engine.
func (c *StorageCache) BeginTransaction() {
	if s := c.store(); s != nil {
		s.BeginTransaction()
	}
}

// CommitTransaction forwards to the engine.
func (c *StorageCache) CommitTransaction() {
	if s := c.store(); s != nil {
		s.CommitTransaction()
	}
}

// RollbackTransaction forwards to the engine and invalidates the buffers,
// which may hold rows the rollback undid.
func (c *StorageCache) RollbackTransaction() {
	if s := c.store(); s != nil {
		s.RollbackTransaction()
		c.invalidate()
	}
}

// OptimizeMemory forwards to the engine.
func (c *StorageCache) OptimizeMemory() {
	if s := c.store(); s != nil {
		s.OptimizeMemory()
	}
}

// OptimizeFTS forwards to the engine.
func (c *StorageCache) OptimizeFTS() {
	if s := c.store(); s != nil {
		s.OptimizeFTS()
	}
}

// SetMode forwards to the engine. Callers quiesce queries first.
func (c *StorageCache) SetMode(mode storage.StorageMode) {
	if s := c.store(); s != nil {
		s.SetMode(mode)
	}
}

// Aggregates for the application's logging hook.

// GetStorageStats aggregates graph and code counts.
func (c *StorageCache) GetStorageStats() storage.StorageStats {
	s := c.store()
	if s == nil {
		return storage.StorageStats{}
	}
	return storage.StorageStats{
		NodeCount:           s.GetNodeCount(),
		EdgeCount:           s.GetEdgeCount(),
		FileCount:           s.GetFileCount(),
		FileLOCCount:        s.GetFileLOCCount(),
		SourceLocationCount: s.GetSourceLocationCount(),
	}
}

// GetErrorCount returns the diagnostic counts.
func (c *StorageCache) GetErrorCount() storage.ErrorCountInfo {
	s := c.store()
	if s == nil {
		return storage.ErrorCountInfo{}
	}
	return s.GetErrorCount()
}
