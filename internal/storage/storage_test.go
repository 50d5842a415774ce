package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Init(semver.MustParse("1.0.0")))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAndInit(t *testing.T) {
	s := setupTestStorage(t)

	assert.False(t, s.IsEmpty())
	assert.False(t, s.IsIncompatible())
	assert.Equal(t, "1.0.0", s.GetApplicationVersion().String())
	assert.Equal(t, 0, s.GetNodeCount())
}

func TestAddNodeRoundTrip(t *testing.T) {
	s := setupTestStorage(t)

	id := s.AddNode(NodeTypeClass, "util.Matrix", DefinitionExplicit)
	require.NotZero(t, id)

	node := s.GetNodeBySerializedName("util.Matrix")
	assert.Equal(t, id, node.ID)
	assert.Equal(t, NodeTypeClass, node.Type)
	assert.Equal(t, "util.Matrix", node.SerializedName)
	assert.Equal(t, DefinitionExplicit, node.DefinitionType)

	assert.Zero(t, s.GetNodeBySerializedName("does.not.Exist").ID)
}

func TestAddEdge(t *testing.T) {
	s := setupTestStorage(t)

	src := s.AddNode(NodeTypeClass, "a.A", DefinitionExplicit)
	tgt := s.AddNode(NodeTypeClass, "b.B", DefinitionExplicit)
	edgeID := s.AddEdge(EdgeTypeInheritance, src, tgt)
	require.NotZero(t, edgeID)

	edge := s.GetEdgeByID(edgeID)
	assert.Equal(t, EdgeTypeInheritance, edge.Type)
	assert.Equal(t, src, edge.SourceNodeID)
	assert.Equal(t, tgt, edge.TargetNodeID)

	assert.Len(t, s.GetEdgesBySourceID(src), 1)
	assert.Len(t, s.GetEdgesByTargetID(tgt), 1)
	assert.Empty(t, s.GetEdgesBySourceID(tgt))
}

func TestNodeAndEdgeShareElementIDSpace(t *testing.T) {
	s := setupTestStorage(t)

	a := s.AddNode(NodeTypeFunction, "f", DefinitionExplicit)
	b := s.AddNode(NodeTypeFunction, "g", DefinitionExplicit)
	e := s.AddEdge(EdgeTypeCall, a, b)
	l := s.AddLocalSymbol("x")

	ids := map[int64]bool{a: true, b: true, e: true, l: true}
	assert.Len(t, ids, 4, "element ids must be distinct across entity kinds")
}

func TestRemoveElementCascades(t *testing.T) {
	s := setupTestStorage(t)

	fileID := addTestFile(t, s, "src.go", "package main\n")
	src := s.AddNode(NodeTypeClass, "a.A", DefinitionExplicit)
	tgt := s.AddNode(NodeTypeClass, "b.B", DefinitionExplicit)
	edgeID := s.AddEdge(EdgeTypeMember, src, tgt)

	require.NotZero(t, s.AddSourceLocation(edgeID, fileID, 1, 1, 1, 5, LocationTypeToken))
	require.NotZero(t, s.AddComponentAccess(edgeID, AccessPublic))

	s.RemoveElement(edgeID)

	assert.Zero(t, s.GetEdgeByID(edgeID).ID)
	assert.Empty(t, s.GetSourceLocationsForElementID(edgeID))
	assert.Zero(t, s.GetComponentAccessByEdgeID(edgeID).ID)
	// the endpoint nodes survive
	assert.NotZero(t, s.GetNodeByID(src).ID)
	assert.NotZero(t, s.GetNodeByID(tgt).ID)
}

func TestRemoveElementsWithLocationInFiles(t *testing.T) {
	s := setupTestStorage(t)

	fileA := addTestFile(t, s, "a.go", "package a\n")
	fileB := addTestFile(t, s, "b.go", "package b\n")

	// shared is located in both files, solo only in fileA
	shared := s.AddNode(NodeTypeFunction, "a.Shared", DefinitionExplicit)
	solo := s.AddNode(NodeTypeFunction, "a.Solo", DefinitionExplicit)

	s.AddSourceLocation(shared, fileA, 1, 1, 1, 6, LocationTypeToken)
	s.AddSourceLocation(shared, fileB, 2, 1, 2, 6, LocationTypeToken)
	s.AddSourceLocation(solo, fileA, 3, 1, 3, 4, LocationTypeToken)

	s.RemoveElementsWithLocationInFiles([]int64{fileA})

	assert.NotZero(t, s.GetNodeByID(shared).ID, "element with a surviving location must be kept")
	assert.Zero(t, s.GetNodeByID(solo).ID, "orphaned element must be removed")
	assert.Empty(t, s.GetSourceLocationsInFile(fileA))
	assert.Len(t, s.GetSourceLocationsInFile(fileB), 1)
}

func TestAddErrorDeduplicates(t *testing.T) {
	s := setupTestStorage(t)

	first := s.AddError("X", false, "a.c", 2, 3)
	second := s.AddError("X", false, "a.c", 2, 3)
	require.NotZero(t, first)
	assert.Equal(t, first, second)
	assert.Len(t, s.GetAllErrors(), 1)

	third := s.AddError("X", true, "a.c", 2, 3)
	assert.NotEqual(t, first, third, "fatal flag is part of the dedup key")
	assert.Len(t, s.GetAllErrors(), 2)
}

func TestRemoveErrorsInFiles(t *testing.T) {
	s := setupTestStorage(t)

	s.AddError("bad", false, "a.c", 1, 1)
	s.AddError("bad", false, "b.c", 1, 1)
	s.AddError("worse", true, "b.c", 2, 2)

	s.RemoveErrorsInFiles([]string{"b.c"})

	errs := s.GetAllErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "a.c", errs[0].FilePath)
}

func TestErrorCount(t *testing.T) {
	s := setupTestStorage(t)

	s.AddError("a", false, "a.c", 1, 1)
	s.AddError("b", true, "a.c", 2, 1)
	s.AddError("c", true, "a.c", 3, 1)

	count := s.GetErrorCount()
	assert.Equal(t, 3, count.Total)
	assert.Equal(t, 2, count.Fatal)
}

func TestAddFile(t *testing.T) {
	s := setupTestStorage(t)

	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	mtime := time.Date(2021, 4, 2, 10, 30, 0, 0, time.UTC)
	id := s.AddFile("main.go", path, mtime)
	require.NotZero(t, id)

	// the file id is also a node of type file
	node := s.GetNodeByID(id)
	assert.Equal(t, NodeTypeFile, node.Type)

	file := s.GetFileByPath(path)
	assert.Equal(t, id, file.ID)
	assert.Equal(t, 3, file.LOC)
	assert.Contains(t, file.Content, "func main()")
	assert.True(t, mtime.Equal(file.ModificationTime))

	assert.Equal(t, 1, s.GetFileCount())
	assert.Equal(t, 3, s.GetFileLOCCount())
}

func TestSetNodeType(t *testing.T) {
	s := setupTestStorage(t)

	id := s.AddNode(NodeTypeUndefined, "x.Y", DefinitionNone)
	s.SetNodeType(id, NodeTypeStruct)
	s.SetNodeDefinitionType(id, DefinitionImplicit)

	node := s.GetNodeByID(id)
	assert.Equal(t, NodeTypeStruct, node.Type)
	assert.Equal(t, DefinitionImplicit, node.DefinitionType)
}

func TestLocalSymbols(t *testing.T) {
	s := setupTestStorage(t)

	id := s.AddLocalSymbol("i")
	require.NotZero(t, id)

	symbol := s.GetLocalSymbolByName("i")
	assert.Equal(t, id, symbol.ID)
	assert.Len(t, s.GetAllLocalSymbols(), 1)
}

func TestCommentLocations(t *testing.T) {
	s := setupTestStorage(t)

	fileID := addTestFile(t, s, "c.go", "// hi\npackage c\n")
	require.NotZero(t, s.AddCommentLocation(fileID, 1, 1, 1, 5))

	comments := s.GetCommentLocationsInFile(fileID)
	require.Len(t, comments, 1)
	assert.Equal(t, 1, comments[0].StartLine)
	assert.Equal(t, 5, comments[0].EndCol)
}

func TestTransactionRollback(t *testing.T) {
	s := setupTestStorage(t)

	s.BeginTransaction()
	s.AddNode(NodeTypeClass, "tx.A", DefinitionExplicit)
	s.AddNode(NodeTypeClass, "tx.B", DefinitionExplicit)
	s.RollbackTransaction()

	assert.Equal(t, 0, s.GetNodeCount())

	s.BeginTransaction()
	s.AddNode(NodeTypeClass, "tx.C", DefinitionExplicit)
	s.CommitTransaction()

	assert.Equal(t, 1, s.GetNodeCount())
}

func TestVersionMismatchClearsDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(semver.MustParse("1.0.0")))
	s.AddNode(NodeTypeClass, "a.A", DefinitionExplicit)
	require.Equal(t, 1, s.GetNodeCount())

	// simulate a database written by an older engine
	s.setMetaValue("storage_version", "7")
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.True(t, s.IsIncompatible())
	require.NoError(t, s.Init(semver.MustParse("1.0.0")))

	assert.Equal(t, 0, s.GetNodeCount())
	assert.False(t, s.IsIncompatible())
	assert.Equal(t, "3", s.getMetaValue("storage_version"))
}

func TestInitKeepsCompatibleDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(semver.MustParse("1.0.0")))
	s.AddNode(NodeTypeClass, "a.A", DefinitionExplicit)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Init(semver.MustParse("1.1.0")))

	assert.Equal(t, 1, s.GetNodeCount())
	assert.Equal(t, "1.1.0", s.GetApplicationVersion().String())
}

func TestMetaUpsert(t *testing.T) {
	s := setupTestStorage(t)

	s.setMetaValue("k", "one")
	s.setMetaValue("k", "two")

	assert.Equal(t, "two", s.getMetaValue("k"))
	assert.Equal(t, 1, s.executeScalar("SELECT COUNT(*) FROM meta WHERE key = 'k';"))
}

func hasIndex(s *Storage, name string) bool {
	return s.executeScalar(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?;", name,
	) > 0
}

func TestSetModeTogglesIndices(t *testing.T) {
	s := setupTestStorage(t)

	// setup leaves the indices alone; the first SetMode materializes them
	assert.Equal(t, ModeUnknown, s.Mode())
	assert.False(t, hasIndex(s, "node_serialized_name_index"))

	s.SetMode(ModeWrite)
	for _, mi := range s.indices {
		assert.False(t, hasIndex(s, mi.index.name), mi.index.name)
	}

	for i := 0; i < 1000; i++ {
		s.AddNode(NodeTypeFunction, "bulk.F", DefinitionExplicit)
	}

	s.SetMode(ModeRead)
	for _, mi := range s.indices {
		assert.True(t, hasIndex(s, mi.index.name), mi.index.name)
	}

	// idempotent on unchanged mode
	s.SetMode(ModeRead)
	assert.Equal(t, ModeRead, s.Mode())
}

func TestGetNodesByIDs(t *testing.T) {
	s := setupTestStorage(t)

	a := s.AddNode(NodeTypeClass, "a", DefinitionExplicit)
	b := s.AddNode(NodeTypeClass, "b", DefinitionExplicit)
	s.AddNode(NodeTypeClass, "c", DefinitionExplicit)

	nodes := s.GetNodesByIDs([]int64{a, b})
	assert.Len(t, nodes, 2)
	assert.Empty(t, s.GetNodesByIDs(nil))
}

func TestNodeTypeStringIsTotal(t *testing.T) {
	assert.Equal(t, "file", NodeTypeFile.String())
	assert.Equal(t, "class", NodeTypeClass.String())
	assert.Equal(t, "unknown", NodeType(9999).String())
}

// addTestFile writes content to a temp file and indexes it.
func addTestFile(t *testing.T, s *Storage, name, content string) int64 {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	id := s.AddFile(name, path, time.Now())
	require.NotZero(t, id)
	return id
}
