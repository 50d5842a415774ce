package cache

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/storage"
)

func setupCache(t *testing.T) (*StorageCache, *storage.Storage) {
	t.Helper()

	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Init(semver.MustParse("1.0.0")))
	t.Cleanup(func() { _ = s.Close() })

	c := New()
	c.SetSubject(s)
	return c, s
}

func TestReadersWithoutSubject(t *testing.T) {
	c := New()

	assert.Zero(t, c.GetNodeBySerializedName("x").ID)
	assert.Zero(t, c.GetFileByPath("/a").ID)
	assert.Nil(t, c.GetAllErrors())
	assert.Zero(t, c.GetStorageStats().NodeCount)
	assert.Zero(t, c.AddNode(storage.NodeTypeClass, "x", storage.DefinitionExplicit))
}

func TestReadThrough(t *testing.T) {
	c, s := setupCache(t)

	id := s.AddNode(storage.NodeTypeClass, "pkg.Thing", storage.DefinitionExplicit)
	require.NotZero(t, id)

	node := c.GetNodeBySerializedName("pkg.Thing")
	assert.Equal(t, id, node.ID)

	// buffered: a direct engine mutation is not observed until invalidation
	s.SetNodeType(id, storage.NodeTypeStruct)
	assert.Equal(t, storage.NodeTypeClass, c.GetNodeBySerializedName("pkg.Thing").Type)

	c.Clear()
	assert.Equal(t, storage.NodeTypeStruct, c.GetNodeBySerializedName("pkg.Thing").Type)
}

func TestWriteThroughInvalidatesName(t *testing.T) {
	c, _ := setupCache(t)

	first := c.AddNode(storage.NodeTypeClass, "pkg.A", storage.DefinitionImplicit)
	require.NotZero(t, first)
	assert.Equal(t, first, c.GetNodeBySerializedName("pkg.A").ID)
}

func TestObserverNotifiedOnClear(t *testing.T) {
	c, _ := setupCache(t)

	var fired int
	c.Subscribe(func() { fired++ })

	c.Clear()
	assert.Equal(t, 1, fired)

	c.SetSubject(nil)
	assert.Equal(t, 2, fired)
	assert.Zero(t, c.GetNodeBySerializedName("anything").ID)
}

func TestWriterForwarding(t *testing.T) {
	c, s := setupCache(t)

	src := c.AddNode(storage.NodeTypeClass, "a.A", storage.DefinitionExplicit)
	tgt := c.AddNode(storage.NodeTypeClass, "b.B", storage.DefinitionExplicit)
	edgeID := c.AddEdge(storage.EdgeTypeMember, src, tgt)
	require.NotZero(t, edgeID)

	require.NotZero(t, c.AddComponentAccess(edgeID, storage.AccessPublic))
	require.NotZero(t, c.AddLocalSymbol("i"))
	require.NotZero(t, c.AddError("oops", false, "f.c", 1, 2))

	assert.Equal(t, storage.AccessPublic, c.GetComponentAccessByEdgeID(edgeID).Type)
	assert.Equal(t, "i", c.GetLocalSymbolByName("i").Name)
	assert.Len(t, c.GetAllLocalSymbols(), 1)
	assert.Equal(t, edgeID, c.GetEdgeByID(edgeID).ID)
	assert.Len(t, c.GetEdgesBySourceIDs([]int64{src}), 1)
	assert.Len(t, c.GetAllNodes(), 2)
	assert.Len(t, c.GetAllEdges(), 1)
	assert.Len(t, c.GetAllErrors(), 1)

	c.SetNodeType(src, storage.NodeTypeStruct)
	c.SetNodeDefinitionType(src, storage.DefinitionImplicit)
	node := c.GetNodeBySerializedName("a.A")
	assert.Equal(t, storage.NodeTypeStruct, node.Type)
	assert.Equal(t, storage.DefinitionImplicit, node.DefinitionType)

	c.RemoveElement(edgeID)
	assert.Zero(t, c.GetEdgeByID(edgeID).ID)
	assert.Zero(t, s.GetComponentAccessByEdgeID(edgeID).ID)

	c.RemoveErrorsInFiles([]string{"f.c"})
	assert.Empty(t, c.GetAllErrors())
}

func TestTransactionForwarding(t *testing.T) {
	c, s := setupCache(t)

	c.BeginTransaction()
	c.AddNode(storage.NodeTypeClass, "tx.A", storage.DefinitionExplicit)
	c.RollbackTransaction()
	assert.Equal(t, 0, s.GetNodeCount())

	c.BeginTransaction()
	c.AddNode(storage.NodeTypeClass, "tx.B", storage.DefinitionExplicit)
	c.CommitTransaction()
	assert.Equal(t, 1, s.GetNodeCount())

	c.SetMode(storage.ModeRead)
	assert.Equal(t, storage.ModeRead, s.Mode())
	c.OptimizeFTS()
	c.OptimizeMemory()
}

func TestRemoveElementsWithLocationInFilesForwarding(t *testing.T) {
	c, s := setupCache(t)

	fileID := s.AddNode(storage.NodeTypeFile, "a.go", storage.DefinitionNone)
	solo := c.AddNode(storage.NodeTypeFunction, "a.Solo", storage.DefinitionExplicit)
	require.NotZero(t, c.AddSourceLocation(solo, fileID, 1, 1, 1, 4, storage.LocationTypeToken))
	require.NotZero(t, c.AddCommentLocation(fileID, 2, 1, 2, 5))
	require.Len(t, c.GetSourceLocationsForElementID(solo), 1)

	c.RemoveElementsWithLocationInFiles([]int64{fileID})
	assert.Zero(t, c.GetNodeByID(solo).ID)
}

func TestStorageStats(t *testing.T) {
	c, s := setupCache(t)

	a := s.AddNode(storage.NodeTypeClass, "a", storage.DefinitionExplicit)
	b := s.AddNode(storage.NodeTypeClass, "b", storage.DefinitionExplicit)
	s.AddEdge(storage.EdgeTypeUsage, a, b)
	s.AddError("oops", true, "f.c", 1, 1)

	stats := c.GetStorageStats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)

	count := c.GetErrorCount()
	assert.Equal(t, 1, count.Total)
	assert.Equal(t, 1, count.Fatal)
}
