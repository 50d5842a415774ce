package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/cache"
	"codegraph/internal/messaging"
)

const projectSource = `package demo

// Counter counts.
type Counter struct {
	total int
}

// Add bumps the counter.
func (c *Counter) Add(n int) {
	c.total += n
}
`

func writeProject(t *testing.T) (settingsPath, srcDir string) {
	t.Helper()

	dir := t.TempDir()
	srcDir = filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "counter.go"), []byte(projectSource), 0644))

	settingsPath = filepath.Join(dir, "demo.toml")
	settings := "name = \"demo\"\nsource_paths = [\"src\"]\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(settings), 0644))
	return settingsPath, srcDir
}

func TestLoadSettings(t *testing.T) {
	settingsPath, srcDir := writeProject(t)

	settings, err := LoadSettings(settingsPath)
	require.NoError(t, err)
	assert.Equal(t, "demo", settings.Name)
	assert.Equal(t, []string{srcDir}, settings.SourcePaths)
	assert.Equal(t, filepath.Join(filepath.Dir(settingsPath), "demo.db"), settings.DatabasePath)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestProjectLoadAndRefresh(t *testing.T) {
	settingsPath, _ := writeProject(t)

	c := cache.New()
	p := New(settingsPath, c, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()

	started := p.Refresh(true)
	require.True(t, started)

	store := p.Storage()
	assert.NotZero(t, store.GetNodeBySerializedName("demo.Counter").ID)
	assert.NotZero(t, store.GetNodeBySerializedName("demo.Counter.Add").ID)
	assert.Equal(t, 1, store.GetFileCount())
	assert.Equal(t, 11, store.GetFileLOCCount())

	// member edge with access annotation
	counter := store.GetNodeBySerializedName("demo.Counter")
	edges := store.GetEdgesBySourceID(counter.ID)
	require.NotEmpty(t, edges)

	// the cache reads through the project's store
	assert.Equal(t, counter.ID, c.GetNodeBySerializedName("demo.Counter").ID)
}

func TestRefreshWithoutChangesIsIdle(t *testing.T) {
	settingsPath, _ := writeProject(t)

	p := New(settingsPath, nil, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()

	require.True(t, p.Refresh(true))
	assert.False(t, p.Refresh(false), "no files changed")
}

func TestRefreshPicksUpModifiedFile(t *testing.T) {
	settingsPath, srcDir := writeProject(t)

	p := New(settingsPath, nil, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()
	require.True(t, p.Refresh(true))

	path := filepath.Join(srcDir, "counter.go")
	updated := projectSource + "\nfunc Reset() {}\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	require.True(t, p.Refresh(false))
	assert.NotZero(t, p.Storage().GetNodeBySerializedName("demo.Reset").ID)
}

func TestRefreshDropsDeletedFiles(t *testing.T) {
	settingsPath, srcDir := writeProject(t)
	extra := filepath.Join(srcDir, "extra.go")
	require.NoError(t, os.WriteFile(extra, []byte("package demo\n\nfunc Extra() {}\n"), 0644))

	p := New(settingsPath, nil, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()
	require.True(t, p.Refresh(true))
	require.Equal(t, 2, p.Storage().GetFileCount())

	require.NoError(t, os.Remove(extra))
	require.True(t, p.Refresh(false))

	assert.Equal(t, 1, p.Storage().GetFileCount())
	assert.Zero(t, p.Storage().GetNodeBySerializedName("demo.Extra").ID)
}

func TestRequireReindex(t *testing.T) {
	settingsPath, _ := writeProject(t)

	p := New(settingsPath, nil, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()
	require.True(t, p.Refresh(true))

	p.RequireReindex()
	assert.True(t, p.Refresh(false), "settings update forces a full pass")
}

func TestRefreshPublishesFinishedParsing(t *testing.T) {
	settingsPath, _ := writeProject(t)

	q := messaging.NewQueue(nil)
	var finished, statuses int
	messaging.On(q, func(messaging.FinishedParsing) { finished++ })
	messaging.On(q, func(messaging.Status) { statuses++ })

	p := New(settingsPath, nil, q, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()
	require.True(t, p.Refresh(true))

	q.StartMessageLoopThreaded()
	q.StopMessageLoop()

	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, statuses)
}

func TestSyntaxErrorRecordedAsDiagnostic(t *testing.T) {
	settingsPath, srcDir := writeProject(t)
	broken := filepath.Join(srcDir, "broken.go")
	require.NoError(t, os.WriteFile(broken, []byte("package demo\n\nfunc bad( {\n"), 0644))

	p := New(settingsPath, nil, nil, semver.MustParse("1.0.0"))
	require.NoError(t, p.Load())
	defer func() { _ = p.Close() }()
	require.True(t, p.Refresh(true))

	count := p.Storage().GetErrorCount()
	assert.NotZero(t, count.Total)
	assert.NotZero(t, count.Fatal)
}
