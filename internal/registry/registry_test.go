package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecall-labs/sigseek/api"
	"github.com/basecall-labs/sigseek/internal/container"
	"github.com/basecall-labs/sigseek/internal/sigidx"
	"github.com/basecall-labs/sigseek/internal/utils"
)

// makeContainer writes a container with n reads under dir and returns its
// path and the read IDs in physical order.
func makeContainer(t *testing.T, dir, name string, n int) (string, []string) {
	t.Helper()
	path := filepath.Join(dir, name+api.ContainerExt)
	w, err := container.Create(path)
	require.NoError(t, err)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		samples := make([]int16, 20+i)
		for j := range samples {
			samples[j] = int16(i + j)
		}
		_, err := w.Append(id, samples, api.Calibration{Offset: 1, Scale: 0.2})
		require.NoError(t, err)
		ids[i] = id.String()
	}
	require.NoError(t, w.Close())
	return path, ids
}

func quietRegistry(opts Options) *Registry {
	opts.Log = utils.Discard{}
	return NewWithOptions(opts)
}

func TestRegisterBuildsWhenNoArtifact(t *testing.T) {
	dir := t.TempDir()
	path, ids := makeContainer(t, dir, "run1", 3)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Register(path))

	assert.FileExists(t, sigidx.ArtifactPath(path))

	sig, err := r.FetchSignal("run1"+api.ContainerExt, ids[0])
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestRegisterDefersWhenArtifactExists(t *testing.T) {
	dir := t.TempDir()
	path, _ := makeContainer(t, dir, "run1", 3)

	first := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, first.Register(path))
	require.NoError(t, first.Close())

	second := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = second.Close() }()
	require.NoError(t, second.Register(path))

	// Deleting the artifact after registration makes the deferred load
	// fail — proof that Register itself never loaded the handle.
	require.NoError(t, os.Remove(sigidx.ArtifactPath(path)))
	_, err := second.Resolve("run1" + api.ContainerExt)
	assert.ErrorIs(t, err, api.ErrArtifactUnavailable)
}

func TestRegisterWithoutPersistence(t *testing.T) {
	dir := t.TempDir()
	path, ids := makeContainer(t, dir, "run1", 2)

	r := quietRegistry(Options{SaveIndex: false})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Register(path))

	assert.NoFileExists(t, sigidx.ArtifactPath(path))

	// The in-memory handle still serves fetches.
	n, err := r.SignalLength("run1"+api.ContainerExt, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}

func TestResolveUnregistered(t *testing.T) {
	r := quietRegistry(Options{SaveIndex: true})
	_, err := r.Resolve("nope" + api.ContainerExt)
	assert.ErrorIs(t, err, api.ErrNotRegistered)
}

func TestRegisterDir(t *testing.T) {
	dir := t.TempDir()
	makeContainer(t, dir, "a", 2)
	makeContainer(t, dir, "b", 2)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.RegisterDir(dir))

	assert.Equal(t, []string{"a" + api.ContainerExt, "b" + api.ContainerExt}, r.Files())
}

func TestRegisterDirNotADirectory(t *testing.T) {
	r := quietRegistry(Options{SaveIndex: true})
	err := r.RegisterDir(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, api.ErrNotADirectory)
}

func TestRegisterDirEmpty(t *testing.T) {
	r := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, r.RegisterDir(t.TempDir()))
	assert.Empty(t, r.Files())
}

func TestLazyLoadOnFetch(t *testing.T) {
	dir := t.TempDir()
	_, ids := makeContainer(t, dir, "run1", 4)

	warm := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, warm.RegisterDir(dir))
	require.NoError(t, warm.Close())

	cold := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = cold.Close() }()
	require.NoError(t, cold.RegisterDir(dir))

	sig, err := cold.FetchSignal("run1"+api.ContainerExt, ids[2])
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestReadIDsPhysicalOrder(t *testing.T) {
	dir := t.TempDir()
	_, ids := makeContainer(t, dir, "run1", 10)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.RegisterDir(dir))

	name := "run1" + api.ContainerExt
	got, err := r.ReadIDs(name, true)
	require.NoError(t, err)
	assert.Equal(t, ids, got, "append order is physical order")

	plain, err := r.ReadIDs(name, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, plain)
}

func TestIterateAll(t *testing.T) {
	dir := t.TempDir()
	makeContainer(t, dir, "a", 10)
	makeContainer(t, dir, "b", 10)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.RegisterDir(dir))

	var refs []api.Ref
	for ref, err := range r.IterateAll() {
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.Len(t, refs, 20)

	// Files contiguous in registration order.
	for i, ref := range refs {
		want := "a" + api.ContainerExt
		if i >= 10 {
			want = "b" + api.ContainerExt
		}
		assert.Equal(t, want, ref.File)
	}

	// Offsets non-decreasing within each file's sub-run.
	for _, name := range r.Files() {
		var ids []string
		for _, ref := range refs {
			if ref.File == name {
				ids = append(ids, ref.ReadID)
			}
		}
		offsets, err := r.ResolveOffsets(name, ids)
		require.NoError(t, err)
		for i := 1; i < len(offsets); i++ {
			assert.GreaterOrEqual(t, offsets[i], offsets[i-1])
		}
	}
}

func TestIterateAllRestartable(t *testing.T) {
	dir := t.TempDir()
	makeContainer(t, dir, "a", 3)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.RegisterDir(dir))

	count := func() int {
		n := 0
		for _, err := range r.IterateAll() {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count(), "a fresh call restarts the sequence")
}

func TestNameCollisionLastWins(t *testing.T) {
	base := t.TempDir()
	dirA := filepath.Join(base, "a")
	dirB := filepath.Join(base, "b")
	require.NoError(t, os.Mkdir(dirA, 0o755))
	require.NoError(t, os.Mkdir(dirB, 0o755))

	pathA, _ := makeContainer(t, dirA, "run", 2)
	pathB, idsB := makeContainer(t, dirB, "run", 2)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Register(pathA))
	require.NoError(t, r.Register(pathB))

	assert.Equal(t, []string{"run" + api.ContainerExt}, r.Files())

	// The binding now points at dirB's container.
	sig, err := r.FetchSignal("run"+api.ContainerExt, idsB[0])
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestConcurrentResolveLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	path, _ := makeContainer(t, dir, "run1", 5)

	warm := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, warm.Register(path))
	require.NoError(t, warm.Close())

	cold := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = cold.Close() }()
	require.NoError(t, cold.Register(path))

	const goroutines = 16
	handles := make([]*sigidx.Index, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := cold.Resolve("run1" + api.ContainerExt)
			assert.NoError(t, err)
			handles[i] = idx
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, handles[0], handles[i], "all callers share one handle")
	}
}
