package registry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecall-labs/sigseek/api"
	"github.com/basecall-labs/sigseek/internal/sigidx"
	"github.com/basecall-labs/sigseek/internal/utils"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, ids := makeContainer(t, dir, "run1", 4)
	makeContainer(t, dir, "run2", 4)

	r := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, r.RegisterDir(dir))

	name := "run1" + api.ContainerExt
	before, err := r.FetchSignal(name, ids[1])
	require.NoError(t, err)

	data, err := r.Snapshot()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	restored, err := FromSnapshot(data, Options{SaveIndex: true, Log: utils.Discard{}})
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()

	assert.Equal(t, r.Files(), restored.Files(), "registration order survives")

	after, err := restored.FetchSignal(name, ids[1])
	require.NoError(t, err)
	assert.Equal(t, before, after, "post-resume fetch matches pre-suspend data")
}

func TestRestoreWithDeletedArtifact(t *testing.T) {
	dir := t.TempDir()
	path, _ := makeContainer(t, dir, "run1", 2)

	r := quietRegistry(Options{SaveIndex: true})
	require.NoError(t, r.Register(path))

	data, err := r.Snapshot()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	require.NoError(t, os.Remove(sigidx.ArtifactPath(path)))

	restored, err := FromSnapshot(data, Options{SaveIndex: true, Log: utils.Discard{}})
	require.NoError(t, err)

	_, err = restored.Resolve("run1" + api.ContainerExt)
	assert.ErrorIs(t, err, api.ErrArtifactUnavailable)
}

func TestSnapshotExcludesHandles(t *testing.T) {
	dir := t.TempDir()
	path, _ := makeContainer(t, dir, "run1", 1)

	r := quietRegistry(Options{SaveIndex: true})
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Register(path))

	data, err := r.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)
	assert.Contains(t, string(data), path)
	assert.NotContains(t, string(data), "handle")
}

func TestFromSnapshotRejectsUnknownVersion(t *testing.T) {
	_, err := FromSnapshot([]byte(`{"version":99,"files":[]}`), Options{Log: utils.Discard{}})
	assert.Error(t, err)
}

func TestFromSnapshotRejectsGarbage(t *testing.T) {
	_, err := FromSnapshot([]byte("not json"), Options{Log: utils.Discard{}})
	assert.Error(t, err)
}
