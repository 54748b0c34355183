// Package registry tracks signal container files by logical name and owns
// their index handles. Registration is cheap: when a sidecar artifact
// already exists the handle is not constructed until first access. Handles
// are owned exclusively by the registry; callers resolve offsets and fetch
// signals through it rather than holding handles themselves.
package registry

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/basecall-labs/sigseek/api"
	"github.com/basecall-labs/sigseek/internal/container"
	"github.com/basecall-labs/sigseek/internal/sigidx"
	"github.com/basecall-labs/sigseek/internal/utils"
)

// Options configures a Registry.
type Options struct {
	// SaveIndex persists the artifact after a registration-time build.
	// A persistence failure is logged as a warning, never an error: the
	// in-memory handle stays usable for the process lifetime.
	SaveIndex bool
	Log       utils.Logger
}

// DefaultOptions enables artifact persistence with the default logger.
func DefaultOptions() Options {
	return Options{SaveIndex: true}
}

// Registry maps logical container names (path base names) to paths and
// lazily-materialized index handles. The name->path bindings survive
// Snapshot/FromSnapshot; handles never do.
type Registry struct {
	log       utils.Logger
	saveIndex bool

	mu    sync.Mutex // guards paths and order
	paths map[string]string
	order []string

	// Lazy materialization: one loadState per name ensures a deferred
	// handle is loaded at most once even under concurrent Resolve calls.
	// A failed load drops the state so the next call retries.
	handles sync.Map // name -> *sigidx.Index
	loading sync.Map // name -> *loadState
}

type loadState struct {
	once sync.Once
	idx  *sigidx.Index
	err  error
}

// New returns a registry with default options.
func New() *Registry {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions returns a registry with the given options.
func NewWithOptions(opts Options) *Registry {
	return &Registry{
		log:       utils.Or(opts.Log),
		saveIndex: opts.SaveIndex,
		paths:     make(map[string]string),
	}
}

// Register adds one container file under its base name.
//
// If the sidecar artifact exists, only the path is bound; the handle loads
// on first access. Otherwise the index is built synchronously and, unless
// persistence is disabled, saved next to the container. Registering a name
// twice overwrites the prior binding (last wins); a warning is logged when
// the new absolute path differs.
func (r *Registry) Register(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	name := filepath.Base(abs)

	r.mu.Lock()
	if prev, ok := r.paths[name]; ok {
		if prev != abs {
			r.log.Warn("container name collision, last registration wins",
				"name", name, "old", prev, "new", abs)
		}
		// Invalidate any handle bound to the previous path.
		if v, loaded := r.handles.LoadAndDelete(name); loaded {
			_ = v.(*sigidx.Index).Close()
		}
		r.loading.Delete(name)
	} else {
		r.order = append(r.order, name)
	}
	r.paths[name] = abs
	r.mu.Unlock()

	artifact := sigidx.ArtifactPath(abs)
	if _, err := os.Stat(artifact); err == nil {
		r.log.Debug("artifact found, deferring load", "name", name)
		return nil
	}

	idx, err := sigidx.New(abs)
	if err != nil {
		return err
	}
	if err := idx.Build(); err != nil {
		_ = idx.Close()
		return err
	}
	if r.saveIndex {
		if err := idx.Save(artifact); err != nil {
			r.log.Warn("could not save index artifact, keeping it in memory",
				"artifact", artifact, "error", err)
		} else {
			r.log.Debug("built and saved index", "artifact", artifact)
		}
	} else {
		r.log.Debug("built index in memory", "name", name)
	}
	r.handles.Store(name, idx)
	return nil
}

// RegisterDir discovers every container file under dir recursively and
// registers each in sorted path order. A directory without containers is
// logged, not an error.
func (r *Registry) RegisterDir(dir string) error {
	files, err := container.Discover(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.log.Warn("no container files found", "dir", dir)
		return nil
	}
	for _, f := range files {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	r.log.Info("registered container files", "count", len(files), "dir", dir)
	return nil
}

// Resolve returns the live handle for a logical name, loading it from the
// sidecar artifact if it is not yet resident.
func (r *Registry) Resolve(name string) (*sigidx.Index, error) {
	if v, ok := r.handles.Load(name); ok {
		return v.(*sigidx.Index), nil
	}

	r.mu.Lock()
	path, ok := r.paths[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (call Register or RegisterDir first)", api.ErrNotRegistered, name)
	}

	v, _ := r.loading.LoadOrStore(name, &loadState{})
	ls := v.(*loadState)
	ls.once.Do(func() {
		ls.idx, ls.err = r.load(name, path)
		if ls.err == nil {
			r.handles.Store(name, ls.idx)
		}
	})
	if ls.err != nil {
		// Drop only our own state so a concurrent successful reload
		// is not discarded.
		r.loading.CompareAndDelete(name, ls)
		return nil, ls.err
	}
	return ls.idx, nil
}

func (r *Registry) load(name, path string) (*sigidx.Index, error) {
	idx, err := sigidx.New(path)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(sigidx.ArtifactPath(path)); err != nil {
		_ = idx.Close()
		return nil, err
	}
	r.log.Debug("loaded index artifact", "name", name)
	return idx, nil
}

// Files returns the registered logical names in registration order.
func (r *Registry) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ReadIDs returns all read IDs of one container. With physicalOrder they
// come back sorted by ascending physical offset — the canonical efficient
// traversal order for that file.
func (r *Registry) ReadIDs(name string, physicalOrder bool) ([]string, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	ids := idx.ReadIDs()
	if physicalOrder {
		return idx.SortByOffset(ids)
	}
	return ids, nil
}

// IterateAll yields every (file, read ID) pair: files in registration
// order, reads within a file in ascending physical offset order. Fetching
// in this order gives sequential access on rotating media. The sequence is
// lazy; a fresh call restarts it. A load failure is yielded once as a
// non-nil error and ends the sequence.
func (r *Registry) IterateAll() iter.Seq2[api.Ref, error] {
	return func(yield func(api.Ref, error) bool) {
		for _, name := range r.Files() {
			ids, err := r.ReadIDs(name, true)
			if err != nil {
				yield(api.Ref{File: name}, err)
				return
			}
			for _, id := range ids {
				if !yield(api.Ref{File: name, ReadID: id}, nil) {
					return
				}
			}
		}
	}
}

// ResolveOffsets resolves physical offsets for a batch of read IDs in one
// container, preserving input order. This is the batch capability the
// fetch-order planner goes through.
func (r *Registry) ResolveOffsets(name string, ids []string) ([]int64, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return idx.ResolveOffsets(ids)
}

// FetchSignal returns the raw samples for one read.
func (r *Registry) FetchSignal(name, id string) ([]int16, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return idx.FetchSignal(id)
}

// FetchCalibrated returns the picoampere-converted samples for one read.
func (r *Registry) FetchCalibrated(name, id string) ([]float32, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return idx.FetchCalibrated(id)
}

// SignalLength returns the sample count for one read without container I/O.
func (r *Registry) SignalLength(name, id string) (int, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return 0, err
	}
	return idx.SignalLength(id)
}

// Calibration returns the calibration pair for one read.
func (r *Registry) Calibration(name, id string) (api.Calibration, error) {
	idx, err := r.Resolve(name)
	if err != nil {
		return api.Calibration{}, err
	}
	return idx.Calibration(id)
}

// Close releases every live handle. The registry is not usable afterwards.
func (r *Registry) Close() error {
	var first error
	r.handles.Range(func(k, v any) bool {
		if err := v.(*sigidx.Index).Close(); err != nil && first == nil {
			first = err
		}
		r.handles.Delete(k)
		return true
	})
	return first
}
