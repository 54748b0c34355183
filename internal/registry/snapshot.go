package registry

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// snapshotVersion guards the snapshot layout; FromSnapshot rejects other
// versions instead of misreading them.
const snapshotVersion = 1

type snapshot struct {
	Version int             `json:"version"`
	Files   []snapshotEntry `json:"files"`
}

type snapshotEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Snapshot serializes the registry's durable state: the name->path bindings
// in registration order. Live handles are deliberately excluded — they hold
// open files and rebuild transparently from the on-disk artifacts after
// FromSnapshot.
func (r *Registry) Snapshot() ([]byte, error) {
	r.mu.Lock()
	s := snapshot{Version: snapshotVersion, Files: make([]snapshotEntry, 0, len(r.order))}
	for _, name := range r.order {
		s.Files = append(s.Files, snapshotEntry{Name: name, Path: r.paths[name]})
	}
	r.mu.Unlock()
	return oj.Marshal(&s)
}

// FromSnapshot reconstructs a registry from Snapshot output. The result
// behaves like a freshly-registered-but-unloaded registry: the first
// Resolve per file reloads its handle from the artifact, and an artifact
// deleted since the snapshot surfaces api.ErrArtifactUnavailable then.
func FromSnapshot(data []byte, opts Options) (*Registry, error) {
	var s snapshot
	if err := oj.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	r := NewWithOptions(opts)
	for _, e := range s.Files {
		if _, ok := r.paths[e.Name]; !ok {
			r.order = append(r.order, e.Name)
		}
		r.paths[e.Name] = e.Path
	}
	return r, nil
}
