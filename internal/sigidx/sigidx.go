// Package sigidx builds, persists, and serves the per-container signal
// index: read ID -> (physical offset, sample count, calibration).
//
// The persisted artifact is a SQLite database (see Save for the schema).
// Load pulls every row into an in-memory map and closes the database, so
// point lookups and fetches never touch SQLite on the hot path — the map
// plus ReadAt on the container file is the whole access cost.
package sigidx

import (
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/basecall-labs/sigseek/api"
	"github.com/basecall-labs/sigseek/internal/container"
)

// FormatVersion is the artifact schema version recorded in the meta table.
const FormatVersion = 1

// ArtifactPath derives the sidecar index path for a container path.
func ArtifactPath(containerPath string) string {
	return containerPath + api.IndexSuffix
}

type entry struct {
	offset  int64
	samples uint32
	cal     api.Calibration
}

// Index is the per-container handle: an in-memory offset index over one
// open container file. Populate it with Build (scan the container) or Load
// (read a persisted artifact). All read methods are safe for concurrent use
// once the index is populated.
type Index struct {
	reader  *container.Reader
	entries map[uuid.UUID]entry
	order   []uuid.UUID // container order (Build) or artifact row order (Load)
}

// New opens the container file. The returned index is empty until Build or
// Load populates it.
func New(containerPath string) (*Index, error) {
	r, err := container.Open(containerPath)
	if err != nil {
		return nil, err
	}
	return &Index{reader: r}, nil
}

// Build scans the container sequentially and populates the index in memory.
func (x *Index) Build() error {
	entries := make(map[uuid.UUID]entry, x.reader.Count())
	order := make([]uuid.UUID, 0, x.reader.Count())
	err := x.reader.Scan(func(rec container.Record, offset int64) error {
		entries[rec.ReadID] = entry{offset: offset, samples: rec.NumSamples, cal: rec.Calibration}
		order = append(order, rec.ReadID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("build index for %s: %w", x.reader.Path(), err)
	}
	x.entries = entries
	x.order = order
	return nil
}

// Save persists the index as a SQLite artifact at path, replacing any
// existing file. All rows go in a single transaction with a prepared
// statement; durability pragmas are relaxed because a half-written artifact
// is simply rebuilt.
func (x *Index) Save(path string) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}

	schema := `
	CREATE TABLE meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	) WITHOUT ROWID;

	CREATE TABLE reads (
		read_id      BLOB PRIMARY KEY,
		offset       INTEGER NOT NULL,
		samples      INTEGER NOT NULL,
		calib_offset REAL NOT NULL,
		calib_scale  REAL NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create artifact schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('format_version', ?)`,
		fmt.Sprint(FormatVersion)); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO reads (read_id, offset, samples, calib_offset, calib_scale)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, id := range x.order {
		e := x.entries[id]
		if _, err := stmt.Exec(id[:], e.offset, int64(e.samples), e.cal.Offset, e.cal.Scale); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert read %s: %w", id, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted artifact into memory. A missing, unreadable, or
// schema-incompatible artifact surfaces api.ErrArtifactUnavailable.
func (x *Index) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'format_version'`).Scan(&version); err != nil {
		return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
	}
	if version != fmt.Sprint(FormatVersion) {
		return fmt.Errorf("%w: %s: format version %s", api.ErrArtifactUnavailable, path, version)
	}

	rows, err := db.Query(`
		SELECT read_id, offset, samples, calib_offset, calib_scale
		FROM reads ORDER BY rowid
	`)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[uuid.UUID]entry)
	var order []uuid.UUID
	for rows.Next() {
		var (
			raw     []byte
			off     int64
			samples int64
			cOff    float64
			cScale  float64
		)
		if err := rows.Scan(&raw, &off, &samples, &cOff, &cScale); err != nil {
			return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
		}
		if len(raw) != 16 {
			return fmt.Errorf("%w: %s: read_id length %d", api.ErrArtifactUnavailable, path, len(raw))
		}
		var id uuid.UUID
		copy(id[:], raw)
		entries[id] = entry{
			offset:  off,
			samples: uint32(samples),
			cal:     api.Calibration{Offset: float32(cOff), Scale: float32(cScale)},
		}
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", api.ErrArtifactUnavailable, path, err)
	}
	x.entries = entries
	x.order = order
	return nil
}

// ReadIDs returns every read ID, in container/artifact order.
func (x *Index) ReadIDs() []string {
	out := make([]string, len(x.order))
	for i, id := range x.order {
		out[i] = id.String()
	}
	return out
}

// Len returns the number of indexed reads.
func (x *Index) Len() int { return len(x.entries) }

func (x *Index) lookup(id string) (entry, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return entry{}, fmt.Errorf("%w: %q", api.ErrNotFound, id)
	}
	e, ok := x.entries[key]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", api.ErrNotFound, id)
	}
	return e, nil
}

// ResolveOffsets resolves physical offsets for a batch of read IDs,
// preserving input order.
func (x *Index) ResolveOffsets(ids []string) ([]int64, error) {
	offsets := make([]int64, len(ids))
	for i, id := range ids {
		e, err := x.lookup(id)
		if err != nil {
			return nil, err
		}
		offsets[i] = e.offset
	}
	return offsets, nil
}

// SortByOffset returns ids reordered by ascending physical offset. The sort
// is stable: ids sharing an offset keep their input order.
func (x *Index) SortByOffset(ids []string) ([]string, error) {
	offsets, err := x.ResolveOffsets(ids)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	copy(out, ids)
	perm := make([]int, len(ids))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return offsets[perm[a]] < offsets[perm[b]] })
	for i, p := range perm {
		out[i] = ids[p]
	}
	return out, nil
}

// FetchSignal reads the raw samples for one read ID from the container.
func (x *Index) FetchSignal(id string) ([]int16, error) {
	e, err := x.lookup(id)
	if err != nil {
		return nil, err
	}
	return x.reader.ReadSignalAt(e.offset, e.samples)
}

// FetchCalibrated reads the samples and converts them to picoamperes:
// (raw + offset) * scale, in one pass.
func (x *Index) FetchCalibrated(id string) ([]float32, error) {
	e, err := x.lookup(id)
	if err != nil {
		return nil, err
	}
	raw, err := x.reader.ReadSignalAt(e.offset, e.samples)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw))
	for i, s := range raw {
		out[i] = (float32(s) + e.cal.Offset) * e.cal.Scale
	}
	return out, nil
}

// SignalLength returns the sample count for one read ID, from the index
// alone — no container I/O.
func (x *Index) SignalLength(id string) (int, error) {
	e, err := x.lookup(id)
	if err != nil {
		return 0, err
	}
	return int(e.samples), nil
}

// Calibration returns the calibration pair for one read ID.
func (x *Index) Calibration(id string) (api.Calibration, error) {
	e, err := x.lookup(id)
	if err != nil {
		return api.Calibration{}, err
	}
	return e.cal, nil
}

// Close releases the underlying container file.
func (x *Index) Close() error { return x.reader.Close() }
