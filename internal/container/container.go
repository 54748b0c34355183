// Package container implements the on-disk signal container format: a fixed
// header followed by an append-only stream of variable-length signal records.
//
// Layout (little endian):
//
//	header:  magic u32 | version u8 | pad [3]u8 | record count u64
//	record:  read_id [16]u8 | n_samples u32 | calib_offset f32 | calib_scale f32 | samples [n_samples]i16
//
// The byte offset of a record's start within the file is its physical offset;
// ascending-offset order approximates on-disk sequential order.
package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"

	"github.com/basecall-labs/sigseek/api"
)

const (
	Magic   = 0x53494743 // "SIGC"
	Version = 1

	headerSize     = 16
	recordHeadSize = 16 + 4 + 4 + 4
)

// Record is the metadata of one signal record, without its samples.
type Record struct {
	ReadID      uuid.UUID
	NumSamples  uint32
	Calibration api.Calibration
}

type header struct {
	magic   uint32
	version uint8
	count   uint64
}

func decodeHeader(buf []byte) (header, error) {
	h := header{
		magic:   binary.LittleEndian.Uint32(buf[0:4]),
		version: buf[4],
		count:   binary.LittleEndian.Uint64(buf[8:16]),
	}
	if h.magic != Magic {
		return h, fmt.Errorf("%w: bad magic %#x", api.ErrCorruptContainer, h.magic)
	}
	if h.version != Version {
		return h, fmt.Errorf("%w: unsupported version %d", api.ErrCorruptContainer, h.version)
	}
	return h, nil
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	buf[4] = h.version
	binary.LittleEndian.PutUint64(buf[8:16], h.count)
	return buf
}

// Reader provides sequential and random access to a container file.
// ReadSignalAt is safe for concurrent use; Scan is not.
type Reader struct {
	f     *os.File
	path  string
	count uint64
}

// Open opens a container file and validates its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: short header", api.ErrCorruptContainer, path)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{f: f, path: path, count: h.count}, nil
}

// Count returns the record count from the header.
func (r *Reader) Count() uint64 { return r.count }

// Path returns the container path the reader was opened with.
func (r *Reader) Path() string { return r.path }

// Scan walks all records sequentially, calling fn with each record's
// metadata and the byte offset of its start. Sample payloads are skipped,
// not read. Scan is a single pass; it does not rewind for the caller.
func (r *Reader) Scan(fn func(rec Record, offset int64) error) error {
	if _, err := r.f.Seek(headerSize, io.SeekStart); err != nil {
		return err
	}
	offset := int64(headerSize)
	head := make([]byte, recordHeadSize)
	for i := uint64(0); i < r.count; i++ {
		if _, err := io.ReadFull(r.f, head); err != nil {
			return fmt.Errorf("%w: %s: truncated record at offset %d", api.ErrCorruptContainer, r.path, offset)
		}
		rec := decodeRecordHead(head)
		if err := fn(rec, offset); err != nil {
			return err
		}
		payload := int64(rec.NumSamples) * 2
		if _, err := r.f.Seek(payload, io.SeekCurrent); err != nil {
			return err
		}
		offset += recordHeadSize + payload
	}
	return nil
}

// ReadRecordAt reads the record metadata at the given physical offset.
func (r *Reader) ReadRecordAt(offset int64) (Record, error) {
	head := make([]byte, recordHeadSize)
	if _, err := r.f.ReadAt(head, offset); err != nil {
		return Record{}, fmt.Errorf("%w: %s: record head at offset %d", api.ErrCorruptContainer, r.path, offset)
	}
	return decodeRecordHead(head), nil
}

// ReadSignalAt reads n raw samples of the record starting at offset.
func (r *Reader) ReadSignalAt(offset int64, n uint32) ([]int16, error) {
	buf := make([]byte, int(n)*2)
	if _, err := r.f.ReadAt(buf, offset+recordHeadSize); err != nil {
		return nil, fmt.Errorf("%w: %s: signal at offset %d", api.ErrCorruptContainer, r.path, offset)
	}
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples, nil
}

func (r *Reader) Close() error { return r.f.Close() }

func decodeRecordHead(buf []byte) Record {
	var rec Record
	copy(rec.ReadID[:], buf[0:16])
	rec.NumSamples = binary.LittleEndian.Uint32(buf[16:20])
	rec.Calibration.Offset = math.Float32frombits(binary.LittleEndian.Uint32(buf[20:24]))
	rec.Calibration.Scale = math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28]))
	return rec
}

// Writer appends records to a new container file. Not safe for concurrent
// use. Close finalizes the header; a writer that is never closed leaves a
// zero-count header behind.
type Writer struct {
	f      *os.File
	count  uint64
	offset int64
	err    error
}

// Create creates a new container file, truncating any existing one.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create container %s: %w", path, err)
	}
	if _, err := f.Write(encodeHeader(header{magic: Magic, version: Version})); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, offset: headerSize}, nil
}

// Append writes one record and returns the physical offset it was placed at.
func (w *Writer) Append(id uuid.UUID, samples []int16, cal api.Calibration) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	buf := make([]byte, recordHeadSize+len(samples)*2)
	copy(buf[0:16], id[:])
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(samples)))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(cal.Offset))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(cal.Scale))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[recordHeadSize+i*2:], uint16(s))
	}
	if _, err := w.f.Write(buf); err != nil {
		w.err = err
		return 0, err
	}
	offset := w.offset
	w.offset += int64(len(buf))
	w.count++
	return offset, nil
}

// Close rewrites the header with the final record count and syncs.
func (w *Writer) Close() error {
	if w.err != nil {
		_ = w.f.Close()
		return w.err
	}
	hdr := encodeHeader(header{magic: Magic, version: Version, count: w.count})
	if _, err := w.f.WriteAt(hdr, 0); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}
