package api

// ContainerExt is the extension of signal container files discovered by
// directory registration and the build scheduler.
const ContainerExt = ".sig"

// IndexSuffix is appended to a container's file name to derive the path of
// its sidecar index artifact ("run1.sig" -> "run1.sig.idx"). This suffix is
// the only persisted-state layout contract the registry exposes.
const IndexSuffix = ".idx"

// Calibration converts raw signal samples to picoamperes:
// pA = (raw + Offset) * Scale.
type Calibration struct {
	Offset float32 `json:"offset"`
	Scale  float32 `json:"scale"`
}

// Ref addresses one record: the logical container name (base name of the
// container path) and the record's read ID in canonical UUID form.
type Ref struct {
	File   string `json:"file"`
	ReadID string `json:"read_id"`
}

// Medium classifies the storage device backing a path.
type Medium int

const (
	// MediumUnknown means the probe could not classify the device.
	// Schedulers treat it like a rotating medium (the conservative choice).
	MediumUnknown Medium = iota
	MediumRotating
	MediumNonRotating
)

func (m Medium) String() string {
	switch m {
	case MediumRotating:
		return "rotating"
	case MediumNonRotating:
		return "non-rotating"
	default:
		return "unknown"
	}
}
