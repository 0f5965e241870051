package feature

import "errors"

// ErrCorruptRecord marks a malformed feature record: bad varint,
// out-of-range field length, or a truncated stream. Per spec.md §7 this
// is never fatal to the tile — the Tile Reader Task logs it and skips
// the feature.
var ErrCorruptRecord = errors.New("feature: corrupt record")

// ErrWrongStage is returned when a caller asks for geometry of a kind
// the feature does not have (e.g. ParseTriangles on a Line feature).
var ErrWrongStage = errors.New("feature: wrong geometry kind for this stage")

// errMissingLoadInfo marks a caller-side contract breach: New was
// called with a nil LoadInfo. Per spec.md §7.4 this is a fatal
// assertion, not a recoverable condition — every construction path
// reachable from a Tile Reader Task always supplies one, so hitting
// this means the caller wired this package up wrong, not that a
// particular feature record is malformed.
var errMissingLoadInfo = errors.New("feature: feature constructed without a load-info handle")

// ErrContainerIO marks a failed read from a MapContainer's per-scale
// stream while fetching outer geometry. Per spec.md §7.2 this aborts
// the tile without retry; internal/reader checks errors.Is against
// this sentinel to tell it apart from a merely corrupt record.
var ErrContainerIO = errors.New("feature: container read failed")
