package reader

import "errors"

// errCancelled marks a decode aborted mid-way by TileInfo.cancelled.
// Never logged as a corrupt record; Task.Run treats it as a prompt,
// silent stop (spec.md §7.3: "Cancellation — not an error").
var errCancelled = errors.New("reader: cancelled")

