package tilereader

// Error handling follows spec.md §7's four error kinds, but per its own
// rule ("errors do not propagate across tile boundaries; the manager
// surfaces nothing to its caller other than the drop_* descriptor
// side-effects") none of them are exported sentinels a caller matches
// against with errors.Is:
//
//  1. A corrupt record is logged by internal/reader and the feature is
//     skipped. An unresolvable type index is logged by internal/feature
//     and replaced by a stub type; the feature is kept.
//  2. Container I/O failure aborts the tile without retry; logged by
//     Manager.enqueue's run closure and left for the next viewport
//     change to re-enqueue if the tile becomes visible again.
//  3. Cancellation is not an error — TileInfo.Cancelled is polled, never
//     wrapped or returned.
//  4. A nil LoadInfo (a caller-side contract breach, not a malformed
//     record) is a fatal assertion: internal/feature.New panics rather
//     than returning an error, since there is no tile-local recovery
//     path for a construction-time wiring bug.
