package tilereader

import "sort"

// LiveTileSet holds the TileInfo for every tile currently scheduled or
// running. It is single-writer: only the Manager's control goroutine
// ever mutates it; workers never touch it.
type LiveTileSet struct {
	tiles map[TileKey]*TileInfo
}

// newLiveTileSet creates an empty LiveTileSet.
func newLiveTileSet() *LiveTileSet {
	return &LiveTileSet{tiles: make(map[TileKey]*TileInfo)}
}

// Len returns the number of live tiles.
func (s *LiveTileSet) Len() int { return len(s.tiles) }

// Get returns the TileInfo for key, if present.
func (s *LiveTileSet) Get(key TileKey) (*TileInfo, bool) {
	ti, ok := s.tiles[key]
	return ti, ok
}

// Has reports whether key is present.
func (s *LiveTileSet) Has(key TileKey) bool {
	_, ok := s.tiles[key]
	return ok
}

// insert adds info to the set, keyed by info.Key().
func (s *LiveTileSet) insert(info *TileInfo) {
	s.tiles[info.key] = info
}

// remove deletes key from the set, if present.
func (s *LiveTileSet) remove(key TileKey) {
	delete(s.tiles, key)
}

// clear empties the set.
func (s *LiveTileSet) clear() {
	s.tiles = make(map[TileKey]*TileInfo)
}

// Keys returns the set's TileKeys in (Z, X, Y) order, for deterministic
// iteration in tests and logs.
func (s *LiveTileSet) Keys() []TileKey {
	keys := make([]TileKey, 0, len(s.tiles))
	for k := range s.tiles {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Difference returns the keys present in s but not in other — the
// outdated set in Manager.Update's incremental branch, computed as
// liveTiles.Difference(newTileSet). The incoming set is found
// separately, by checking each new key with Has.
func (s *LiveTileSet) Difference(other map[TileKey]struct{}) []TileKey {
	var diff []TileKey
	for k := range s.tiles {
		if _, ok := other[k]; !ok {
			diff = append(diff, k)
		}
	}
	sort.Slice(diff, func(i, j int) bool { return diff[i].Less(diff[j]) })
	return diff
}

// toSet converts a TileKey slice into a membership set, for use with
// Difference and incoming-tile lookups.
func toSet(keys []TileKey) map[TileKey]struct{} {
	set := make(map[TileKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
