package tilereader

import "fmt"

// TileKey identifies one cell of the regular quadtree grid at a given
// zoom level. Two TileKeys are equal iff all three coordinates match.
type TileKey struct {
	X, Y int32
	Z    uint8
}

// Less orders TileKeys lexicographically by (Z, X, Y), giving LiveTileSet
// a stable iteration order for deterministic tests and logs.
func (k TileKey) Less(other TileKey) bool {
	if k.Z != other.Z {
		return k.Z < other.Z
	}
	if k.X != other.X {
		return k.X < other.X
	}
	return k.Y < other.Y
}

func (k TileKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X, k.Y, k.Z)
}
