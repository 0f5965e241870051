package feature

import "sync"

// parsedFeaturePool recycles ParsedFeature values across tiles and
// features, avoiding a fresh allocation (and fresh backing slices for
// its geometry fields) for every one of a tile's potentially thousands
// of records. Mirrors the scratch-buffer reuse discipline of
// internal/pool, scoped here to a single struct type.
var parsedFeaturePool = sync.Pool{
	New: func() any { return &ParsedFeature{} },
}

func acquire() *ParsedFeature {
	return parsedFeaturePool.Get().(*ParsedFeature)
}

func release(f *ParsedFeature) {
	f.reset()
	parsedFeaturePool.Put(f)
}

// reset clears every field so a reused ParsedFeature starts from a
// clean state; slices are truncated to zero length rather than set to
// nil so their backing arrays are retained for the next Acquire.
func (f *ParsedFeature) reset() {
	f.data = nil
	f.info = nil
	f.id = 0
	f.st = 0
	f.kind = 0

	f.hasName, f.hasLayer, f.hasHouse, f.hasRef, f.hasAddendum = false, false, false, false, false

	f.types = f.types[:0]
	f.name = nil
	f.houseNumber = ""
	f.layer = 0
	f.rank = 0
	f.ref = ""

	f.centre = Point{}
	f.centreSet = false

	f.pos = 0
	f.typesEnd = 0

	f.ptsCount = 0
	f.ptsMask = 0
	f.simplMarkers = f.simplMarkers[:0]

	f.trgCount = 0
	f.trgMask = 0

	f.innerPoints = f.innerPoints[:0]
	f.innerTri = f.innerTri[:0]

	f.outerOffsets = nil
	f.outerBasePoint = Point{}
	f.outerBaseIsSet = false

	f.geomScale = 0
	f.geomIsSet = false
	f.polyline = f.polyline[:0]
	f.triStrip = f.triStrip[:0]
	f.limitRect = MercatorRect{}

	f.metaBlob = nil
	f.metaIdx = nil
}
