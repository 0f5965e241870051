// Package tilereader implements a viewport-driven tile read coordinator
// for a vector map renderer.
//
// It watches a logical camera projected onto the Web-Mercator plane and
// keeps a live set of tiles — one regular quadtree cell per visible
// area at the camera's current zoom level — whose features are being
// (or have been) decoded from an on-disk map container. Decoding a tile
// walks a binary feature stream, classifies features, parses geometry
// at a scale-appropriate level of detail, and hands decoded features to
// a caller-supplied engine context.
//
// The package does not know how the container is framed on disk, how
// feature types are named, or how the rendering engine draws what it
// receives: those are external collaborators, described by the
// interfaces in external.go.
package tilereader
