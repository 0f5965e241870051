package tilereader

import (
	"github.com/deepteams/tilereader/internal/feature"
	"github.com/deepteams/tilereader/internal/reader"
	"github.com/deepteams/tilereader/internal/scales"
	"github.com/deepteams/tilereader/internal/workpool"
)

// Manager is the Read Manager: component D of the tile read
// coordinator (spec.md §4.D). It watches a sequence of viewport
// updates, keeps a live set of tiles matching the current viewport,
// and schedules Tile Reader Tasks onto a bounded worker pool.
//
// Manager is not safe for concurrent Update/Stop calls — per spec.md
// §5, it is meant to run on a single control thread (the render
// thread in practice) while workers execute reader tasks concurrently
// underneath it. The single-goroutine rule is a contract on callers;
// Manager takes no lock to enforce it.
type Manager struct {
	opts ManagerOptions

	model         FeatureModel
	container     MapContainer
	classificator feature.Classificator // wrapped in an LRU cache once, at construction time
	memIndex      MemoryIndex
	metadata      MetadataSource
	engine        EngineContext

	pool *workpool.Pool

	extent   scales.Extent
	maxScale int

	currentViewport Projection
	hasViewport     bool
	liveTiles       *LiveTileSet
}

// NewManager constructs a Manager and starts its worker pool. model,
// container, classificator, memIndex, and engine are required; metadata
// may be nil if the caller's features carry no out-of-line metadata.
func NewManager(opts ManagerOptions, model FeatureModel, container MapContainer, classificator Classificator, memIndex MemoryIndex, metadata MetadataSource, engine EngineContext) (*Manager, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	maxScale := opts.MaxScale
	if maxScale == 0 {
		maxScale = container.LastScale()
	}

	m := &Manager{
		opts:          opts,
		model:         model,
		container:     container,
		classificator: feature.NewCachedClassificator(classificatorAdapter{c: classificator}, 0),
		memIndex:      memIndex,
		metadata:      metadata,
		engine:        engine,
		pool:          workpool.New(opts.Workers, opts.QueueCapacity),
		extent: scales.Extent{
			MinX: opts.WorldExtent.MinX, MinY: opts.WorldExtent.MinY,
			MaxX: opts.WorldExtent.MaxX, MaxY: opts.WorldExtent.MaxY,
		},
		maxScale:  maxScale,
		liveTiles: newLiveTileSet(),
	}
	return m, nil
}

// LiveTiles returns the manager's current live tile set, for tests and
// diagnostics. Callers must not mutate the returned set.
func (m *Manager) LiveTiles() *LiveTileSet {
	return m.liveTiles
}

// toScalesViewport converts a Projection into the scales package's
// Viewport shape.
func toScalesViewport(p Projection) scales.Viewport {
	corners := p.Corners()
	var sc [4]scales.Point
	for i, c := range corners {
		sc[i] = scales.Point{X: c.X, Y: c.Y}
	}
	clip := p.ClipRect()
	return scales.Viewport{
		Corners:  sc,
		ClipRect: scales.Rect{MinX: clip.MinX, MinY: clip.MinY, MaxX: clip.MaxX, MaxY: clip.MaxY},
	}
}

// cellRect computes the mercator rectangle of one tile cell.
func (m *Manager) cellRect(key TileKey) MercatorRect {
	r := scales.CellSize(m.extent, int(key.Z))
	minX := m.extent.MinX + float64(key.X)*r
	minY := m.extent.MinY + float64(key.Y)*r
	return MercatorRect{MinX: minX, MinY: minY, MaxX: minX + r, MaxY: minY + r}
}

// Update implements spec.md §4.D's update protocol: the no-op
// short-circuit, full-reset vs incremental diff, and survivor
// re-prioritisation via front-insertion.
func (m *Manager) Update(newViewport Projection) {
	if m.hasViewport && m.currentViewport.Equal(newViewport) {
		return
	}

	viewport := toScalesViewport(newViewport)
	newScale := scales.TileScale(viewport, m.extent, m.maxScale)
	newKeys := scales.Enumerate(viewport, m.extent, newScale)

	tileKeys := make([]TileKey, len(newKeys))
	for i, k := range newKeys {
		tileKeys[i] = toTileKey(k)
	}
	newTiles := toSet(tileKeys)

	reset := !m.hasViewport
	if m.hasViewport {
		oldViewport := toScalesViewport(m.currentViewport)
		oldScale := scales.TileScale(oldViewport, m.extent, m.maxScale)
		reset = scales.MustReset(oldScale, newScale, oldViewport.Corners, viewport.Corners)
	}

	if reset {
		m.resetTo(newTiles)
	} else {
		m.diffTo(newTiles)
	}

	m.currentViewport = newViewport
	m.hasViewport = true
	Logger().Debug("tilereader: viewport updated", "reset", reset, "liveTiles", m.liveTiles.Len())
}

// resetTo cancels every live tile, clears the set, and enqueues a
// fresh back-inserted task for every tile in newTiles.
func (m *Manager) resetTo(newTiles map[TileKey]struct{}) {
	for _, key := range m.liveTiles.Keys() {
		info, _ := m.liveTiles.Get(key)
		info.cancel()
	}
	m.liveTiles.clear()

	if m.engine != nil {
		m.engine.DropAll()
	}

	for key := range newTiles {
		m.spawn(key, false)
	}
}

// diffTo implements the incremental branch: cancel and drop outdated
// tiles, front-insert survivors to re-prioritise them, and back-insert
// fresh tasks for incoming tiles.
func (m *Manager) diffTo(newTiles map[TileKey]struct{}) {
	outdated := m.liveTiles.Difference(newTiles)
	for _, key := range outdated {
		info, _ := m.liveTiles.Get(key)
		info.cancel()
		m.liveTiles.remove(key)
	}
	if m.engine != nil && len(outdated) > 0 {
		m.engine.DropTiles(outdated)
	}

	for _, key := range m.liveTiles.Keys() {
		m.reprioritise(key)
	}

	for key := range newTiles {
		if m.liveTiles.Has(key) {
			continue
		}
		m.spawn(key, false)
	}
}

// spawn constructs a TileInfo for key, inserts it into liveTiles, and
// enqueues its reader task. front selects PushFront over PushBack.
func (m *Manager) spawn(key TileKey, front bool) {
	info := newTileInfo(key)
	m.liveTiles.insert(info)
	m.enqueue(info, front)
}

// reprioritise front-inserts a new reader task for an already-live
// tile without cancelling its existing TileInfo: per spec.md §4.D,
// survivors are not cancelled, so both runs proceed and the engine
// context's per-(TileKey, featureID) idempotency absorbs the overlap.
func (m *Manager) reprioritise(key TileKey) {
	info, ok := m.liveTiles.Get(key)
	if !ok {
		return
	}
	m.enqueue(info, true)
}

// enqueue builds a reader.Task for info and schedules it on the pool.
func (m *Manager) enqueue(info *TileInfo, front bool) {
	task := &reader.Task{
		Info:     info,
		Rect:     reader.MercatorRect(m.cellRect(info.Key())),
		Scale:    m.scaleForKey(info.Key()),
		Model:    featureModelAdapter{m: m.model},
		LoadInfo: m.loadInfo(),
		MemIndex: memIndexAdapter{idx: m.memIndex, info: info},
		Sink:     engineSink{engine: m.engine, key: info.Key()},
		Logger:   Logger(),
	}

	run := func() {
		if err := task.Run(info.Context()); err != nil {
			Logger().Error("tilereader: tile read aborted", "tile", info.Key(), "err", err)
		}
	}

	if front {
		m.pool.PushFront(run)
	} else {
		m.pool.PushBack(run)
	}
}

// scaleForKey resolves the geometry scale a tile's reader task should
// request: the zoom level itself, since spec.md §4.A uses the same
// integer for both quadtree depth and the Feature Decoder's scale
// parameter. Clamped to the container's last scale for safety when a
// survivor was spawned under an older, finer MaxScale.
func (m *Manager) scaleForKey(key TileKey) int {
	z := int(key.Z)
	if z > m.container.LastScale() {
		return m.container.LastScale()
	}
	return z
}

// loadInfo builds the per-task feature.LoadInfo, shared read-only by
// every feature a tile's reader task decodes.
func (m *Manager) loadInfo() *feature.LoadInfo {
	var meta feature.MetadataSource
	if m.metadata != nil {
		meta = metadataSourceAdapter{m: m.metadata}
	}
	return &feature.LoadInfo{
		Classificator: m.classificator,
		Container:     mapContainerAdapter{c: m.container},
		Metadata:      meta,
		Logger:        Logger(),
	}
}

// Stop implements spec.md §4.D's stop protocol: cancel every live
// tile, clear the set, and join the worker pool, discarding queued
// tasks.
func (m *Manager) Stop() {
	for _, key := range m.liveTiles.Keys() {
		info, _ := m.liveTiles.Get(key)
		info.cancel()
	}
	m.liveTiles.clear()
	if err := m.pool.Stop(); err != nil {
		Logger().Error("tilereader: worker pool stopped with an error", "err", err)
	}
}

// toTileKey converts a scales.Key into the root package's TileKey.
func toTileKey(k scales.Key) TileKey {
	return TileKey{X: k.X, Y: k.Y, Z: k.Z}
}
