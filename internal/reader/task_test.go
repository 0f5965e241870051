package reader

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/deepteams/tilereader/internal/bitio"
	"github.com/deepteams/tilereader/internal/feature"
)

type fakeCancellable struct{ cancelled atomic.Bool }

func (f *fakeCancellable) Cancelled() bool { return f.cancelled.Load() }

type fakeSink struct{ features []DecodedFeature }

func (s *fakeSink) AppendFeature(f DecodedFeature) { s.features = append(s.features, f) }

type fakeMemIndex struct {
	acquired, released int
}

func (m *fakeMemIndex) Acquire() (Ticket, error) { m.acquired++; return struct{}{}, nil }
func (m *fakeMemIndex) Release(Ticket)           { m.released++ }

type fakeClassificator struct{}

func (fakeClassificator) Resolve(idx uint32) (feature.TypeID, bool) { return feature.TypeID(idx), true }

type fakeContainer struct{ coding feature.CodingParams }

func (c fakeContainer) DefaultCodingParams() feature.CodingParams { return c.coding }
func (c fakeContainer) ScaleReader(int) (feature.GeometryStream, bool) { return nil, false }
func (c fakeContainer) LastScale() int                                { return 15 }
func (c fakeContainer) ScaleCodes() []int                              { return []int{0, 5, 10, 15} }

func buildPointRecord(coding feature.CodingParams, dx, dy int64) []byte {
	w := bitio.NewWriter(32)
	w.WriteBits(uint32(feature.KindPoint), 8) // no presence flags
	w.WriteVarint(0)                          // typesCount
	w.WriteZigzag(dx)
	w.WriteZigzag(dy)
	return w.Finish()
}

type fakeFeatureModel struct{ records []FeatureRecord }

func (m *fakeFeatureModel) ForEach(ctx context.Context, rect MercatorRect, scale int, fn func(FeatureRecord) bool) error {
	for _, r := range m.records {
		if !fn(r) {
			return nil
		}
	}
	return nil
}

func TestTask_Run_DecodesAndForwardsFeatures(t *testing.T) {
	coding := feature.CodingParams{BaseX: 10, BaseY: 20}
	data := buildPointRecord(coding, 1, 2)
	model := &fakeFeatureModel{records: []FeatureRecord{{Data: data, Offset: 0}}}
	sink := &fakeSink{}
	mem := &fakeMemIndex{}

	task := &Task{
		Info:     &fakeCancellable{},
		Model:    model,
		LoadInfo: &feature.LoadInfo{Classificator: fakeClassificator{}, Container: fakeContainer{coding: coding}},
		MemIndex: mem,
		Sink:     sink,
	}

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.features) != 1 {
		t.Fatalf("got %d features, want 1", len(sink.features))
	}
	centre, ok := sink.features[0].Geometry.(feature.Point)
	if !ok || centre.X != 11 || centre.Y != 22 {
		t.Fatalf("Geometry = %+v, want Point{11 22}", sink.features[0].Geometry)
	}
	if mem.acquired != 1 || mem.released != 1 {
		t.Fatalf("ticket acquire/release = %d/%d, want 1/1", mem.acquired, mem.released)
	}
}

func TestTask_Run_StopsOnCancellationBeforeAppend(t *testing.T) {
	coding := feature.CodingParams{}
	data := buildPointRecord(coding, 0, 0)
	model := &fakeFeatureModel{records: []FeatureRecord{{Data: data, Offset: 0}, {Data: data, Offset: 1}}}
	sink := &fakeSink{}
	mem := &fakeMemIndex{}
	cancellable := &fakeCancellable{}
	cancellable.cancelled.Store(true)

	task := &Task{
		Info:     cancellable,
		Model:    model,
		LoadInfo: &feature.LoadInfo{Classificator: fakeClassificator{}, Container: fakeContainer{coding: coding}},
		MemIndex: mem,
		Sink:     sink,
	}

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.features) != 0 {
		t.Fatalf("expected no features appended once cancelled, got %d", len(sink.features))
	}
	if mem.released != 1 {
		t.Fatalf("expected memory ticket released on cancellation, got %d releases", mem.released)
	}
}

// cancelAfterAppendSink appends like fakeSink but cancels cancellable the
// moment the configured number of features have been appended, simulating a
// viewport update arriving mid-iteration rather than before Run starts.
type cancelAfterAppendSink struct {
	fakeSink
	cancellable *fakeCancellable
	cancelAfter int
}

func (s *cancelAfterAppendSink) AppendFeature(f DecodedFeature) {
	s.fakeSink.AppendFeature(f)
	if len(s.features) >= s.cancelAfter {
		s.cancellable.cancelled.Store(true)
	}
}

func TestTask_Run_StopsMidIterationOnCancellation(t *testing.T) {
	coding := feature.CodingParams{}
	data := buildPointRecord(coding, 0, 0)
	model := &fakeFeatureModel{records: []FeatureRecord{
		{Data: data, Offset: 0},
		{Data: data, Offset: 1},
		{Data: data, Offset: 2},
	}}
	cancellable := &fakeCancellable{}
	sink := &cancelAfterAppendSink{cancellable: cancellable, cancelAfter: 1}
	mem := &fakeMemIndex{}

	task := &Task{
		Info:     cancellable,
		Model:    model,
		LoadInfo: &feature.LoadInfo{Classificator: fakeClassificator{}, Container: fakeContainer{coding: coding}},
		MemIndex: mem,
		Sink:     sink,
	}

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.features) != 1 {
		t.Fatalf("expected exactly 1 feature appended before cancellation, got %d", len(sink.features))
	}
	if mem.released != 1 {
		t.Fatalf("expected memory ticket released on mid-iteration cancellation, got %d releases", mem.released)
	}
}

func TestTask_Run_SkipsCorruptFeatureAndContinues(t *testing.T) {
	coding := feature.CodingParams{}
	good := buildPointRecord(coding, 0, 0)
	corrupt := []byte{} // New() rejects empty records
	model := &fakeFeatureModel{records: []FeatureRecord{{Data: corrupt, Offset: 0}, {Data: good, Offset: 1}}}
	sink := &fakeSink{}
	mem := &fakeMemIndex{}

	task := &Task{
		Info:     &fakeCancellable{},
		Model:    model,
		LoadInfo: &feature.LoadInfo{Classificator: fakeClassificator{}, Container: fakeContainer{coding: coding}},
		MemIndex: mem,
		Sink:     sink,
	}

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.features) != 1 {
		t.Fatalf("expected the tile to continue past the corrupt record, got %d features", len(sink.features))
	}
}
