package feature

import "testing"

func TestNew_ParsesHeaderByte(t *testing.T) {
	data := newRecordBuilder(buildHeaderByte(KindLine, false, false, false, false, false), nil, CodingParams{}).finish()
	f, err := New(data, 42, defaultLoadInfo(defaultContainer()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer Release(f)

	if f.Kind() != KindLine {
		t.Fatalf("Kind() = %v, want Line", f.Kind())
	}
	if f.ID() != 42 {
		t.Fatalf("ID() = %d, want 42", f.ID())
	}
}

func TestNew_RejectsEmptyRecord(t *testing.T) {
	_, err := New(nil, 1, defaultLoadInfo(defaultContainer()))
	if err == nil {
		t.Fatal("expected error for empty record")
	}
}

func TestParseTypes_ResolvesViaClassificator(t *testing.T) {
	header := buildHeaderByte(KindPoint, false, false, false, false, false)
	data := newRecordBuilder(header, []uint32{1, 2}, CodingParams{}).pointCentre(5, -5).finish()
	f, err := New(data, 1, defaultLoadInfo(defaultContainer()))
	if err != nil {
		t.Fatal(err)
	}
	defer Release(f)

	if err := f.ParseTypes(); err != nil {
		t.Fatalf("ParseTypes: %v", err)
	}
	types := f.Types()
	if len(types) != 2 || types[0] != 100 || types[1] != 200 {
		t.Fatalf("Types() = %v, want [100 200]", types)
	}
}

func TestParseTypes_UnresolvedIndexSubstitutesStub(t *testing.T) {
	header := buildHeaderByte(KindPoint, false, false, false, false, false)
	data := newRecordBuilder(header, []uint32{999}, CodingParams{}).pointCentre(0, 0).finish()
	f, err := New(data, 1, defaultLoadInfo(defaultContainer()))
	if err != nil {
		t.Fatal(err)
	}
	defer Release(f)

	if err := f.ParseTypes(); err != nil {
		t.Fatalf("ParseTypes: %v", err)
	}
	if got := f.Types()[0]; got != StubType {
		t.Fatalf("Types()[0] = %v, want StubType", got)
	}
}

func TestParseTypes_IsIdempotent(t *testing.T) {
	header := buildHeaderByte(KindPoint, false, false, false, false, false)
	data := newRecordBuilder(header, []uint32{1}, CodingParams{}).pointCentre(0, 0).finish()
	f, err := New(data, 1, defaultLoadInfo(defaultContainer()))
	if err != nil {
		t.Fatal(err)
	}
	defer Release(f)

	if err := f.ParseTypes(); err != nil {
		t.Fatal(err)
	}
	posAfterFirst := f.pos
	if err := f.ParseTypes(); err != nil {
		t.Fatal(err)
	}
	if f.pos != posAfterFirst {
		t.Fatalf("second ParseTypes advanced cursor: %d -> %d", posAfterFirst, f.pos)
	}
}

func TestParseCommon_PointCentre(t *testing.T) {
	coding := CodingParams{BaseX: 100, BaseY: 200}
	header := buildHeaderByte(KindPoint, false, false, false, false, false)
	data := newRecordBuilder(header, nil, coding).pointCentre(10, -3).finish()
	container := defaultContainer()
	container.coding = coding
	f, err := New(data, 1, defaultLoadInfo(container))
	if err != nil {
		t.Fatal(err)
	}
	defer Release(f)

	if err := f.ParseCommon(); err != nil {
		t.Fatalf("ParseCommon: %v", err)
	}
	centre, ok := f.Centre()
	if !ok {
		t.Fatal("expected centre to be set")
	}
	if centre.X != 110 || centre.Y != 197 {
		t.Fatalf("Centre() = %+v, want {110 197}", centre)
	}
}

func TestParseCommon_HouseAndRef(t *testing.T) {
	coding := CodingParams{}
	header := buildHeaderByte(KindPoint, false, false, true, true, false)
	b := newRecordBuilder(header, nil, coding)
	b.w.WriteVarint(3)
	b.w.WriteBits(uint32('5'), 8)
	b.w.WriteBits(uint32('2'), 8)
	b.w.WriteBits(uint32('A'), 8)
	b.w.WriteVarint(2)
	b.w.WriteBits(uint32('N'), 8)
	b.w.WriteBits(uint32('1'), 8)
	data := b.pointCentre(0, 0).finish()

	f, err := New(data, 1, defaultLoadInfo(defaultContainer()))
	if err != nil {
		t.Fatal(err)
	}
	defer Release(f)
	if err := f.ParseCommon(); err != nil {
		t.Fatalf("ParseCommon: %v", err)
	}
	if f.HouseNumber() != "52A" {
		t.Fatalf("HouseNumber() = %q, want %q", f.HouseNumber(), "52A")
	}
	if f.Ref() != "N1" {
		t.Fatalf("Ref() = %q, want %q", f.Ref(), "N1")
	}
}
