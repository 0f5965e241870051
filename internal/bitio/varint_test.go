package bitio

import "testing"

func TestVarintReader_SingleByte(t *testing.T) {
	r := NewVarintReader([]byte{0x00, 0x01, 0x7f}, 0)
	for _, want := range []uint64{0, 1, 0x7f} {
		v, err := r.ReadVarint()
		if err != nil {
			t.Fatalf("ReadVarint: %v", err)
		}
		if v != want {
			t.Errorf("ReadVarint() = %d, want %d", v, want)
		}
	}
}

func TestVarintReader_MultiByte(t *testing.T) {
	// 300 = 0b1_0010_1100 -> LEB128: 0xAC 0x02
	r := NewVarintReader([]byte{0xAC, 0x02}, 0)
	v, err := r.ReadVarint()
	if err != nil {
		t.Fatalf("ReadVarint: %v", err)
	}
	if v != 300 {
		t.Errorf("ReadVarint() = %d, want 300", v)
	}
}

func TestVarintReader_Truncated(t *testing.T) {
	r := NewVarintReader([]byte{0x80}, 0)
	if _, err := r.ReadVarint(); err == nil {
		t.Error("expected error for truncated varint")
	}
}

func TestVarintReader_SeekAndPos(t *testing.T) {
	r := NewVarintReader([]byte{0x01, 0x02, 0x03}, 1)
	if r.Pos() != 1 {
		t.Fatalf("Pos() = %d, want 1", r.Pos())
	}
	v, err := r.ReadVarint()
	if err != nil || v != 2 {
		t.Fatalf("ReadVarint() = %d, %v, want 2, nil", v, err)
	}
	r.Seek(0)
	v, err = r.ReadVarint()
	if err != nil || v != 1 {
		t.Fatalf("ReadVarint() after Seek = %d, %v, want 1, nil", v, err)
	}
}
