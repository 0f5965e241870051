package bitio

import "testing"

func TestNewReader_InitialState(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	r := NewReader(data)
	if r.eos {
		t.Error("unexpected eos after init")
	}
	if r.pos != 8 {
		t.Errorf("pos = %d, want 8 (all bytes loaded)", r.pos)
	}
}

func TestReader_ReadBits_SingleByte(t *testing.T) {
	// 0xA5 = 1010_0101; lowest bits read first.
	data := []byte{0xA5, 0x00}
	r := NewReader(data)

	if v := r.ReadBits(4); v != 0x5 {
		t.Errorf("ReadBits(4) = 0x%x, want 0x5", v)
	}
	if v := r.ReadBits(4); v != 0xA {
		t.Errorf("ReadBits(4) = 0x%x, want 0xA", v)
	}
}

func TestReader_ReadBits_MultipleBytes(t *testing.T) {
	data := []byte{0xFF, 0x00, 0xAB, 0xCD}
	r := NewReader(data)

	if v := r.ReadBits(8); v != 0xFF {
		t.Errorf("ReadBits(8) = 0x%x, want 0xFF", v)
	}
	if v := r.ReadBits(8); v != 0x00 {
		t.Errorf("ReadBits(8) = 0x%x, want 0x00", v)
	}
	if v := r.ReadBits(4); v != 0xB {
		t.Errorf("ReadBits(4) = 0x%x, want 0xB", v)
	}
	if v := r.ReadBits(4); v != 0xA {
		t.Errorf("ReadBits(4) = 0x%x, want 0xA", v)
	}
}

func TestReader_Align(t *testing.T) {
	// header2 for a Line feature: 4-bit ptsCount=0, 4-bit ptsMask=0b0101,
	// packed into byte 0; byte 1 begins the varint offset table.
	data := []byte{0x50, 0x2A}
	r := NewReader(data)

	ptsCount := r.ReadBits(4)
	mask := r.ReadBits(4)
	if ptsCount != 0 {
		t.Fatalf("ptsCount = %d, want 0", ptsCount)
	}
	if mask != 0x5 {
		t.Fatalf("mask = 0x%x, want 0x5", mask)
	}

	off := r.Align()
	if off != 1 {
		t.Fatalf("Align() = %d, want 1", off)
	}

	vr := NewVarintReader(data, off)
	v, err := vr.ReadVarint()
	if err != nil {
		t.Fatalf("ReadVarint: %v", err)
	}
	if v != 0x2A {
		t.Errorf("varint = %d, want 42", v)
	}
}

func TestReader_Align_AlreadyAligned(t *testing.T) {
	data := []byte{0xFF, 0x2A}
	r := NewReader(data)
	r.ReadBits(8)
	if off := r.Align(); off != 1 {
		t.Errorf("Align() = %d, want 1", off)
	}
}

func TestReader_EndOfStream(t *testing.T) {
	data := []byte{0x01}
	r := NewReader(data)
	r.ReadBits(8)
	r.ReadBits(8)
	if !r.EndOfStream() {
		t.Error("expected EndOfStream after reading past buffer")
	}
}
