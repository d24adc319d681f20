package formats

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestReader_FixedWidthReads(t *testing.T) {
	data := make([]byte, 32)
	binary.LittleEndian.PutUint16(data[0:], 0xBEEF)
	binary.LittleEndian.PutUint32(data[4:], 0xDEADBEEF)
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint64(data[16:], math.Float64bits(-2.25))

	r := NewReader(data)

	if v, err := r.Uint16(0); err != nil || v != 0xBEEF {
		t.Errorf("Uint16(0) = %v, %v", v, err)
	}
	if v, err := r.Uint32(4); err != nil || v != 0xDEADBEEF {
		t.Errorf("Uint32(4) = %v, %v", v, err)
	}
	if v, err := r.Float32(8); err != nil || v != 1.5 {
		t.Errorf("Float32(8) = %v, %v", v, err)
	}
	if v, err := r.Float64(16); err != nil || v != -2.25 {
		t.Errorf("Float64(16) = %v, %v", v, err)
	}
}

func TestReader_Truncation(t *testing.T) {
	r := NewReader(make([]byte, 8))

	tests := []struct {
		name string
		read func() error
	}{
		{"uint16 past end", func() error { _, err := r.Uint16(7); return err }},
		{"uint32 past end", func() error { _, err := r.Uint32(5); return err }},
		{"float64 past end", func() error { _, err := r.Float64(1); return err }},
		{"negative offset", func() error { _, err := r.Uint32(-4); return err }},
		{"bytes past end", func() error { _, err := r.Bytes(0, 9); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.read(); !errors.Is(err, ErrTruncatedData) {
				t.Errorf("got %v, want ErrTruncatedData", err)
			}
		})
	}
}

func TestStringTable_RoundTrip(t *testing.T) {
	// Synthetic table at a 16-aligned origin with two strings.
	data := make([]byte, 64)
	copy(data[32:], "grass01\x00")
	copy(data[40:], "stone_wall\x00")

	table, err := NewStringTable(NewReader(data), 32)
	if err != nil {
		t.Fatalf("NewStringTable failed: %v", err)
	}

	if s, err := table.CString(0); err != nil || s != "grass01" {
		t.Errorf("CString(0) = %q, %v", s, err)
	}
	if s, err := table.CString(8); err != nil || s != "stone_wall" {
		t.Errorf("CString(8) = %q, %v", s, err)
	}
}

func TestStringTable_UnalignedOrigin(t *testing.T) {
	_, err := NewStringTable(NewReader(make([]byte, 64)), 20)
	if !errors.Is(err, ErrUnalignedTable) {
		t.Errorf("got %v, want ErrUnalignedTable", err)
	}
}

func TestStringTable_DanglingPointer(t *testing.T) {
	table, err := NewStringTable(NewReader(make([]byte, 64)), 48)
	if err != nil {
		t.Fatalf("NewStringTable failed: %v", err)
	}

	if _, err := table.CString(100); !errors.Is(err, ErrDanglingPointer) {
		t.Errorf("got %v, want ErrDanglingPointer", err)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		pos, alignment, want int
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{40, 16, 48},
	}

	for _, tt := range tests {
		if got := Align(tt.pos, tt.alignment); got != tt.want {
			t.Errorf("Align(%d, %d) = %d, want %d", tt.pos, tt.alignment, got, tt.want)
		}
	}
}
