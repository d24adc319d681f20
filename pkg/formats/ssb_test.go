package formats

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// ssbInstance describes one scatter instance for the synthetic builder.
// The raw model index is a byte offset into the pointer list, exactly as
// stored on disk.
type ssbInstance struct {
	rawIndex uint16
	offset   [3]int16
	rotation [3]int16
}

func makeSSB(origin [3]float32, models []string, instances []ssbInstance) []byte {
	ptrListOff := ssbHeaderSize
	stringsStart := ptrListOff + len(models)*PointerStrideBytes

	var strTable []byte
	strOffsets := make([]int, len(models))
	for i, m := range models {
		strOffsets[i] = stringsStart + len(strTable)
		strTable = append(strTable, m...)
		strTable = append(strTable, 0)
	}

	indexOff := stringsStart + len(strTable)
	dataOff := indexOff + len(instances)*ssbIndexEntrySize

	data := make([]byte, dataOff+len(instances)*ssbCoordRecordSize)

	binary.LittleEndian.PutUint32(data[ssbOffDataOffset:], uint32(dataOff))
	binary.LittleEndian.PutUint32(data[ssbOffCount:], uint32(len(instances)))
	binary.LittleEndian.PutUint32(data[ssbOffIndexOffset:], uint32(indexOff))
	binary.LittleEndian.PutUint32(data[ssbOffPtrListOff:], uint32(ptrListOff))
	binary.LittleEndian.PutUint32(data[ssbOffStringCount:], uint32(len(models)))
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(data[ssbOffChunkOriginX+i*4:], math.Float32bits(origin[i]))
	}

	for i := range models {
		ptrAbs := ptrListOff + i*PointerStrideBytes
		binary.LittleEndian.PutUint32(data[ptrAbs:], uint32(strOffsets[i]-ptrAbs))
	}
	copy(data[stringsStart:], strTable)

	for i, inst := range instances {
		binary.LittleEndian.PutUint16(data[indexOff+i*ssbIndexEntrySize:], inst.rawIndex)
		base := dataOff + i*ssbCoordRecordSize
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint16(data[base+j*2:], uint16(inst.offset[j]))
		}
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint16(data[base+6+j*2:], uint16(inst.rotation[j]))
		}
	}

	return data
}

func TestParseSSB_PointerStrideConversion(t *testing.T) {
	models := []string{"env/rock01.mdl", "env/grass02.mdl", "env/fern03.mdl"}
	data := makeSSB([3]float32{0, 0, 0}, models, []ssbInstance{
		{rawIndex: 8}, // byte offset 8 into the pointer list = element 2
	})

	ssb, err := ParseSSB(data)
	if err != nil {
		t.Fatalf("ParseSSB failed: %v", err)
	}

	inst := &ssb.Instances[0]
	if inst.ModelIndex != 2 {
		t.Errorf("ModelIndex = %d, want 2", inst.ModelIndex)
	}
	if inst.RawIndex != 8 {
		t.Errorf("RawIndex = %d, want 8", inst.RawIndex)
	}

	if got := ssb.Model(inst); got != "env/fern03.mdl" {
		t.Errorf("Model() = %q, want env/fern03.mdl", got)
	}

	// Using the stored value as a direct element index would silently pick
	// the wrong (here nonexistent) model.
	if int(inst.RawIndex) < len(models) {
		t.Fatal("fixture must make the raw index observably wrong as a direct index")
	}
}

func TestParseSSB_DerivedPositions(t *testing.T) {
	data := makeSSB([3]float32{100, 50, -200}, []string{"env/rock01.mdl"}, []ssbInstance{
		{rawIndex: 0, offset: [3]int16{250, -100, 1000}},
	})

	ssb, err := ParseSSB(data)
	if err != nil {
		t.Fatalf("ParseSSB failed: %v", err)
	}

	inst := &ssb.Instances[0]
	want := [3]float32{100 + 2.5, 50 - 1.0, -200 + 10.0}
	for i := 0; i < 3; i++ {
		if diff := inst.Position[i] - want[i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("Position[%d] = %v, want %v", i, inst.Position[i], want[i])
		}
	}

	// The raw integer offsets survive for round-trip fidelity.
	if inst.LocalOffset != [3]int16{250, -100, 1000} {
		t.Errorf("LocalOffset = %v", inst.LocalOffset)
	}
}

func TestScatterInstance_Rotation(t *testing.T) {
	data := makeSSB([3]float32{0, 0, 0}, []string{"env/rock01.mdl"}, []ssbInstance{
		{rawIndex: 0, rotation: [3]int16{9000, 0, -4500}}, // centidegrees
	})

	ssb, err := ParseSSB(data)
	if err != nil {
		t.Fatalf("ParseSSB failed: %v", err)
	}

	rot := ssb.Instances[0].Rotation()
	if diff := rot.X() - math.Pi/2; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("rot.X = %v, want pi/2", rot.X())
	}
	if diff := rot.Z() + math.Pi/4; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("rot.Z = %v, want -pi/4", rot.Z())
	}
}

func TestParseSSB_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"header only", make([]byte, 0x20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSSB(tt.data); !errors.Is(err, ErrTruncatedSSBData) {
				t.Errorf("got %v, want ErrTruncatedSSBData", err)
			}
		})
	}
}

func TestParseSSB_OutOfRangeModelIndex(t *testing.T) {
	data := makeSSB([3]float32{0, 0, 0}, []string{"env/rock01.mdl"}, []ssbInstance{
		{rawIndex: 64},
	})

	ssb, err := ParseSSB(data)
	if err != nil {
		t.Fatalf("ParseSSB failed: %v", err)
	}

	// A converted index past the model list is reported as absent, not a
	// parse failure.
	if got := ssb.Model(&ssb.Instances[0]); got != "" {
		t.Errorf("Model() = %q, want empty", got)
	}
}
