package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SSB format errors.
var (
	ErrTruncatedSSBData = errors.New("truncated SSB data")
)

// SSB header layout: sixteen little-endian uint32 words.
const (
	ssbHeaderSize      = 0x40
	ssbOffDataOffset   = 0x00 // uint32, coordinate records
	ssbOffCount        = 0x04 // uint32, instance count
	ssbOffIndexOffset  = 0x08 // uint32, model index array
	ssbOffPtrListOff   = 0x0C // uint32, model string pointer list
	ssbOffStringCount  = 0x10 // uint32
	ssbOffChunkOriginX = 0x18 // 3 x float32

	ssbCoordRecordSize = 12 // 6 x int16: x, y, z, rx, ry, rz
	ssbIndexEntrySize  = 2  // uint16
)

// PointerStrideBytes is the element width of the SSB model pointer list.
// The per-instance model "index" field is a byte offset into that list and
// must be divided by this stride before use; treating it as a direct index
// silently selects the wrong model.
const PointerStrideBytes = 4

// Local offsets and rotations are stored as integers in centimeters and
// centidegrees.
const (
	ssbUnitScale     = 0.01
	ssbRotationScale = 0.01
)

// pointerIndex converts a stored byte offset into the pointer list to a
// direct element index.
func pointerIndex(raw uint16) int {
	return int(raw) / PointerStrideBytes
}

// ScatterInstance is one placed instance of a scattered prop.
type ScatterInstance struct {
	ModelIndex int    // index into SSB.Models, already stride-converted
	RawIndex   uint16 // stored byte offset, kept for round-trip fidelity

	// Raw integer-encoded local offset and rotation relative to the chunk
	// origin, in centimeters / centidegrees.
	LocalOffset   [3]int16
	LocalRotation [3]int16

	// Position is chunk origin + scaled local offset, derived once at
	// parse time.
	Position mgl32.Vec3
}

// Rotation returns the instance rotation in radians.
func (s *ScatterInstance) Rotation() mgl32.Vec3 {
	var rot mgl32.Vec3
	for i := 0; i < 3; i++ {
		rot[i] = math32.Pi / 180 * float32(s.LocalRotation[i]) * ssbRotationScale
	}
	return rot
}

// SSB is a parsed scatter file: densely repeated small props with compact
// local-offset encoding relative to one map-chunk origin.
type SSB struct {
	ChunkOrigin mgl32.Vec3
	Models      []string
	Instances   []ScatterInstance
}

// Model returns the model path referenced by an instance, or "" if the
// converted index is out of range.
func (s *SSB) Model(inst *ScatterInstance) string {
	if inst.ModelIndex < 0 || inst.ModelIndex >= len(s.Models) {
		return ""
	}
	return s.Models[inst.ModelIndex]
}

// ParseSSB parses a scatter file from raw bytes.
func ParseSSB(data []byte) (*SSB, error) {
	if len(data) < ssbHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSSBData, len(data))
	}

	r := NewReader(data)

	dataOff, _ := r.Uint32(ssbOffDataOffset)
	count, _ := r.Uint32(ssbOffCount)
	indexOff, _ := r.Uint32(ssbOffIndexOffset)
	ptrListOff, _ := r.Uint32(ssbOffPtrListOff)
	stringCount, _ := r.Uint32(ssbOffStringCount)

	ssb := &SSB{}
	for i := 0; i < 3; i++ {
		v, err := r.Float32(ssbOffChunkOriginX + i*4)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk origin[%d]", ErrTruncatedSSBData, i)
		}
		ssb.ChunkOrigin[i] = v
	}

	// Model strings are addressed by self-relative pointers.
	ssb.Models = make([]string, 0, stringCount)
	for i := uint32(0); i < stringCount; i++ {
		ptrAbs := int(ptrListOff) + int(i)*PointerStrideBytes
		rel, err := r.Int32(ptrAbs)
		if err != nil {
			return nil, fmt.Errorf("%w: model pointer %d", ErrTruncatedSSBData, i)
		}
		s, err := r.CString(ptrAbs + int(rel))
		if err != nil {
			return nil, fmt.Errorf("resolving model string %d: %w", i, err)
		}
		ssb.Models = append(ssb.Models, s)
	}

	ssb.Instances = make([]ScatterInstance, 0, count)
	for i := uint32(0); i < count; i++ {
		raw, err := r.Uint16(int(indexOff) + int(i)*ssbIndexEntrySize)
		if err != nil {
			return nil, fmt.Errorf("%w: index entry %d", ErrTruncatedSSBData, i)
		}

		inst := ScatterInstance{
			RawIndex:   raw,
			ModelIndex: pointerIndex(raw),
		}

		base := int(dataOff) + int(i)*ssbCoordRecordSize
		for j := 0; j < 3; j++ {
			v, err := r.Int16(base + j*2)
			if err != nil {
				return nil, fmt.Errorf("%w: instance %d offset[%d]", ErrTruncatedSSBData, i, j)
			}
			inst.LocalOffset[j] = v
		}
		for j := 0; j < 3; j++ {
			v, err := r.Int16(base + 6 + j*2)
			if err != nil {
				return nil, fmt.Errorf("%w: instance %d rotation[%d]", ErrTruncatedSSBData, i, j)
			}
			inst.LocalRotation[j] = v
		}

		for j := 0; j < 3; j++ {
			inst.Position[j] = ssb.ChunkOrigin[j] + float32(inst.LocalOffset[j])*ssbUnitScale
		}

		ssb.Instances = append(ssb.Instances, inst)
	}

	return ssb, nil
}

// ParseSSBFile parses a scatter file from disk.
func ParseSSBFile(path string) (*SSB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SSB file: %w", err)
	}
	return ParseSSB(data)
}
