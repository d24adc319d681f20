package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// MPB format errors.
var (
	ErrUnsupportedMPBVersion = errors.New("unsupported MPB version")
	ErrTruncatedMPBData      = errors.New("truncated MPB data")
)

// MPB header layout (little-endian).
const (
	mpbOffVersion      = 0x00 // uint32
	mpbOffGroupListOff = 0x04 // uint32
	mpbOffGroupCount   = 0x08 // uint32

	mpbGroupItemSize   = 0x30
	mpbOffEGListRel    = 0x28 // uint32, relative to group item
	mpbOffEGCount      = 0x2C // uint32
	mpbEntityGroupSize = 0x3C
	mpbOffEGGroupID    = 0x04 // int32, relative to entity-group record
	mpbOffEntListRel   = 0x10 // uint32
	mpbOffEntCount     = 0x14 // uint32
	mpbEntityPtrSize   = 4
)

// Supported MPB header versions.
const (
	mpbMinVersion = 1
	mpbMaxVersion = 4
)

// Entity block layout, offsets relative to the block start.
const (
	entOffTypeCode = 0x04 // uint32
	entOffFlags    = 0x08 // uint32, undeciphered
	entOffGroupID  = 0x0C // int32
	entOffPosition = 0x10 // 3 x float64
	entOffRotation = 0x28 // 3 x float32, radians
	entOffScale    = 0x34 // float32
	entPathBase    = 0x50 // path pointer is relative to here
	entOffPathPtr  = 0x54 // int32

	// entHeaderSnapshot covers the type code, flag word and group id plus
	// the surrounding undeciphered bytes kept for later analysis.
	entHeaderSnapshot = 0x20

	// entMinBlockSize is the smallest block the transform fields fit in.
	entMinBlockSize = 0x38
)

// Light payload layout, offsets relative to block+0x50.
const (
	lightOffType      = 0x00 // int32
	lightOffColor     = 0x04 // uint32, ARGB
	lightOffIntensity = 0x14 // float32
	lightOffRange     = 0x1C // float32
	lightOffShakingID = 0x34 // int32
	lightPayloadSize  = 0x38
)

// EntityKind identifies what an entity block describes.
type EntityKind int

const (
	EntityUnknown      EntityKind = iota // unrecognized type code, block retained
	EntityMeshInstance                   // placed .mdl model
	EntityScatterSet                     // reference to a .ssb scatter file
	EntityGeometry                       // raw geometry block
	EntityLight                          // dynamic light
	EntityNavMesh                        // .nmb navigation/collision mesh
)

// String returns a human-readable kind name.
func (k EntityKind) String() string {
	switch k {
	case EntityMeshInstance:
		return "MeshInstance"
	case EntityScatterSet:
		return "ScatterSet"
	case EntityGeometry:
		return "Geometry"
	case EntityLight:
		return "Light"
	case EntityNavMesh:
		return "NavMesh"
	default:
		return "Unknown"
	}
}

// entityLayout describes how to decode one entity type code. New codes are
// added here, not in the parsing loop.
type entityLayout struct {
	kind     EntityKind
	hasPath  bool
	hasLight bool
}

// entityLayouts maps wire type codes to their decode rules.
var entityLayouts = map[uint32]entityLayout{
	1002: {kind: EntityGeometry, hasPath: true},
	1015: {kind: EntityScatterSet, hasPath: true},
	1028: {kind: EntityMeshInstance, hasPath: true},
	2001: {kind: EntityLight, hasLight: true},
	5001: {kind: EntityNavMesh, hasPath: true},
}

// LightPayload holds the decoded portion of a light entity block. Fields
// past the shaking-param id are not yet deciphered.
type LightPayload struct {
	Type           int32
	Color          uint32 // ARGB
	Intensity      float32
	Range          float32
	ShakingParamID int32
}

// RGB unpacks the ARGB color word into normalized components.
func (l *LightPayload) RGB() (r, g, b float32) {
	r = float32((l.Color>>16)&0xFF) / 255.0
	g = float32((l.Color>>8)&0xFF) / 255.0
	b = float32(l.Color&0xFF) / 255.0
	return
}

// Entity is one placed object in a map layout.
type Entity struct {
	Kind     EntityKind
	TypeCode uint32
	Flags    uint32 // undeciphered flag word, kept as-is
	GroupID  int32

	Position mgl64.Vec3 // world position, Y is up
	Rotation mgl32.Vec3 // Euler angles, radians
	Scale    float32    // uniform

	AssetPath string        // empty for kinds without a path
	Light     *LightPayload // set only for EntityLight

	Offset    int    // absolute block offset in the file
	RawHeader []byte // first 0x20 block bytes, undeciphered flag area
}

// WorldTransform composes the entity transform as translate * rotZ * rotY
// * rotX * scale.
func (e *Entity) WorldTransform() mgl64.Mat4 {
	t := mgl64.Translate3D(e.Position.X(), e.Position.Y(), e.Position.Z())
	rz := mgl64.HomogRotate3DZ(float64(e.Rotation.Z()))
	ry := mgl64.HomogRotate3DY(float64(e.Rotation.Y()))
	rx := mgl64.HomogRotate3DX(float64(e.Rotation.X()))
	s := mgl64.Scale3D(float64(e.Scale), float64(e.Scale), float64(e.Scale))
	return t.Mul4(rz).Mul4(ry).Mul4(rx).Mul4(s)
}

// Group is a logical entity grouping used for hierarchy queries.
type Group struct {
	ID int32
}

// MPB is a parsed map-layout file.
type MPB struct {
	Version  uint32
	Groups   []Group
	Entities []Entity
}

// CountByKind returns the number of entities of each kind.
func (m *MPB) CountByKind() map[EntityKind]int {
	counts := make(map[EntityKind]int)
	for i := range m.Entities {
		counts[m.Entities[i].Kind]++
	}
	return counts
}

// MeshInstances returns all mesh-instance entities.
func (m *MPB) MeshInstances() []*Entity {
	return m.byKind(EntityMeshInstance)
}

// Lights returns all light entities.
func (m *MPB) Lights() []*Entity {
	return m.byKind(EntityLight)
}

// ScatterSets returns all scatter-set reference entities.
func (m *MPB) ScatterSets() []*Entity {
	return m.byKind(EntityScatterSet)
}

func (m *MPB) byKind(kind EntityKind) []*Entity {
	var out []*Entity
	for i := range m.Entities {
		if m.Entities[i].Kind == kind {
			out = append(out, &m.Entities[i])
		}
	}
	return out
}

// ParseMPB parses a map-layout file from raw bytes.
func ParseMPB(data []byte) (*MPB, error) {
	r := NewReader(data)

	version, err := r.Uint32(mpbOffVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: reading header version", ErrTruncatedMPBData)
	}
	if version < mpbMinVersion || version > mpbMaxVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMPBVersion, version)
	}

	groupListOff, err := r.Uint32(mpbOffGroupListOff)
	if err != nil {
		return nil, fmt.Errorf("%w: reading group list offset", ErrTruncatedMPBData)
	}
	groupCount, err := r.Uint32(mpbOffGroupCount)
	if err != nil {
		return nil, fmt.Errorf("%w: reading group count", ErrTruncatedMPBData)
	}

	mpb := &MPB{Version: version}
	seenGroups := make(map[int32]bool)

	for i := uint32(0); i < groupCount; i++ {
		itemOff := int(groupListOff) + int(i)*mpbGroupItemSize

		egRel, err := r.Uint32(itemOff + mpbOffEGListRel)
		if err != nil {
			return nil, fmt.Errorf("%w: group item %d", ErrTruncatedMPBData, i)
		}
		egCount, err := r.Uint32(itemOff + mpbOffEGCount)
		if err != nil {
			return nil, fmt.Errorf("%w: group item %d", ErrTruncatedMPBData, i)
		}
		egBase := itemOff + int(egRel)

		for j := uint32(0); j < egCount; j++ {
			egOff := egBase + int(j)*mpbEntityGroupSize

			groupID, err := r.Int32(egOff + mpbOffEGGroupID)
			if err != nil {
				return nil, fmt.Errorf("%w: entity group %d/%d", ErrTruncatedMPBData, i, j)
			}
			if !seenGroups[groupID] {
				seenGroups[groupID] = true
				mpb.Groups = append(mpb.Groups, Group{ID: groupID})
			}

			entRel, err := r.Uint32(egOff + mpbOffEntListRel)
			if err != nil {
				return nil, fmt.Errorf("%w: entity group %d/%d", ErrTruncatedMPBData, i, j)
			}
			entCount, err := r.Uint32(egOff + mpbOffEntCount)
			if err != nil {
				return nil, fmt.Errorf("%w: entity group %d/%d", ErrTruncatedMPBData, i, j)
			}
			ptrBase := egOff + int(entRel)

			for k := uint32(0); k < entCount; k++ {
				rel, err := r.Int32(ptrBase + int(k)*mpbEntityPtrSize)
				if err != nil {
					return nil, fmt.Errorf("%w: entity pointer %d", ErrTruncatedMPBData, k)
				}
				blockOff := ptrBase + int(rel)

				ent, err := parseEntity(r, blockOff)
				if err != nil {
					return nil, fmt.Errorf("entity at 0x%X: %w", blockOff, err)
				}
				mpb.Entities = append(mpb.Entities, *ent)
			}
		}
	}

	return mpb, nil
}

// parseEntity decodes one entity block. Unrecognized type codes are kept
// with kind EntityUnknown, never rejected.
func parseEntity(r *Reader, off int) (*Entity, error) {
	if off < 0 || off+entMinBlockSize > r.Len() {
		return nil, fmt.Errorf("%w: block at 0x%X", ErrTruncatedMPBData, off)
	}

	ent := &Entity{Offset: off}

	raw, err := r.Bytes(off, entHeaderSnapshot)
	if err != nil {
		return nil, err
	}
	ent.RawHeader = append([]byte(nil), raw...)

	if ent.TypeCode, err = r.Uint32(off + entOffTypeCode); err != nil {
		return nil, err
	}
	if ent.Flags, err = r.Uint32(off + entOffFlags); err != nil {
		return nil, err
	}
	if ent.GroupID, err = r.Int32(off + entOffGroupID); err != nil {
		return nil, err
	}

	for i := 0; i < 3; i++ {
		v, err := r.Float64(off + entOffPosition + i*8)
		if err != nil {
			return nil, fmt.Errorf("%w: position[%d]", ErrTruncatedMPBData, i)
		}
		ent.Position[i] = v
	}
	for i := 0; i < 3; i++ {
		v, err := r.Float32(off + entOffRotation + i*4)
		if err != nil {
			return nil, fmt.Errorf("%w: rotation[%d]", ErrTruncatedMPBData, i)
		}
		ent.Rotation[i] = v
	}
	if ent.Scale, err = r.Float32(off + entOffScale); err != nil {
		return nil, fmt.Errorf("%w: scale", ErrTruncatedMPBData)
	}

	layout, ok := entityLayouts[ent.TypeCode]
	if !ok {
		ent.Kind = EntityUnknown
		return ent, nil
	}
	ent.Kind = layout.kind

	if layout.hasPath {
		ptr, err := r.Int32(off + entOffPathPtr)
		if err != nil {
			return nil, fmt.Errorf("%w: path pointer", ErrTruncatedMPBData)
		}
		path, err := r.CString(off + entPathBase + int(ptr))
		if err != nil {
			return nil, fmt.Errorf("resolving asset path: %w", err)
		}
		ent.AssetPath = path
	}

	if layout.hasLight {
		light, err := parseLightPayload(r, off+entPathBase)
		if err != nil {
			return nil, err
		}
		ent.Light = light
	}

	return ent, nil
}

func parseLightPayload(r *Reader, base int) (*LightPayload, error) {
	if base+lightPayloadSize > r.Len() {
		return nil, fmt.Errorf("%w: light payload at 0x%X", ErrTruncatedMPBData, base)
	}

	light := &LightPayload{}
	var err error
	if light.Type, err = r.Int32(base + lightOffType); err != nil {
		return nil, err
	}
	if light.Color, err = r.Uint32(base + lightOffColor); err != nil {
		return nil, err
	}
	if light.Intensity, err = r.Float32(base + lightOffIntensity); err != nil {
		return nil, err
	}
	if light.Range, err = r.Float32(base + lightOffRange); err != nil {
		return nil, err
	}
	if light.ShakingParamID, err = r.Int32(base + lightOffShakingID); err != nil {
		return nil, err
	}
	return light, nil
}

// ParseMPBFile parses a map-layout file from disk.
func ParseMPBFile(path string) (*MPB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MPB file: %w", err)
	}
	return ParseMPB(data)
}
