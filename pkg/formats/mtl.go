package formats

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// MTL format errors.
var (
	ErrInvalidMTLMagic       = errors.New("invalid MTL magic: expected 'MTL '")
	ErrUnsupportedMTLVersion = errors.New("unsupported MTL version")
	ErrTruncatedMTLData      = errors.New("truncated MTL data")
)

// MTL header layout (little-endian).
const (
	mtlMagic = "MTL "

	mtlOffMajorVersion  = 0x04 // uint16
	mtlOffMinorVersion  = 0x06 // uint16
	mtlOffShaderHash    = 0x08 // uint32
	mtlOffSlotCount     = 0x10 // uint16
	mtlOffParamSize     = 0x14 // uint32
	mtlOffConstantCount = 0x18 // uint16
	mtlOffShaderName    = 0x24 // uint32, string-table offset
	mtlHeaderSize       = 0x24
	mtlSlotArrayStart   = 0x28
	mtlSlotSize         = 8
	mtlConstantSize     = 8
)

// mtlSupportedMajor is the only header major version this parser accepts.
const mtlSupportedMajor = 1

// TextureSlot is one texture binding in a material: a texture path paired
// with the shader variable it feeds. Raw string-table offsets are kept
// alongside the resolved strings.
type TextureSlot struct {
	PathOffset uint32
	NameOffset uint32

	TexturePath    string
	ShaderVariable string
}

// Material is a parsed MTL file. Immutable after parse.
type Material struct {
	MajorVersion uint16
	MinorVersion uint16
	ShaderHash   uint32
	ShaderName   string
	Slots        []TextureSlot
}

// Texture category keyword classes, keyed by the names shader authors use
// for the corresponding sampler variables.
var textureKeywords = map[string][]string{
	"base":   {"base", "color", "diffuse", "albedo", "basecolor"},
	"normal": {"normal", "norm", "nrm"},
	"rough":  {"rough", "roug", "roughness"},
	"metal":  {"metal", "metallic"},
}

// Texture returns the texture path for a category ("base", "normal",
// "rough", "metal") by scanning shader variable names, or "" if no slot
// matches.
func (m *Material) Texture(category string) string {
	keywords, ok := textureKeywords[strings.ToLower(category)]
	if !ok {
		keywords = []string{strings.ToLower(category)}
	}
	for _, slot := range m.Slots {
		name := strings.ToLower(slot.ShaderVariable)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return slot.TexturePath
			}
		}
	}
	return ""
}

// ParseMTL parses a material file from raw bytes. All string-table
// pointers are resolved eagerly so a corrupt file fails here rather than
// at resolution time.
func ParseMTL(data []byte) (*Material, error) {
	if len(data) < mtlSlotArrayStart {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedMTLData, len(data))
	}
	if string(data[0:4]) != mtlMagic {
		return nil, ErrInvalidMTLMagic
	}

	r := NewReader(data)

	major, err := r.Uint16(mtlOffMajorVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: reading major version", ErrTruncatedMTLData)
	}
	minor, err := r.Uint16(mtlOffMinorVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: reading minor version", ErrTruncatedMTLData)
	}
	if major != mtlSupportedMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedMTLVersion, major, minor)
	}

	mat := &Material{
		MajorVersion: major,
		MinorVersion: minor,
	}

	if mat.ShaderHash, err = r.Uint32(mtlOffShaderHash); err != nil {
		return nil, fmt.Errorf("%w: reading shader hash", ErrTruncatedMTLData)
	}
	slotCount, err := r.Uint16(mtlOffSlotCount)
	if err != nil {
		return nil, fmt.Errorf("%w: reading slot count", ErrTruncatedMTLData)
	}
	paramSize, err := r.Uint32(mtlOffParamSize)
	if err != nil {
		return nil, fmt.Errorf("%w: reading parameter buffer size", ErrTruncatedMTLData)
	}
	constCount, err := r.Uint16(mtlOffConstantCount)
	if err != nil {
		return nil, fmt.Errorf("%w: reading constant count", ErrTruncatedMTLData)
	}

	// The string table follows the slot descriptors, the shader-constant
	// metadata and the parameter buffer, padded to 16 bytes.
	tableOrigin := Align(mtlSlotArrayStart+int(slotCount)*mtlSlotSize+int(constCount)*mtlConstantSize+int(paramSize), stringTableAlignment)
	table, err := NewStringTable(r, tableOrigin)
	if err != nil {
		return nil, err
	}

	shaderNameOff, err := r.Uint32(mtlOffShaderName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading shader name offset", ErrTruncatedMTLData)
	}
	if mat.ShaderName, err = table.CString(shaderNameOff); err != nil {
		return nil, fmt.Errorf("resolving shader name: %w", err)
	}

	mat.Slots = make([]TextureSlot, 0, slotCount)
	for i := 0; i < int(slotCount); i++ {
		entryOff := mtlSlotArrayStart + i*mtlSlotSize

		slot := TextureSlot{}
		if slot.PathOffset, err = r.Uint32(entryOff); err != nil {
			return nil, fmt.Errorf("%w: reading slot %d path offset", ErrTruncatedMTLData, i)
		}
		if slot.NameOffset, err = r.Uint32(entryOff + 4); err != nil {
			return nil, fmt.Errorf("%w: reading slot %d name offset", ErrTruncatedMTLData, i)
		}
		if slot.TexturePath, err = table.CString(slot.PathOffset); err != nil {
			return nil, fmt.Errorf("resolving slot %d texture path: %w", i, err)
		}
		if slot.ShaderVariable, err = table.CString(slot.NameOffset); err != nil {
			return nil, fmt.Errorf("resolving slot %d shader variable: %w", i, err)
		}
		mat.Slots = append(mat.Slots, slot)
	}

	return mat, nil
}

// ParseMTLFile parses a material file from disk.
func ParseMTLFile(path string) (*Material, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MTL file: %w", err)
	}
	return ParseMTL(data)
}
