// Package dedup detects duplicate entity placements inside a parsed
// world layout. Authoring tools copy groups wholesale, so the same model
// frequently appears several times at the same spot; rendering or
// exporting every copy wastes memory without changing the scene.
package dedup

import (
	"math"
	"strings"

	"github.com/valisthea-tools/stagemap/pkg/formats"
)

// DefaultTolerance is the position quantization step in world units.
// Placements closer than this are considered the same spot.
const DefaultTolerance = 0.01

// Config controls duplicate detection.
type Config struct {
	// Tolerance is the quantization step for positions. Zero or negative
	// falls back to DefaultTolerance.
	Tolerance float64
}

// Stats summarizes one Mark pass.
type Stats struct {
	Total   int
	Kept    int
	Dropped int
}

// placementKey identifies a placement up to quantization. Two entities
// collide only when group, rounded position, and asset path all agree.
type placementKey struct {
	group   int32
	x, y, z int64
	path    string
}

// Mark flags duplicate placements. The returned slice is aligned with
// entities: keep[i] reports whether entities[i] is the surviving copy.
// The first-encountered copy always survives. Entities without an asset
// path are kept as-is, except lights: authoring tools stack state-variant
// copies of the same light at one spot, so lights are bucketed by
// position alone. Entities are not modified.
func Mark(entities []formats.Entity, cfg Config) ([]bool, Stats) {
	tol := cfg.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	keep := make([]bool, len(entities))
	stats := Stats{Total: len(entities)}
	seen := make(map[placementKey]bool, len(entities))

	for i := range entities {
		ent := &entities[i]
		if ent.AssetPath == "" && ent.Kind != formats.EntityLight {
			keep[i] = true
			stats.Kept++
			continue
		}

		key := placementKey{
			group: ent.GroupID,
			x:     quantize(ent.Position.X(), tol),
			y:     quantize(ent.Position.Y(), tol),
			z:     quantize(ent.Position.Z(), tol),
			path:  strings.ToLower(ent.AssetPath),
		}
		if seen[key] {
			stats.Dropped++
			continue
		}
		seen[key] = true
		keep[i] = true
		stats.Kept++
	}

	return keep, stats
}

// Filter returns the surviving entities in input order. It shares no
// memory with the duplicates it drops.
func Filter(entities []formats.Entity, cfg Config) ([]formats.Entity, Stats) {
	keep, stats := Mark(entities, cfg)
	out := make([]formats.Entity, 0, stats.Kept)
	for i, ok := range keep {
		if ok {
			out = append(out, entities[i])
		}
	}
	return out, stats
}

func quantize(v, tol float64) int64 {
	return int64(math.Round(v / tol))
}
