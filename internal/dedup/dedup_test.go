package dedup

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/valisthea-tools/stagemap/pkg/formats"
)

func placement(group int32, x, y, z float64, path string) formats.Entity {
	return formats.Entity{
		Kind:      formats.EntityMeshInstance,
		GroupID:   group,
		Position:  mgl64.Vec3{x, y, z},
		AssetPath: path,
	}
}

func TestMark_ExactDuplicates(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 10, 0, -5, "env/rock01.mdl"),
		placement(1, 10, 0, -5, "env/rock01.mdl"),
		placement(1, 10, 0, -5, "env/rock01.mdl"),
	}

	keep, stats := Mark(entities, Config{})
	want := []bool{true, false, false}
	for i := range want {
		if keep[i] != want[i] {
			t.Errorf("keep[%d] = %v, want %v", i, keep[i], want[i])
		}
	}
	if stats.Kept != 1 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want 1 kept, 2 dropped", stats)
	}
}

func TestMark_WithinTolerance(t *testing.T) {
	// 0.004 apart with the default 0.01 step: same quantized cell.
	entities := []formats.Entity{
		placement(1, 10.001, 0, -5, "env/rock01.mdl"),
		placement(1, 10.004, 0, -5, "env/rock01.mdl"),
	}
	keep, _ := Mark(entities, Config{})
	if !keep[0] || keep[1] {
		t.Errorf("keep = %v, want [true false]", keep)
	}

	// Clearly separated placements both survive.
	entities[1].Position = mgl64.Vec3{10.2, 0, -5}
	keep, _ = Mark(entities, Config{})
	if !keep[0] || !keep[1] {
		t.Errorf("keep = %v, want [true true]", keep)
	}
}

func TestMark_DifferentPathsSurvive(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 10, 0, -5, "env/rock01.mdl"),
		placement(1, 10, 0, -5, "env/rock02.mdl"),
	}
	keep, stats := Mark(entities, Config{})
	if !keep[0] || !keep[1] {
		t.Errorf("keep = %v, want both kept", keep)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

func TestMark_PathCaseInsensitive(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 10, 0, -5, "env/Rock01.mdl"),
		placement(1, 10, 0, -5, "env/rock01.MDL"),
	}
	keep, _ := Mark(entities, Config{})
	if !keep[0] || keep[1] {
		t.Errorf("keep = %v, want [true false]", keep)
	}
}

func TestMark_GroupsNeverMerge(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 10, 0, -5, "env/rock01.mdl"),
		placement(2, 10, 0, -5, "env/rock01.mdl"),
	}
	keep, _ := Mark(entities, Config{})
	if !keep[0] || !keep[1] {
		t.Errorf("keep = %v, want both kept across groups", keep)
	}
}

func light(group int32, x, y, z float64) formats.Entity {
	return formats.Entity{
		Kind:     formats.EntityLight,
		GroupID:  group,
		Position: mgl64.Vec3{x, y, z},
		Light:    &formats.LightPayload{Intensity: 1},
	}
}

func TestMark_CoLocatedLightsCollapse(t *testing.T) {
	// Lights carry no asset path but still stack: state variants of the
	// same light sit at one spot and only the first survives.
	entities := []formats.Entity{
		light(1, 5, 2, -3),
		light(1, 5, 2, -3),
		light(1, 5, 2, -3),
	}

	keep, stats := Mark(entities, Config{})
	want := []bool{true, false, false}
	for i := range want {
		if keep[i] != want[i] {
			t.Errorf("keep[%d] = %v, want %v", i, keep[i], want[i])
		}
	}
	if stats.Kept != 1 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want 1 kept, 2 dropped", stats)
	}
}

func TestMark_SeparatedLightsSurvive(t *testing.T) {
	entities := []formats.Entity{
		light(1, 5, 2, -3),
		light(1, 5, 8, -3), // different spot
		light(2, 5, 2, -3), // different group
	}
	keep, stats := Mark(entities, Config{})
	for i, ok := range keep {
		if !ok {
			t.Errorf("keep[%d] = false, want true", i)
		}
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

func TestMark_PathlessAlwaysKept(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 10, 0, -5, ""),
		placement(1, 10, 0, -5, ""),
		placement(1, 10, 0, -5, ""),
	}
	keep, stats := Mark(entities, Config{})
	for i, ok := range keep {
		if !ok {
			t.Errorf("keep[%d] = false, pathless entities must survive", i)
		}
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

func TestFilter(t *testing.T) {
	entities := []formats.Entity{
		placement(1, 1, 0, 0, "env/rock01.mdl"),
		placement(1, 2, 0, 0, "env/rock01.mdl"),
		placement(1, 1, 0, 0, "env/rock01.mdl"),
	}
	out, stats := Filter(entities, Config{})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].Position.X() != 1 || out[1].Position.X() != 2 {
		t.Error("output order must follow input order")
	}
	if stats.Total != 3 || stats.Kept != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
