package assetindex

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/valisthea-tools/stagemap/internal/logger"
)

func TestMain(m *testing.M) {
	// Quiet no-op logger for the package tests.
	logger.InitWithFileConfig("error", logger.FileConfig{}, false)
	os.Exit(m.Run())
}

// writeTree creates empty files under dir, keyed by relative path.
func writeTree(t *testing.T, dir string, paths []string) {
	t.Helper()
	for _, rel := range paths {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuild_StemsAndAliases(t *testing.T) {
	texRoot := t.TempDir()
	writeTree(t, texRoot, []string{
		"env/t_grass01.png",
		"env/bt_a01_crackwall01a_base.png",
		"props/stone_wall.dds",
		"props/readme.txt", // not a texture, ignored
	})

	idx, err := Build(Options{TextureRoots: []string{texRoot}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Files() != 3 {
		t.Errorf("Files() = %d, want 3", idx.Files())
	}
	if len(idx.Lookup("t_grass01")) != 1 {
		t.Error("primary stem t_grass01 not indexed")
	}
	if len(idx.Lookup("grass01")) != 1 {
		t.Error("prefix-stripped alias grass01 not indexed")
	}
	if len(idx.Lookup("STONE_WALL")) != 1 {
		t.Error("lookup must normalize case")
	}
	if idx.Lookup("missing") != nil {
		t.Error("unknown stem must return nil")
	}

	entries := idx.Lookup("stone_wall")
	want := []string{"stone", "wall"}
	if !reflect.DeepEqual(entries[0].Tokens, want) {
		t.Errorf("Tokens = %v, want %v", entries[0].Tokens, want)
	}
}

func TestBuild_SkipDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"env/m_wall01.mtl",
		"vfx/m_spark.mtl",
		"Sound/m_noise.mtl",
	})

	idx, err := Build(Options{MaterialRoots: []string{root}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Lookup("m_wall01") == nil {
		t.Error("env material missing from index")
	}
	if idx.Lookup("m_spark") != nil {
		t.Error("blacklisted vfx directory was scanned")
	}
	if idx.Lookup("m_noise") != nil {
		t.Error("blacklist must match directory names case-insensitively")
	}
}

func TestBuild_MultiRootMerge(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, []string{"a/t_shared.png"})
	writeTree(t, rootB, []string{"b/t_shared.png", "b/t_only_b.png"})

	idx, err := Build(Options{TextureRoots: []string{rootA, rootB}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := len(idx.Lookup("t_shared")); got != 2 {
		t.Errorf("t_shared candidates = %d, want 2 (one per root)", got)
	}
	if idx.Lookup("t_only_b") == nil {
		t.Error("file under second root must be visible")
	}
}

func TestBuild_RootOrderIndependent(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, []string{"a/t_one.png", "a/t_both.png"})
	writeTree(t, rootB, []string{"b/t_two.png", "b/t_both.png"})

	forward, err := Build(Options{TextureRoots: []string{rootA, rootB}})
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := Build(Options{TextureRoots: []string{rootB, rootA}})
	if err != nil {
		t.Fatal(err)
	}

	asSet := func(idx *Index) map[string][]string {
		out := make(map[string][]string)
		idx.Stems(func(stem string, entries []*Entry) bool {
			var paths []string
			for _, e := range entries {
				paths = append(paths, e.Path)
			}
			sort.Strings(paths)
			out[stem] = paths
			return true
		})
		return out
	}

	if !reflect.DeepEqual(asSet(forward), asSet(reversed)) {
		t.Error("index content must not depend on root scan order")
	}
}

func TestBuild_MissingRootSkipped(t *testing.T) {
	texRoot := t.TempDir()
	writeTree(t, texRoot, []string{"t_ok.png"})

	idx, err := Build(Options{
		TextureRoots: []string{filepath.Join(texRoot, "does-not-exist"), texRoot},
	})
	if err != nil {
		t.Fatalf("missing root must not fail the build: %v", err)
	}
	if idx.Lookup("t_ok") == nil {
		t.Error("existing root must still be indexed")
	}
}

func TestSharedRebuild(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"t_first.png"})
	Configure(Options{TextureRoots: []string{root}})

	idx, err := Shared()
	if err != nil {
		t.Fatalf("Shared failed: %v", err)
	}
	if idx.Lookup("t_first") == nil {
		t.Fatal("t_first missing from shared index")
	}

	// Same instance until an explicit rebuild.
	again, err := Shared()
	if err != nil {
		t.Fatal(err)
	}
	if again != idx {
		t.Error("Shared must return the cached index")
	}

	writeTree(t, root, []string{"t_second.png"})
	rebuilt, err := Rebuild()
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if rebuilt == idx {
		t.Error("Rebuild must produce a fresh index")
	}
	if rebuilt.Lookup("t_second") == nil {
		t.Error("rebuilt index must see newly added files")
	}
}
