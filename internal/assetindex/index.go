// Package assetindex builds the global stem-keyed index of material and
// texture files across all configured extraction roots.
package assetindex

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/valisthea-tools/stagemap/internal/logger"
)

// File extensions indexed under each root category.
var (
	materialExts = map[string]bool{".mtl": true}
	textureExts  = map[string]bool{".png": true, ".dds": true, ".tga": true}
)

// Generic filename prefixes that carry only a category, not an identity.
// Entries are aliased with these stripped so a model-side name matches a
// texture-side name.
var genericPrefixes = []string{"m_", "t_"}

// DefaultSkipDirs is the directory blacklist used when Options.SkipDirs is
// empty. It keeps the recursive scan away from asset categories that never
// hold stage materials and bounds scan time on very large trees.
var DefaultSkipDirs = []string{
	"sound", "movie", "ui", "vfx", "chara",
	"animation", "cut", "shader", "nxd",
}

// Entry is one indexed file.
type Entry struct {
	Path     string   // absolute path
	Stem     string   // lowercased file name without extension
	Dir      string   // parent directory
	Tokens   []string // stem split on underscores
	Material bool     // true for material files, false for textures
}

// Options configures an index build.
type Options struct {
	MaterialRoots []string
	TextureRoots  []string
	SkipDirs      []string
}

// Index maps normalized filename stems to candidate entries. It is
// immutable once Build returns; concurrent reads are safe.
type Index struct {
	byStem map[string][]*Entry
	files  int
}

// Build scans all roots and produces a merged index. Per-root scans run
// concurrently; partial results are merged in root order afterwards, so
// the final mapping does not depend on scan completion order. Missing
// roots are skipped with a warning.
func Build(opts Options) (*Index, error) {
	skip := make(map[string]bool)
	dirs := opts.SkipDirs
	if len(dirs) == 0 {
		dirs = DefaultSkipDirs
	}
	for _, d := range dirs {
		skip[strings.ToLower(d)] = true
	}

	type rootScan struct {
		root     string
		material bool
	}
	var scans []rootScan
	for _, r := range opts.MaterialRoots {
		scans = append(scans, rootScan{root: r, material: true})
	}
	for _, r := range opts.TextureRoots {
		scans = append(scans, rootScan{root: r, material: false})
	}

	partials := make([]map[string][]*Entry, len(scans))
	var g errgroup.Group
	for i, s := range scans {
		g.Go(func() error {
			part, err := scanRoot(s.root, s.material, skip)
			if err != nil {
				return err
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{byStem: make(map[string][]*Entry)}
	for _, part := range partials {
		for stem, entries := range part {
			idx.byStem[stem] = append(idx.byStem[stem], entries...)
		}
	}
	idx.files = countFiles(partials)

	logger.Sugar.Debugw("asset index built",
		"roots", len(scans), "stems", len(idx.byStem), "files", idx.files)
	return idx, nil
}

func countFiles(partials []map[string][]*Entry) int {
	seen := make(map[string]bool)
	for _, part := range partials {
		for _, entries := range part {
			for _, e := range entries {
				seen[e.Path] = true
			}
		}
	}
	return len(seen)
}

// scanRoot walks one root and returns its private stem mapping.
func scanRoot(root string, material bool, skip map[string]bool) (map[string][]*Entry, error) {
	part := make(map[string][]*Entry)

	if _, err := os.Stat(root); err != nil {
		logger.Sugar.Warnw("skipping missing root", "root", root)
		return part, nil
	}

	exts := textureExts
	if material {
		exts = materialExts
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[strings.ToLower(d.Name())] {
				return fs.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		stem := strings.ToLower(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		entry := &Entry{
			Path:     path,
			Stem:     stem,
			Dir:      filepath.Dir(path),
			Tokens:   strings.Split(stem, "_"),
			Material: material,
		}
		part[stem] = append(part[stem], entry)

		// Alias without the generic category prefix, so "t_grass01"
		// answers lookups for "grass01".
		for _, prefix := range genericPrefixes {
			if strings.HasPrefix(stem, prefix) {
				part[strings.TrimPrefix(stem, prefix)] = append(part[strings.TrimPrefix(stem, prefix)], entry)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// Lookup returns the entries indexed under a normalized stem, or nil.
func (i *Index) Lookup(stem string) []*Entry {
	return i.byStem[strings.ToLower(stem)]
}

// Stems calls fn for every stem in the index until fn returns false.
// Iteration order is unspecified.
func (i *Index) Stems(fn func(stem string, entries []*Entry) bool) {
	for stem, entries := range i.byStem {
		if !fn(stem, entries) {
			return
		}
	}
}

// Files returns the number of distinct files indexed.
func (i *Index) Files() int {
	return i.files
}

// StemCount returns the number of distinct lookup keys.
func (i *Index) StemCount() int {
	return len(i.byStem)
}
