// Package pipeline runs the full reconstruction pass: index the asset
// roots once, then parse, deduplicate, and resolve every world layout
// file, collecting the outcome into a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/valisthea-tools/stagemap/internal/assetindex"
	"github.com/valisthea-tools/stagemap/internal/config"
	"github.com/valisthea-tools/stagemap/internal/dedup"
	"github.com/valisthea-tools/stagemap/internal/logger"
	"github.com/valisthea-tools/stagemap/internal/report"
	"github.com/valisthea-tools/stagemap/internal/resolver"
	"github.com/valisthea-tools/stagemap/pkg/formats"
)

// Pipeline holds the per-run state shared by every layout file.
type Pipeline struct {
	cfg  *config.Config
	idx  *assetindex.Index
	rv   *resolver.Resolver
	stat *report.Summary
}

// New builds the asset index from cfg and prepares a pipeline over it.
// The index scan is the expensive part of a run; everything after it is
// per-file work.
func New(cfg *config.Config) (*Pipeline, error) {
	idx, err := assetindex.Build(assetindex.Options{
		MaterialRoots: cfg.Roots.MaterialRoots,
		TextureRoots:  cfg.Roots.TextureRoots,
		SkipDirs:      cfg.Scan.SkipDirs,
	})
	if err != nil {
		return nil, err
	}

	s := report.New()
	s.IndexStems = idx.StemCount()
	s.IndexFiles = idx.Files()

	return &Pipeline{
		cfg:  cfg,
		idx:  idx,
		rv:   resolver.New(idx),
		stat: s,
	}, nil
}

// Index exposes the built index, mainly for commands that want direct
// lookups after a run.
func (p *Pipeline) Index() *assetindex.Index { return p.idx }

// Discover walks root for world layout files. Results are sorted by
// filepath.WalkDir's lexical order, so the file list is deterministic.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".mpb") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Run processes the given layout files concurrently. Parse failures are
// isolated: a broken file becomes a parse-error entry in the summary and
// never aborts the batch. Run itself errors only on cancellation.
func (p *Pipeline) Run(ctx context.Context, files []string) (*report.Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]report.FileReport, len(files))
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.processFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, fr := range results {
		p.stat.Add(fr)
	}
	p.stat.Materials = p.resolveMaterials()
	p.stat.Sort()
	return p.stat, nil
}

// resolveMaterials parses every indexed material file and resolves it to
// a texture. A file that fails to parse is recorded and skipped; the
// pass never aborts on bad data.
func (p *Pipeline) resolveMaterials() report.Materials {
	var paths []string
	seen := make(map[string]bool)
	p.idx.Stems(func(stem string, entries []*assetindex.Entry) bool {
		for _, e := range entries {
			if e.Material && !seen[e.Path] {
				seen[e.Path] = true
				paths = append(paths, e.Path)
			}
		}
		return true
	})
	sort.Strings(paths)

	mr := report.Materials{ByReason: make(map[string]int)}
	for _, path := range paths {
		mat, err := formats.ParseMTLFile(path)
		if err != nil {
			logger.Sugar.Warnw("material parse failed", "file", path, "error", err)
			mr.Failed = append(mr.Failed, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		mr.Parsed++
		if res := p.rv.ResolveMaterial(mat); res.Reason == resolver.MatchNone {
			logger.Sugar.Debugw("material unresolved",
				"file", path, "shader", mat.ShaderName, "tried", res.Tried)
			mr.Unresolved++
			if len(mr.Failures) < maxUnresolvedDetail {
				mr.Failures = append(mr.Failures, report.UnresolvedEntry{
					Identifier: path,
					Tried:      res.Tried,
				})
			}
		} else {
			mr.ByReason[res.Reason.String()]++
		}
	}
	if len(mr.ByReason) == 0 {
		mr.ByReason = nil
	}
	return mr
}

func (p *Pipeline) processFile(path string) report.FileReport {
	fr := report.FileReport{Path: path, Status: report.StatusOK}

	mpb, err := formats.ParseMPBFile(path)
	if err != nil {
		logger.Sugar.Warnw("layout parse failed", "file", path, "error", err)
		fr.Status = report.StatusParseError
		fr.Error = err.Error()
		return fr
	}

	entities := mpb.Entities
	fr.Entities.Total = len(entities)
	fr.Entities.ByKind = kindCounts(mpb)

	if p.cfg.Dedup.Enabled {
		keep, stats := dedup.Mark(entities, dedup.Config{Tolerance: p.cfg.Dedup.Tolerance})
		fr.Dedup = report.DedupReport{
			Before:  stats.Total,
			After:   stats.Kept,
			Dropped: stats.Dropped,
		}
		kept := make([]formats.Entity, 0, stats.Kept)
		for i := range entities {
			if keep[i] {
				kept = append(kept, entities[i])
			}
		}
		entities = kept
	}

	fr.Scatter = p.loadScatter(path, entities)
	fr.Resolved = p.resolveEntities(entities)
	return fr
}

// loadScatter parses every scatter set the surviving entities reference.
// A path that cannot be located under any root is reported separately
// from one that was found but failed to parse.
func (p *Pipeline) loadScatter(layoutPath string, entities []formats.Entity) report.ScatterReport {
	var sr report.ScatterReport
	seen := make(map[string]bool)

	for i := range entities {
		ent := &entities[i]
		if ent.Kind != formats.EntityScatterSet || ent.AssetPath == "" {
			continue
		}
		ref := strings.ToLower(ent.AssetPath)
		if seen[ref] {
			continue
		}
		seen[ref] = true

		full, ok := p.locate(layoutPath, ent.AssetPath)
		if !ok {
			sr.Missing = append(sr.Missing, ent.AssetPath)
			continue
		}
		if _, err := formats.ParseSSBFile(full); err != nil {
			logger.Sugar.Warnw("scatter parse failed", "file", full, "error", err)
			sr.Failed = append(sr.Failed, ent.AssetPath)
			continue
		}
		sr.Loaded++
	}
	return sr
}

// locate maps an in-file asset reference to a real path, trying the
// layout's own directory first and the configured stage-set root second.
func (p *Pipeline) locate(layoutPath, ref string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(ref, "\\", "/"))
	for _, base := range []string{filepath.Dir(layoutPath), p.cfg.Roots.StageSetRoot} {
		if base == "" {
			continue
		}
		full := filepath.Join(base, rel)
		if _, err := os.Stat(full); err == nil {
			return full, true
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Sugar.Warnw("asset probe failed", "path", full, "error", err)
		}
	}
	return "", false
}

// maxUnresolvedDetail bounds the per-identifier failure detail kept in a
// report; real extraction trees miss thousands of textures and the count
// still covers the rest.
const maxUnresolvedDetail = 100

func (p *Pipeline) resolveEntities(entities []formats.Entity) report.Resolution {
	res := report.Resolution{ByReason: make(map[string]int)}
	for i := range entities {
		ent := &entities[i]
		if ent.Kind != formats.EntityMeshInstance || ent.AssetPath == "" {
			continue
		}
		r := p.rv.Resolve(ent.AssetPath)
		if r.Reason == resolver.MatchNone {
			logger.Sugar.Debugw("texture unresolved",
				"identifier", r.Identifier, "tried", r.Tried)
			res.Unresolved++
			if len(res.Failures) < maxUnresolvedDetail {
				res.Failures = append(res.Failures, report.UnresolvedEntry{
					Identifier: r.Identifier,
					Tried:      r.Tried,
				})
			}
			continue
		}
		res.ByReason[r.Reason.String()]++
	}
	if len(res.ByReason) == 0 {
		res.ByReason = nil
	}
	return res
}

func kindCounts(mpb *formats.MPB) map[string]int {
	counts := mpb.CountByKind()
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(counts))
	for kind, n := range counts {
		out[kind.String()] = n
	}
	return out
}
