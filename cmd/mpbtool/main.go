// mpbtool is a CLI utility for inspecting extracted map layout, material
// and scatter files, and for running the batch reconstruction pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/valisthea-tools/stagemap/internal/assetindex"
	"github.com/valisthea-tools/stagemap/internal/config"
	"github.com/valisthea-tools/stagemap/internal/logger"
	"github.com/valisthea-tools/stagemap/internal/pipeline"
	"github.com/valisthea-tools/stagemap/internal/resolver"
	"github.com/valisthea-tools/stagemap/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "entities", "ls":
		cmdEntities(args)
	case "material", "mtl":
		cmdMaterial(args)
	case "scatter", "ssb":
		cmdScatter(args)
	case "resolve":
		cmdResolve(args)
	case "run", "export":
		cmdRun(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mpbtool - map layout inspection and reconstruction utility

Usage:
  mpbtool <command> [options]

Commands:
  info <file.mpb>                 Show layout information
  entities <file.mpb> [options]   List placed entities
  material <file.mtl>             Show material slots and shader
  scatter <file.ssb> [options]    Show scatter models and instances
  resolve <identifier...>         Resolve identifiers to texture files
  run <dir|file.mpb...>           Batch-process layouts into a report
                                  (alias: export)

Examples:
  mpbtool info maps/a01/layout.mpb
  mpbtool entities maps/a01/layout.mpb -kind light
  mpbtool resolve -config stagemap.yaml bt_a01_reli_crackwall01a
  mpbtool run -out report.yaml maps/`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fatalf("Usage: mpbtool info <file.mpb>")
	}

	mpb, err := formats.ParseMPBFile(args[0])
	if err != nil {
		fatalf("Error: %v", err)
	}

	fmt.Printf("Layout:   %s\n", args[0])
	fmt.Printf("Version:  %d\n", mpb.Version)
	fmt.Printf("Groups:   %d\n", len(mpb.Groups))
	fmt.Printf("Entities: %d\n", len(mpb.Entities))
	fmt.Println()

	counts := mpb.CountByKind()
	kinds := make([]formats.EntityKind, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return counts[kinds[i]] > counts[kinds[j]]
	})
	fmt.Println("Entities by kind:")
	for _, kind := range kinds {
		fmt.Printf("  %-14s %d\n", kind.String(), counts[kind])
	}
}

func cmdEntities(args []string) {
	fs := flag.NewFlagSet("entities", flag.ExitOnError)
	kindName := fs.String("kind", "", "Filter by kind (mesh, scatter, geometry, light, navmesh)")
	limit := fs.Int("n", 0, "Limit output to N entities (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: mpbtool entities <file.mpb> [-kind k] [-n N]")
	}

	mpb, err := formats.ParseMPBFile(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}

	filter, err := kindFilter(*kindName)
	if err != nil {
		fatalf("Error: %v", err)
	}

	count := 0
	for i := range mpb.Entities {
		ent := &mpb.Entities[i]
		if filter != nil && ent.Kind != *filter {
			continue
		}
		pos := ent.Position
		fmt.Printf("%-14s group=%-4d pos=(%.2f, %.2f, %.2f) %s\n",
			ent.Kind, ent.GroupID, pos.X(), pos.Y(), pos.Z(), ent.AssetPath)
		if ent.Kind == formats.EntityLight && ent.Light != nil {
			r, g, b := ent.Light.RGB()
			fmt.Printf("               color=(%.2f, %.2f, %.2f) intensity=%.2f range=%.2f\n",
				r, g, b, ent.Light.Intensity, ent.Light.Range)
		}
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%d entities)\n", count)
}

func kindFilter(name string) (*formats.EntityKind, error) {
	if name == "" {
		return nil, nil
	}
	var kind formats.EntityKind
	switch strings.ToLower(name) {
	case "mesh":
		kind = formats.EntityMeshInstance
	case "scatter":
		kind = formats.EntityScatterSet
	case "geometry":
		kind = formats.EntityGeometry
	case "light":
		kind = formats.EntityLight
	case "navmesh":
		kind = formats.EntityNavMesh
	default:
		return nil, fmt.Errorf("unknown kind %q", name)
	}
	return &kind, nil
}

func cmdMaterial(args []string) {
	if len(args) < 1 {
		fatalf("Usage: mpbtool material <file.mtl>")
	}

	mat, err := formats.ParseMTLFile(args[0])
	if err != nil {
		fatalf("Error: %v", err)
	}

	fmt.Printf("Material: %s\n", args[0])
	fmt.Printf("Version:  %d.%d\n", mat.MajorVersion, mat.MinorVersion)
	fmt.Printf("Shader:   %s (hash 0x%08X)\n", mat.ShaderName, mat.ShaderHash)
	fmt.Println()
	fmt.Println("Texture slots:")
	for _, slot := range mat.Slots {
		fmt.Printf("  %-32s %s\n", slot.ShaderVariable, slot.TexturePath)
	}
}

func cmdScatter(args []string) {
	fs := flag.NewFlagSet("scatter", flag.ExitOnError)
	limit := fs.Int("n", 20, "Limit instance output (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: mpbtool scatter <file.ssb> [-n N]")
	}

	ssb, err := formats.ParseSSBFile(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}

	origin := ssb.ChunkOrigin
	fmt.Printf("Scatter:   %s\n", fs.Arg(0))
	fmt.Printf("Origin:    (%.2f, %.2f, %.2f)\n", origin.X(), origin.Y(), origin.Z())
	fmt.Printf("Models:    %d\n", len(ssb.Models))
	fmt.Printf("Instances: %d\n", len(ssb.Instances))
	fmt.Println()

	for i := range ssb.Instances {
		if *limit > 0 && i >= *limit {
			fmt.Fprintf(os.Stderr, "(showing first %d instances, use -n 0 for all)\n", *limit)
			break
		}
		inst := &ssb.Instances[i]
		pos := inst.Position
		fmt.Printf("  (%.2f, %.2f, %.2f) %s\n", pos.X(), pos.Y(), pos.Z(), ssb.Model(inst))
	}
}

func cmdResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: mpbtool resolve [-config path] <identifier...>")
	}

	cfg := mustConfig(*configPath)
	idx, err := assetindex.Build(assetindex.Options{
		MaterialRoots: cfg.Roots.MaterialRoots,
		TextureRoots:  cfg.Roots.TextureRoots,
		SkipDirs:      cfg.Scan.SkipDirs,
	})
	if err != nil {
		fatalf("Error building index: %v", err)
	}

	rv := resolver.New(idx)
	for _, identifier := range fs.Args() {
		res := rv.Resolve(identifier)
		if res.Reason == resolver.MatchNone {
			fmt.Printf("%-40s unresolved (tried %s)\n", identifier, strings.Join(res.Tried, ", "))
			continue
		}
		fmt.Printf("%-40s %-20s %s\n", identifier, res.Reason, res.TexturePath)
	}
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	out := fs.String("out", "", "Write the YAML report to a file instead of stdout")
	noDedup := fs.Bool("no-dedup", false, "Disable spatial deduplication")
	tolerance := fs.Float64("tolerance", 0, "Dedup position quantization step")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: mpbtool run [-config path] [-out report.yaml] <dir|file.mpb...>")
	}

	cfg := mustConfig(*configPath)
	if *noDedup {
		cfg.Dedup.Enabled = false
	}
	if *tolerance > 0 {
		cfg.Dedup.Tolerance = *tolerance
	}

	var files []string
	for _, arg := range fs.Args() {
		st, err := os.Stat(arg)
		if err != nil {
			fatalf("Error: %v", err)
		}
		if st.IsDir() {
			found, err := pipeline.Discover(arg)
			if err != nil {
				fatalf("Error scanning %s: %v", arg, err)
			}
			files = append(files, found...)
			continue
		}
		files = append(files, arg)
	}
	if len(files) == 0 {
		fatalf("No layout files found")
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	sum, err := p.Run(context.Background(), files)
	if err != nil {
		fatalf("Error: %v", err)
	}

	if *out != "" {
		if err := sum.SaveYAML(*out); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *out)
		return
	}
	if err := sum.WriteYAML(os.Stdout); err != nil {
		fatalf("Error: %v", err)
	}
}

func mustConfig(path string) *config.Config {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatalf("Error initializing logger: %v", err)
	}
	return cfg
}
