// Package report collects the outcome of a batch reconstruction run into
// a serializable summary.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// File parse status values.
const (
	StatusOK         = "ok"
	StatusParseError = "parse-error"
)

// FileReport holds the outcome for a single world layout file.
type FileReport struct {
	Path     string        `yaml:"path"`
	Status   string        `yaml:"status"`
	Error    string        `yaml:"error,omitempty"`
	Entities EntityCounts  `yaml:"entities,omitempty"`
	Scatter  ScatterReport `yaml:"scatter,omitempty"`
	Dedup    DedupReport   `yaml:"dedup,omitempty"`
	Resolved Resolution    `yaml:"resolution,omitempty"`
}

// EntityCounts breaks entity totals down by kind name.
type EntityCounts struct {
	Total  int            `yaml:"total"`
	ByKind map[string]int `yaml:"by_kind,omitempty"`
}

// ScatterReport tracks the scatter files a layout referenced. Missing
// files were not found under any configured root; Failed files were
// found but did not parse. The two are different problems: the first is
// a roots configuration issue, the second a data issue.
type ScatterReport struct {
	Loaded  int      `yaml:"loaded"`
	Missing []string `yaml:"missing,omitempty"`
	Failed  []string `yaml:"failed,omitempty"`
}

// DedupReport records how many placements the duplicate pass removed.
type DedupReport struct {
	Before  int `yaml:"before"`
	After   int `yaml:"after"`
	Dropped int `yaml:"dropped"`
}

// UnresolvedEntry records one identifier that resolved to nothing,
// together with every lookup key that was attempted, so a failed
// resolution can be diagnosed from the report alone.
type UnresolvedEntry struct {
	Identifier string   `yaml:"identifier"`
	Tried      []string `yaml:"tried,omitempty"`
}

// Resolution splits texture resolution outcomes by match reason.
// Unresolved is a count, not a failure: identifiers with no plausible
// texture are expected in any real asset tree. Failures carries the
// per-identifier detail behind that count, capped by the producer.
type Resolution struct {
	ByReason   map[string]int    `yaml:"by_reason,omitempty"`
	Unresolved int               `yaml:"unresolved"`
	Failures   []UnresolvedEntry `yaml:"unresolved_detail,omitempty"`
}

// Materials summarizes the pass over indexed material files. Failed
// lists files that did not parse (bad magic, unsupported version,
// corruption) as "path: error"; a parse failure never aborts the pass.
// Unresolved materials — parsed fine, no texture found — are listed
// separately with their attempted lookup keys.
type Materials struct {
	Parsed     int               `yaml:"parsed"`
	Failed     []string          `yaml:"failed,omitempty"`
	ByReason   map[string]int    `yaml:"resolved_by_reason,omitempty"`
	Unresolved int               `yaml:"unresolved"`
	Failures   []UnresolvedEntry `yaml:"unresolved_detail,omitempty"`
}

// Summary is the top-level run report.
type Summary struct {
	GeneratedAt time.Time    `yaml:"generated_at"`
	IndexStems  int          `yaml:"index_stems"`
	IndexFiles  int          `yaml:"index_files"`
	Files       []FileReport `yaml:"files"`
	Materials   Materials    `yaml:"materials"`
	Totals      Totals       `yaml:"totals"`
}

// Totals aggregates across all files in the run.
type Totals struct {
	Files       int            `yaml:"files"`
	ParseErrors int            `yaml:"parse_errors"`
	Entities    int            `yaml:"entities"`
	Dropped     int            `yaml:"duplicates_dropped"`
	Resolved    map[string]int `yaml:"resolved_by_reason,omitempty"`
	Unresolved  int            `yaml:"unresolved"`
}

// New returns an empty summary stamped with the current time.
func New() *Summary {
	return &Summary{GeneratedAt: time.Now().UTC()}
}

// Add appends a file report and folds it into the totals.
func (s *Summary) Add(fr FileReport) {
	s.Files = append(s.Files, fr)
	s.Totals.Files++
	if fr.Status != StatusOK {
		s.Totals.ParseErrors++
		return
	}
	s.Totals.Entities += fr.Entities.Total
	s.Totals.Dropped += fr.Dedup.Dropped
	s.Totals.Unresolved += fr.Resolved.Unresolved
	for reason, n := range fr.Resolved.ByReason {
		if s.Totals.Resolved == nil {
			s.Totals.Resolved = make(map[string]int)
		}
		s.Totals.Resolved[reason] += n
	}
}

// Sort orders the per-file reports by path so output is stable no matter
// what order the files were processed in.
func (s *Summary) Sort() {
	sort.Slice(s.Files, func(i, j int) bool {
		return s.Files[i].Path < s.Files[j].Path
	})
}

// WriteYAML encodes the summary to w.
func (s *Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the summary to a file, replacing any previous report.
func (s *Summary) SaveYAML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := s.WriteYAML(f); err != nil {
		return err
	}
	return f.Close()
}
