package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/brightpath/lessongate/internal/types"
)

// Document names the loader expects. Required documents fail the load
// when absent; optional ones are merely noted.
var (
	RequiredDocuments = []string{
		"language_guidelines.md",
		"pedagogical_style.md",
		"digital_interactions.md",
		"question_bank.md",
	}
	OptionalDocuments = []string{
		"definitions_and_examples.md",
		"kb_master_guide.md",
	}
)

// Documents each parser family reads.
const (
	languageDoc     = "language_guidelines.md"
	pedagogyDoc     = "pedagogical_style.md"
	interactionsDoc = "digital_interactions.md"
	definitionsDoc  = "definitions_and_examples.md"
)

// Fallback grades for lookups with an unrecognized grade code. The
// asymmetry (grade 5 for ceilings and interactions, grade 3 for the
// Bloom distribution) is inherited reference behavior, kept on purpose.
const (
	fallbackGradeCeiling = "5"
	fallbackGradeBloom   = "3"
)

const snapshotVersion = "1.0"

// Snapshot is an immutable view of the parsed knowledge base. A loader
// holds exactly one current snapshot; Reload replaces it wholesale and
// never mutates it in place.
type Snapshot struct {
	Version      string
	Checksum     string
	Documents    []string
	Raw          map[string]string
	Ceilings     map[string]LanguageCeiling
	Blooms       map[string]BloomDistribution
	Interactions map[string][]string
}

// Loader reads, parses, and caches the knowledge base documents from a
// directory. The zero filesystem read happens at construction; Load
// must be called explicitly.
type Loader struct {
	path     string
	required []string
	optional []string

	mu   sync.RWMutex
	snap *Snapshot
}

// NewLoader creates a loader for the given document directory using the
// default required/optional document sets.
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		required: RequiredDocuments,
		optional: OptionalDocuments,
	}
}

// NewLoaderWithDocuments creates a loader with explicit required and
// optional document lists.
func NewLoaderWithDocuments(path string, required, optional []string) *Loader {
	return &Loader{path: path, required: required, optional: optional}
}

// Load parses all knowledge base documents and caches the snapshot.
// Subsequent calls return the cached snapshot without touching storage.
// Missing required documents return a *LoadError naming them.
func (l *Loader) Load() (*Snapshot, error) {
	l.mu.RLock()
	if snap := l.snap; snap != nil {
		l.mu.RUnlock()
		return snap, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap != nil {
		return l.snap, nil
	}

	snap, err := l.build()
	if err != nil {
		return nil, err
	}
	l.snap = snap
	slog.Info("knowledge base loaded",
		"documents", len(snap.Documents),
		"checksum", snap.Checksum[:16],
	)
	return snap, nil
}

// Reload discards the cached snapshot and loads from the store again.
// The swap is atomic: concurrent readers see either the old snapshot or
// the new one, never a partial state.
func (l *Loader) Reload() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.build()
	if err != nil {
		return nil, err
	}
	l.snap = snap
	slog.Info("knowledge base reloaded",
		"documents", len(snap.Documents),
		"checksum", snap.Checksum[:16],
	)
	return snap, nil
}

// build reads and parses everything without touching the cache.
// Caller must hold the write lock or be pre-cache.
func (l *Loader) build() (*Snapshot, error) {
	if err := l.checkRequired(); err != nil {
		return nil, err
	}

	raw, err := l.readDocuments()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Snapshot{
		Version:      snapshotVersion,
		Checksum:     checksum(raw),
		Documents:    names,
		Raw:          raw,
		Ceilings:     parseLanguageGuidelines(raw[languageDoc]),
		Blooms:       parseBloomDistributions(raw[pedagogyDoc]),
		Interactions: parseAllowedInteractions(raw[interactionsDoc]),
	}, nil
}

func (l *Loader) checkRequired() error {
	var missing []string
	for _, name := range l.required {
		if _, err := os.Stat(filepath.Join(l.path, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &LoadError{Path: l.path, Missing: missing}
	}
	return nil
}

// readDocuments reads every markdown document in the directory. An
// unreadable file is logged and skipped; absent optional documents are
// noted at warn level.
func (l *Loader) readDocuments() (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.path, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("list knowledge base documents: %w", err)
	}
	sort.Strings(matches)

	raw := make(map[string]string, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable knowledge base document",
				"document", filepath.Base(path), "error", err)
			continue
		}
		raw[filepath.Base(path)] = string(data)
	}

	for _, name := range l.optional {
		if _, ok := raw[name]; !ok {
			slog.Warn("optional knowledge base document not found", "document", name)
		}
	}
	return raw, nil
}

// checksum returns the SHA-256 hex digest over sorted (name, content)
// pairs, so the result is independent of read order.
func checksum(raw map[string]string) string {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte(raw[name]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// current returns the cached snapshot, or nil when not loaded.
func (l *Loader) current() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// IsLoaded reports whether a snapshot is cached in memory.
func (l *Loader) IsLoaded() bool {
	return l.current() != nil
}

// LanguageCeiling returns the language ceiling for a grade. An
// unrecognized grade is logged and resolved to the grade 5 ceiling; the
// result always carries concrete numeric bounds.
func (l *Loader) LanguageCeiling(grade string) LanguageCeiling {
	snap := l.current()
	if snap == nil {
		return LanguageCeiling{
			Grade:             grade,
			MaxSentenceLength: DefaultMaxSentenceLength,
			MaxNewVocab:       DefaultMaxNewVocab,
		}
	}
	if c, ok := snap.Ceilings[grade]; ok {
		return c
	}
	slog.Warn("grade not in language ceilings, using fallback",
		"grade", grade, "fallback", fallbackGradeCeiling)
	if c, ok := snap.Ceilings[fallbackGradeCeiling]; ok {
		return c
	}
	return LanguageCeiling{
		Grade:             grade,
		MaxSentenceLength: DefaultMaxSentenceLength,
		MaxNewVocab:       DefaultMaxNewVocab,
	}
}

// BloomDistribution returns the required cognitive-level distribution
// for a grade's quiz. An unrecognized grade is logged and resolved to
// the grade 3 distribution; if that row is also missing the built-in
// default table applies, never an empty distribution.
func (l *Loader) BloomDistribution(grade string) BloomDistribution {
	snap := l.current()
	if snap == nil {
		return cloneDistribution(DefaultBloomDistribution)
	}
	if d, ok := snap.Blooms[grade]; ok {
		return cloneDistribution(d)
	}
	slog.Warn("grade not in Bloom distributions, using fallback",
		"grade", grade, "fallback", fallbackGradeBloom)
	if d, ok := snap.Blooms[fallbackGradeBloom]; ok {
		return cloneDistribution(d)
	}
	slog.Warn("fallback grade not in Bloom distributions, using built-in default",
		"grade", grade, "fallback", fallbackGradeBloom)
	return cloneDistribution(DefaultBloomDistribution)
}

// AllowedInteractions returns the interaction type names permitted for
// a grade. An unrecognized grade is logged and resolved to the grade 5
// set.
func (l *Loader) AllowedInteractions(grade string) []string {
	snap := l.current()
	if snap == nil {
		return nil
	}
	if names, ok := snap.Interactions[grade]; ok {
		return append([]string(nil), names...)
	}
	slog.Warn("grade not in allowed interactions, using fallback",
		"grade", grade, "fallback", fallbackGradeCeiling)
	return append([]string(nil), snap.Interactions[fallbackGradeCeiling]...)
}

// Definition returns the reference definition text for a concept, or ""
// when the concept has no heading. Grade is accepted for future
// filtering but does not affect the lookup.
func (l *Loader) Definition(concept, grade string) string {
	snap := l.current()
	if snap == nil {
		return ""
	}
	return findDefinition(snap.Raw[definitionsDoc], concept)
}

// FullDocument returns the raw text of one document, or "" if absent.
func (l *Loader) FullDocument(name string) string {
	snap := l.current()
	if snap == nil {
		return ""
	}
	return snap.Raw[name]
}

// VersionInfo returns version metadata for the current snapshot.
func (l *Loader) VersionInfo() types.VersionInfo {
	snap := l.current()
	if snap == nil {
		return types.VersionInfo{Version: "not_loaded"}
	}
	return types.VersionInfo{
		Version:         snap.Version,
		Checksum:        snap.Checksum,
		DocumentsLoaded: append([]string(nil), snap.Documents...),
	}
}

func cloneDistribution(d BloomDistribution) BloomDistribution {
	out := make(BloomDistribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
