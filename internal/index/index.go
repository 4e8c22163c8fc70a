package index

import (
	"path/filepath"
	"sort"

	"github.com/QTest-hq/antenna/internal/parser"
)

// Stats summarizes an indexing run
type Stats struct {
	// Distinct candidate paths across all queries
	Candidates int

	// Files parsed; each distinct path is parsed at most once
	Parsed int

	// Files stored in the index
	Files int

	// Total bytes of indexed content
	Bytes int64
}

// Index is an arena of parsed files plus per-query file sets addressed by
// FileID. It is read-only once Indexer.Index returns.
type Index struct {
	files   []*IndexedFile
	byPath  map[string]FileID
	byQuery map[string][]FileID
	stats   Stats
}

func newIndex() *Index {
	return &Index{
		byPath:  make(map[string]FileID),
		byQuery: make(map[string][]FileID),
	}
}

// add stores f unless an equal file is already present, returning its id
func (idx *Index) add(f *IndexedFile) FileID {
	if id, ok := idx.byPath[f.Path]; ok && idx.files[id].Equal(f) {
		return id
	}

	f.ID = FileID(len(idx.files))
	idx.files = append(idx.files, f)
	idx.byPath[f.Path] = f.ID
	idx.stats.Files++
	idx.stats.Bytes += int64(len(f.Content))
	return f.ID
}

// associate records the indexed files among paths as the query's file set.
// Paths that failed to index are skipped.
func (idx *Index) associate(query string, paths []string) {
	ids := make([]FileID, 0, len(paths))
	seen := make(map[FileID]bool, len(paths))
	for _, p := range paths {
		id, ok := idx.byPath[p]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	idx.byQuery[query] = ids
}

// FilesFor returns the files matched by the named query. The slice has set
// semantics; callers must not rely on its order.
func (idx *Index) FilesFor(query string) []*IndexedFile {
	ids := idx.byQuery[query]
	files := make([]*IndexedFile, 0, len(ids))
	for _, id := range ids {
		files = append(files, idx.files[id])
	}
	return files
}

// HasQuery reports whether the query was part of the indexed configuration
func (idx *Index) HasQuery(query string) bool {
	_, ok := idx.byQuery[query]
	return ok
}

// FileByPath looks a file up by path; relative paths are resolved against
// the working directory.
func (idx *Index) FileByPath(path string) (*IndexedFile, bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id, ok := idx.byPath[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return idx.files[id], true
}

// File returns the file with the given id
func (idx *Index) File(id FileID) *IndexedFile {
	if id < 0 || int(id) >= len(idx.files) {
		return nil
	}
	return idx.files[id]
}

// Files returns every indexed file
func (idx *Index) Files() []*IndexedFile {
	out := make([]*IndexedFile, len(idx.files))
	copy(out, idx.files)
	return out
}

// Languages returns the distinct languages among the query's files, sorted
// by name.
func (idx *Index) Languages(query string) []parser.Language {
	seen := make(map[string]parser.Language)
	for _, id := range idx.byQuery[query] {
		f := idx.files[id]
		seen[f.LanguageName()] = f.Language
	}

	langs := make([]parser.Language, 0, len(seen))
	for _, l := range seen {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		return langs[i].Name() < langs[j].Name()
	})
	return langs
}

// Stats returns indexing statistics
func (idx *Index) Stats() Stats {
	return idx.stats
}
