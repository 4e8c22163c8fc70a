// Package model defines the normalized, serializable result shape produced by
// query execution and consumed by the output emitters.
package model

import (
	"sort"
	"strconv"
)

// QueryResult holds the matches of one query in one file
type QueryResult struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Matches []Match `json:"matches"`
}

// Match is one pattern match; captures keep the engine's order
type Match struct {
	Captures []Capture `json:"captures"`
}

// Capture is one named node bound by a match. Lines and columns are
// zero-based; columns count bytes.
type Capture struct {
	Name        string `json:"name"`
	Text        string `json:"text"`
	StartColumn int    `json:"start_column"`
	StartLine   int    `json:"start_line"`
	EndColumn   int    `json:"end_column"`
	EndLine     int    `json:"end_line"`
}

// CsvRecord is the flattened projection of one capture
type CsvRecord struct {
	MatchIdx    int
	Query       string
	Path        string
	Capture     string
	Text        string
	StartColumn int
	StartLine   int
	EndColumn   int
	EndLine     int
}

// CsvHeader lists the CSV columns in output order
var CsvHeader = []string{
	"match_idx", "query", "path", "capture", "text",
	"start_column", "start_line", "end_column", "end_line",
}

// Row renders the record in CsvHeader order
func (r CsvRecord) Row() []string {
	return []string{
		strconv.Itoa(r.MatchIdx),
		r.Query,
		r.Path,
		r.Capture,
		r.Text,
		strconv.Itoa(r.StartColumn),
		strconv.Itoa(r.StartLine),
		strconv.Itoa(r.EndColumn),
		strconv.Itoa(r.EndLine),
	}
}

// MatchCount returns the number of matches in the file
func (r QueryResult) MatchCount() int {
	return len(r.Matches)
}

// Flatten projects results into one record per capture. MatchIdx restarts at
// zero for every file so rows can be regrouped by (path, match_idx).
func Flatten(results []QueryResult) []CsvRecord {
	var records []CsvRecord
	for _, result := range results {
		for idx, match := range result.Matches {
			for _, c := range match.Captures {
				records = append(records, CsvRecord{
					MatchIdx:    idx,
					Query:       result.Name,
					Path:        result.Path,
					Capture:     c.Name,
					Text:        c.Text,
					StartColumn: c.StartColumn,
					StartLine:   c.StartLine,
					EndColumn:   c.EndColumn,
					EndLine:     c.EndLine,
				})
			}
		}
	}
	return records
}

// WithMatches returns the results that have at least one match
func WithMatches(results []QueryResult) []QueryResult {
	out := make([]QueryResult, 0, len(results))
	for _, r := range results {
		if len(r.Matches) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// SortByPath orders results by file path in place
func SortByPath(results []QueryResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
}

// TotalMatches sums the matches of every file
func TotalMatches(results []QueryResult) int {
	total := 0
	for _, r := range results {
		total += len(r.Matches)
	}
	return total
}
