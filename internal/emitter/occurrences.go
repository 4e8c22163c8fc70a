package emitter

import (
	"fmt"
	"io"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/pkg/model"
)

// Occurrences prints one `<path> = <match_count>` line per file, including
// files without matches.
type Occurrences struct {
	Out io.Writer
}

func (e *Occurrences) Name() string { return string(config.OutputOccurrences) }

func (e *Occurrences) Emit(results []model.QueryResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(e.Out, "%s = %d\n", r.Path, r.MatchCount()); err != nil {
			return fmt.Errorf("failed to write occurrences: %w", err)
		}
	}
	return nil
}
