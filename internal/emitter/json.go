package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/pkg/model"
)

// JSON writes the results as an indented array of query objects. With
// RequireMatches, files without matches are left out.
type JSON struct {
	Path           string
	RequireMatches bool
}

func (e *JSON) Name() string { return string(config.OutputJSON) }

func (e *JSON) Emit(results []model.QueryResult) (err error) {
	if e.RequireMatches {
		results = model.WithMatches(results)
	}
	if results == nil {
		results = []model.QueryResult{}
	}

	f, err := createFile(e.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", e.Path, cerr)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.Path, err)
	}
	return nil
}
