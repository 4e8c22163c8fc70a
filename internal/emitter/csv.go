package emitter

import (
	"encoding/csv"
	"fmt"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/pkg/model"
)

// CSV writes one row per capture, preceded by model.CsvHeader
type CSV struct {
	Path string
}

func (e *CSV) Name() string { return string(config.OutputCSV) }

func (e *CSV) Emit(results []model.QueryResult) (err error) {
	f, err := createFile(e.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", e.Path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(model.CsvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range model.Flatten(results) {
		if err := w.Write(record.Row()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.Path, err)
	}
	return nil
}
