package rowfmt

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/hupe1980/colstage/model"
)

// CSVOptions selects the meaning of CSV columns. Column indexes are
// zero-based; -1 disables a column.
type CSVOptions struct {
	LabelColumn  int
	WeightColumn int
	GroupColumn  int
	// Header skips the first record.
	Header bool
	Comma  rune
}

// DefaultCSVOptions reads the label from column 0 with no weight or group.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{LabelColumn: 0, WeightColumn: -1, GroupColumn: -1, Comma: ','}
}

// CSV returns the dense rows of r.
func CSV(r io.Reader, opts CSVOptions) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		cr := csv.NewReader(r)
		if opts.Comma != 0 {
			cr.Comma = opts.Comma
		}
		cr.ReuseRecord = true
		cr.TrimLeadingSpace = true

		line := 0
		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			line++
			if err != nil {
				yield(model.Row{}, fmt.Errorf("rowfmt: csv: %w", err))
				return
			}
			if line == 1 && opts.Header {
				continue
			}

			row, err := parseCSVRecord(rec, opts)
			if err != nil {
				yield(model.Row{}, fmt.Errorf("rowfmt: csv line %d: %w", line, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func parseCSVRecord(rec []string, opts CSVOptions) (model.Row, error) {
	if opts.LabelColumn < 0 || opts.LabelColumn >= len(rec) {
		return model.Row{}, fmt.Errorf("label column %d missing from %d fields", opts.LabelColumn, len(rec))
	}

	row := model.Row{Weight: 1, Dense: make([]float64, 0, len(rec))}
	for i, field := range rec {
		switch i {
		case opts.LabelColumn:
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return model.Row{}, fmt.Errorf("label: %w", err)
			}
			row.Label = float32(v)
		case opts.WeightColumn:
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return model.Row{}, fmt.Errorf("weight: %w", err)
			}
			row.Weight = float32(v)
		case opts.GroupColumn:
			row.Group = groupToken(field)
		default:
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return model.Row{}, fmt.Errorf("feature %d: %w", len(row.Dense), err)
			}
			row.Dense = append(row.Dense, v)
		}
	}
	return row, nil
}

// groupToken keeps integer group ids as-is and hashes anything else.
func groupToken(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return model.GroupKey(s)
}
