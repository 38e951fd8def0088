package rowfmt

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/hupe1980/colstage/model"
)

// LibSVMOptions configures the LibSVM reader.
type LibSVMOptions struct {
	// ZeroBased treats feature indexes as zero-based. LibSVM files are
	// conventionally one-based.
	ZeroBased bool
	// MaxLineBytes bounds the length of one line. Defaults to 1 MiB.
	MaxLineBytes int
}

// LibSVM returns the sparse rows of r. Blank lines and lines starting with
// '#' are skipped.
func LibSVM(r io.Reader, opts LibSVMOptions) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		maxLine := opts.MaxLineBytes
		if maxLine <= 0 {
			maxLine = 1 << 20
		}
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)

		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if i := strings.IndexByte(text, '#'); i >= 0 {
				text = strings.TrimSpace(text[:i])
			}
			if text == "" {
				continue
			}

			row, err := parseLibSVMLine(text, opts.ZeroBased)
			if err != nil {
				yield(model.Row{}, fmt.Errorf("rowfmt: libsvm line %d: %w", line, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(model.Row{}, fmt.Errorf("rowfmt: libsvm: %w", err))
		}
	}
}

func parseLibSVMLine(text string, zeroBased bool) (model.Row, error) {
	fields := strings.Fields(text)

	row := model.Row{Weight: 1}
	// "label:weight" is the LightGBM weighted form.
	l, w, weighted := strings.Cut(fields[0], ":")
	label, err := strconv.ParseFloat(l, 32)
	if err != nil {
		return model.Row{}, fmt.Errorf("label: %w", err)
	}
	row.Label = float32(label)
	if weighted {
		wv, err := strconv.ParseFloat(w, 32)
		if err != nil {
			return model.Row{}, fmt.Errorf("weight: %w", err)
		}
		row.Weight = float32(wv)
	}

	indices := make([]int32, 0, len(fields)-1)
	values := make([]float64, 0, len(fields)-1)
	last := int64(-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			return model.Row{}, fmt.Errorf("token %q is not index:value", f)
		}
		if k == "qid" {
			g, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return model.Row{}, fmt.Errorf("qid: %w", err)
			}
			row.Group = g
			continue
		}

		idx, err := strconv.ParseInt(k, 10, 32)
		if err != nil {
			return model.Row{}, fmt.Errorf("index %q: %w", k, err)
		}
		if !zeroBased {
			idx--
		}
		if idx < 0 {
			return model.Row{}, fmt.Errorf("index %q out of range", k)
		}
		if idx <= last {
			return model.Row{}, fmt.Errorf("index %q not ascending", k)
		}
		last = idx

		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.Row{}, fmt.Errorf("value for index %s: %w", k, err)
		}
		indices = append(indices, int32(idx))
		values = append(values, val)
	}
	row.Sparse = model.SparseVector{Indices: indices, Values: values}
	return row, nil
}
