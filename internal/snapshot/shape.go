package snapshot

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/colstage/internal/aggregate"
)

// CheckShape reports whether the manifest's counts, column lengths and
// placements describe one consistent dataset. It reads no column data.
func (m *Manifest) CheckShape() error {
	if m.Rows < 0 || m.InitScores < 0 || m.Indexes < 0 || m.Partitions < 0 || m.NumCols < 0 {
		return inconsistent("negative count")
	}
	if m.Rows > math.MaxInt-1 || m.InitScores > math.MaxInt || m.Indexes > math.MaxInt {
		return inconsistent("counts exceed addressable length")
	}

	var errs []error
	for _, col := range m.Columns {
		want, known, err := m.expectedLength(col.Name)
		switch {
		case err != nil:
			errs = append(errs, err)
		case known && int64(col.Length) != want:
			errs = append(errs, inconsistent(fmt.Sprintf("column %s has %d values, manifest implies %d", col.Name, col.Length, want)))
		}
	}
	errs = append(errs, m.checkPlacements())
	return errors.Join(errs...)
}

func (m *Manifest) expectedLength(name string) (int64, bool, error) {
	switch name {
	case "label", "weight", "group":
		return m.Rows, true, nil
	case "init_score":
		return m.InitScores, true, nil
	case "features":
		if m.NumCols > 0 && m.Rows > math.MaxInt/int64(m.NumCols) {
			return 0, false, inconsistent(fmt.Sprintf("%d rows of %d cols exceed addressable length", m.Rows, m.NumCols))
		}
		return m.Rows * int64(m.NumCols), true, nil
	case "indexes", "values":
		return m.Indexes, true, nil
	case "indptr":
		return m.Rows + 1, true, nil
	}
	return 0, false, nil
}

func (m *Manifest) checkPlacements() error {
	if len(m.Placements) != m.Partitions {
		return inconsistent(fmt.Sprintf("%d placements for %d partitions", len(m.Placements), m.Partitions))
	}
	seen := make([]bool, m.Partitions)
	rows := make([]aggregate.Range, 0, len(m.Placements))
	scores := make([]aggregate.Range, 0, len(m.Placements))
	indexes := make([]aggregate.Range, 0, len(m.Placements))
	for _, p := range m.Placements {
		if p.Partition < 0 || p.Partition >= m.Partitions || seen[p.Partition] {
			return inconsistent(fmt.Sprintf("placement of partition %d is out of range or repeated", p.Partition))
		}
		seen[p.Partition] = true
		rows = append(rows, p.Rows)
		scores = append(scores, p.InitScores)
		indexes = append(indexes, p.Indexes)
	}

	if err := tiles("rows", rows, m.Rows); err != nil {
		return err
	}
	if err := tiles("init scores", scores, m.InitScores); err != nil {
		return err
	}
	return tiles("indexes", indexes, m.Indexes)
}

// tiles checks that the non-empty ranges cover [0,total) without gaps or
// overlap.
func tiles(what string, ranges []aggregate.Range, total int64) error {
	nonEmpty := ranges[:0:0]
	for _, r := range ranges {
		if r.Start < 0 || r.Len < 0 || int64(r.End()) > total {
			return inconsistent(fmt.Sprintf("%s range [%d,+%d) outside [0,%d)", what, r.Start, r.Len, total))
		}
		if r.Len > 0 {
			nonEmpty = append(nonEmpty, r)
		}
	}
	slices.SortFunc(nonEmpty, func(a, b aggregate.Range) int { return a.Start - b.Start })

	next := 0
	for _, r := range nonEmpty {
		if r.Start != next {
			return inconsistent(fmt.Sprintf("%s ranges leave a gap or overlap at %d", what, next))
		}
		next = r.End()
	}
	if int64(next) != total {
		return inconsistent(fmt.Sprintf("%s ranges cover %d of %d", what, next, total))
	}
	return nil
}

// CheckIndptr validates the values of a sparse indptr column against the
// manifest: a leading zero, then per-row ends that never decrease and stay
// inside the owning nonzero range. Partition-relative segments restart at
// zero at each placement.
func (m *Manifest) CheckIndptr(indptr []int32) error {
	if int64(len(indptr)) != m.Rows+1 {
		return inconsistent(fmt.Sprintf("indptr has %d slots for %d rows", len(indptr), m.Rows))
	}
	if indptr[0] != 0 {
		return inconsistent("indptr does not start at zero")
	}

	if m.RebasedIndptr {
		if err := monotonic("rebased indptr", indptr, m.Indexes); err != nil {
			return err
		}
		if last := int64(indptr[len(indptr)-1]); last != m.Indexes {
			return inconsistent(fmt.Sprintf("rebased indptr ends at %d, manifest has %d nonzeros", last, m.Indexes))
		}
		return nil
	}
	for _, p := range m.Placements {
		if p.Rows.Len == 0 {
			continue
		}
		seg := indptr[1+p.Rows.Start : 1+p.Rows.End()]
		if err := monotonic(fmt.Sprintf("indptr of partition %d", p.Partition), seg, int64(p.Indexes.Len)); err != nil {
			return err
		}
		if int64(seg[len(seg)-1]) != int64(p.Indexes.Len) {
			return inconsistent(fmt.Sprintf("indptr of partition %d ends at %d, placement holds %d",
				p.Partition, seg[len(seg)-1], p.Indexes.Len))
		}
	}
	return nil
}

func monotonic(what string, ends []int32, hi int64) error {
	var prev int64
	for _, e := range ends {
		if int64(e) < prev || int64(e) > hi {
			return inconsistent(fmt.Sprintf("%s value %d outside [%d,%d]", what, e, prev, hi))
		}
		prev = int64(e)
	}
	return nil
}

func inconsistent(reason string) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, reason)
}
