package aggregate

import (
	"slices"
	"sort"
)

// Locator resolves global rows of a sparse result to their span in the
// indexes and values columns.
type Locator struct {
	byRow   []Placement
	rebased bool
}

// NewLocator indexes placements by row start. rebased tells whether the
// indptr holds global offsets.
func NewLocator(placements []Placement, rebased bool) *Locator {
	byRow := make([]Placement, 0, len(placements))
	for _, p := range placements {
		if p.Rows.Len > 0 {
			byRow = append(byRow, p)
		}
	}
	slices.SortFunc(byRow, func(a, b Placement) int { return a.Rows.Start - b.Rows.Start })
	return &Locator{byRow: byRow, rebased: rebased}
}

// Placement returns the placement holding row r.
func (l *Locator) Placement(r int) (Placement, bool) {
	i := sort.Search(len(l.byRow), func(i int) bool { return l.byRow[i].Rows.End() > r })
	if i == len(l.byRow) || !l.byRow[i].Rows.Contains(r) {
		return Placement{}, false
	}
	return l.byRow[i], true
}

// Span returns the [start, end) range of row r's nonzeros.
func (l *Locator) Span(indptr []int32, r int) (start, end int, ok bool) {
	p, ok := l.Placement(r)
	if !ok || r+1 >= len(indptr) {
		return 0, 0, false
	}
	if l.rebased {
		return int(indptr[r]), int(indptr[r+1]), true
	}

	lo := 0
	if r > p.Rows.Start {
		lo = int(indptr[r])
	}
	return p.Indexes.Start + lo, p.Indexes.Start + int(indptr[r+1]), true
}
