package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colstage/internal/aggregate"
)

func shapedManifest() Manifest {
	m := sampleManifest()
	m.Columns = []Column{
		{Name: "label", Length: 4},
		{Name: "group", Length: 4},
		{Name: "indexes", Length: 5},
		{Name: "values", Length: 5},
		{Name: "indptr", Length: 5},
	}
	return m
}

func TestCheckShape(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(m *Manifest)
		valid bool
	}{
		{"consistent", func(*Manifest) {}, true},
		{"rows", func(m *Manifest) { m.Rows = 5 }, false},
		{"indexes", func(m *Manifest) { m.Indexes = 4 }, false},
		{"column length", func(m *Manifest) { m.Columns[3].Length = 6 }, false},
		{"dense features", func(m *Manifest) {
			m.Layout = "dense"
			m.Columns = append(m.Columns, Column{Name: "features", Length: 11})
		}, false},
		{"missing placement", func(m *Manifest) { m.Placements = m.Placements[:1] }, false},
		{"repeated placement", func(m *Manifest) { m.Placements[1].Partition = 0 }, false},
		{"overlapping rows", func(m *Manifest) { m.Placements[1].Rows.Start = 1 }, false},
		{"gap in indexes", func(m *Manifest) {
			m.Placements[1].Indexes = aggregate.Range{Start: 4, Len: 1}
		}, false},
		{"negative count", func(m *Manifest) { m.InitScores = -1 }, false},
		{"overflowing features", func(m *Manifest) {
			m.NumCols = 1 << 40
			m.Rows = 1 << 40
			m.Columns = []Column{{Name: "features"}}
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := shapedManifest()
			tc.edit(&m)
			err := m.CheckShape()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInconsistent)
		})
	}
}

func TestCheckIndptr(t *testing.T) {
	m := shapedManifest()
	require.NoError(t, m.CheckShape())

	assert.NoError(t, m.CheckIndptr([]int32{0, 2, 3, 1, 2}))
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 2, 3, 1}), ErrInconsistent)
	assert.ErrorIs(t, m.CheckIndptr([]int32{1, 2, 3, 1, 2}), ErrInconsistent)
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 3, 2, 1, 2}), ErrInconsistent, "decreasing")
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 2, 3, 1, 3}), ErrInconsistent, "past the placement")
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 2, 2, 1, 2}), ErrInconsistent, "short of the placement")

	m.RebasedIndptr = true
	assert.NoError(t, m.CheckIndptr([]int32{0, 2, 3, 4, 5}))
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 2, 3, 4, 4}), ErrInconsistent)
	assert.ErrorIs(t, m.CheckIndptr([]int32{0, 2, 1, 4, 5}), ErrInconsistent)
}
