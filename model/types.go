package model

import (
	"errors"
	"fmt"

	"github.com/hupe1980/colstage/internal/hash"
)

// Layout selects the physical feature layout.
type Layout uint8

const (
	// Dense stores features row-major.
	Dense Layout = iota
	// Sparse stores features as CSR indexes/values/indptr.
	Sparse
)

// String returns "dense" or "sparse".
func (l Layout) String() string {
	switch l {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// ParseLayout parses the String form of a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "dense":
		return Dense, nil
	case "sparse":
		return Sparse, nil
	default:
		return 0, fmt.Errorf("model: unknown layout %q", s)
	}
}

// Schema tells the engine which row fields carry data.
type Schema struct {
	Layout Layout

	// NumCols is the feature dimension. Zero means "learn it from the first
	// row"; every later row in every partition must then agree.
	NumCols int

	HasWeight    bool
	HasInitScore bool
	HasGroup     bool
}

// ErrInvalidSchema is returned by Validate.
var ErrInvalidSchema = errors.New("model: invalid schema")

// Validate checks the schema for internal consistency.
func (s Schema) Validate() error {
	if s.Layout != Dense && s.Layout != Sparse {
		return fmt.Errorf("%w: unknown layout %d", ErrInvalidSchema, s.Layout)
	}
	if s.NumCols < 0 {
		return fmt.Errorf("%w: negative NumCols %d", ErrInvalidSchema, s.NumCols)
	}
	if s.Layout == Sparse && s.NumCols == 0 {
		return fmt.Errorf("%w: sparse layout requires NumCols", ErrInvalidSchema)
	}
	return nil
}

// SparseVector holds the explicitly stored entries of one sparse row.
// Indices must be below the schema's NumCols and pair up with Values.
type SparseVector struct {
	Indices []int32
	Values  []float64
}

// Len returns the number of stored entries.
func (v SparseVector) Len() int {
	return len(v.Indices)
}

// Row is one training example. Fields not enabled by the Schema are ignored.
type Row struct {
	Label float32
	// Weight is used when Schema.HasWeight is set.
	Weight float32
	// InitScores holds zero or more initial scores (one per class for
	// multiclass objectives). Used when Schema.HasInitScore is set.
	InitScores []float64
	// Dense holds the feature values for the Dense layout.
	Dense []float64
	// Sparse holds the feature entries for the Sparse layout.
	Sparse SparseVector
	// Group is an opaque group token; see GroupKey for deriving one from a
	// string. Used when Schema.HasGroup is set.
	Group int64
}

// RowBuilder assembles a Row fluently.
type RowBuilder struct {
	row Row
}

// NewRow starts a row with the given label and weight 1.
func NewRow(label float32) *RowBuilder {
	return &RowBuilder{row: Row{Label: label, Weight: 1}}
}

// WithWeight sets the row weight.
func (b *RowBuilder) WithWeight(w float32) *RowBuilder {
	b.row.Weight = w
	return b
}

// WithInitScores sets the initial scores.
func (b *RowBuilder) WithInitScores(scores ...float64) *RowBuilder {
	b.row.InitScores = scores
	return b
}

// WithDense sets dense features.
func (b *RowBuilder) WithDense(values ...float64) *RowBuilder {
	b.row.Dense = values
	return b
}

// WithSparse sets sparse features.
func (b *RowBuilder) WithSparse(indices []int32, values []float64) *RowBuilder {
	b.row.Sparse = SparseVector{Indices: indices, Values: values}
	return b
}

// WithGroup sets the group token.
func (b *RowBuilder) WithGroup(g int64) *RowBuilder {
	b.row.Group = g
	return b
}

// Build returns the assembled row.
func (b *RowBuilder) Build() Row {
	return b.row
}

// GroupKey derives a non-negative group token from a string key. Equal
// keys always map to equal tokens.
func GroupKey(key string) int64 {
	return int64(hash.String64(key) >> 1)
}
