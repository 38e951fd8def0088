package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/colstage/codec"
	"github.com/hupe1980/colstage/internal/aggregate"
	"github.com/hupe1980/colstage/model"
)

const (
	// ManifestFileName is the manifest blob inside a snapshot.
	ManifestFileName = "MANIFEST"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1

	headerMagic = "colstage-manifest"
)

var (
	// ErrIncompatibleVersion is returned when the manifest version is not supported.
	ErrIncompatibleVersion = errors.New("snapshot: incompatible manifest version")
	// ErrNotFound is returned when a snapshot has no manifest.
	ErrNotFound = errors.New("snapshot: not found")
	// ErrChecksum is returned when a column's decoded bytes do not match
	// the manifest digest.
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	// ErrIncomplete is returned by Verify when a column blob is missing or
	// has a different size than recorded.
	ErrIncomplete = errors.New("snapshot: incomplete")
	// ErrInconsistent is returned when manifest counts, placements and
	// column lengths disagree.
	ErrInconsistent = errors.New("snapshot: inconsistent manifest")
)

// Manifest describes a saved dataset.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	Layout       string `json:"layout"`
	NumCols      int    `json:"num_cols"`
	HasWeight    bool   `json:"has_weight"`
	HasInitScore bool   `json:"has_init_score"`
	HasGroup     bool   `json:"has_group"`

	Rows       int64 `json:"rows"`
	InitScores int64 `json:"init_scores"`
	Indexes    int64 `json:"indexes"`
	Partitions int   `json:"partitions"`

	// RebasedIndptr is set when the indptr column is a global CSR pointer
	// array rather than partition-relative segments.
	RebasedIndptr bool                  `json:"rebased_indptr"`
	Placements    []aggregate.Placement `json:"placements"`
	Columns       []Column              `json:"columns"`
}

// Column describes one column blob.
type Column struct {
	Name        string `json:"name"`
	DType       string `json:"dtype"`
	Length      int    `json:"length"`
	Blob        string `json:"blob"`
	Compression string `json:"compression"`
	StoredBytes int64  `json:"stored_bytes"`
	Checksum    uint64 `json:"checksum"`
}

// Schema rebuilds the model schema recorded in the manifest.
func (m *Manifest) Schema() (model.Schema, error) {
	layout, err := model.ParseLayout(m.Layout)
	if err != nil {
		return model.Schema{}, err
	}
	s := model.Schema{
		Layout:       layout,
		NumCols:      m.NumCols,
		HasWeight:    m.HasWeight,
		HasInitScore: m.HasInitScore,
		HasGroup:     m.HasGroup,
	}
	return s, s.Validate()
}

// Column looks up a column by name.
func (m *Manifest) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// StoredBytes sums the stored size of every column blob.
func (m *Manifest) StoredBytes() int64 {
	var n int64
	for _, c := range m.Columns {
		n += c.StoredBytes
	}
	return n
}

func encodeManifest(c codec.Codec, m *Manifest) ([]byte, error) {
	payload, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode manifest: %w", err)
	}
	out := make([]byte, 0, len(headerMagic)+len(c.Name())+2+len(payload))
	out = append(out, headerMagic...)
	out = append(out, ' ')
	out = append(out, c.Name()...)
	out = append(out, '\n')
	return append(out, payload...), nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	header, payload, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, fmt.Errorf("snapshot: manifest has no header")
	}
	magic, name, ok := bytes.Cut(header, []byte{' '})
	if !ok || string(magic) != headerMagic {
		return nil, fmt.Errorf("snapshot: bad manifest header %q", header)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("snapshot: manifest codec %q not available", name)
	}

	var m Manifest
	if err := c.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("snapshot: decode manifest: %w", err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	return &m, nil
}
