// Package compress implements the block compression used for snapshot
// column payloads.
//
// A payload is a sequence of blocks, each framed as
// [UncompressedSize uint32][CompressedSize uint32][Data...]. A block whose
// compressed form saves less than 10% is stored raw with CompressedSize 0.
package compress
