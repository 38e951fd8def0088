// Package rowfmt reads training rows from text formats.
//
// CSV yields dense rows: one column is the label, optional columns hold the
// weight and the group key, every other column is a feature. LibSVM yields
// sparse rows of the form
//
//	<label> [qid:<group>] <index>:<value> ...
//
// Both readers return an iter.Seq2 so a partition can be consumed lazily.
// An error ends the sequence.
package rowfmt
