// Package model defines the row and schema types shared by every staging
// package.
//
// # Layouts
//
//   - Dense: every row carries exactly NumCols feature values; the merged
//     feature column is row-major with length rows*NumCols.
//   - Sparse: every row carries (index, value) pairs below NumCols; the
//     merged output is CSR-like (indexes, values, indptr).
//
// # Row Builder
//
//	row := model.NewRow(1.0).
//	    WithWeight(0.5).
//	    WithDense(0.1, 0.2, 0.3).
//	    WithGroup(7).
//	    Build()
package model
