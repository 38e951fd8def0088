// Package fs abstracts the file system operations of the local blob store.
//
// Production code uses [Default], which is [LocalFS]. Tests wrap it in a
// [FaultyFS] to make writes, syncs, closes or renames of selected files
// fail:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("values.col", fs.Fault{FailOnSync: true})
//	store := blobstore.NewLocalStoreFS(ffs, dir)
//
// The interfaces take no context.Context. Local file operations are not
// interruptible at the syscall level; remote backends go through the
// blobstore interfaces instead.
package fs
