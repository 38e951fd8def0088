package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colstage"
	"github.com/hupe1980/colstage/blobstore"
	"github.com/hupe1980/colstage/internal/config"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := newRootCommand(&stdout, &stderr)
	rc.SetArgs(args)
	err := rc.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStageAndInspect_CSV(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	a := writeFile(t, dir, "a.csv", "label,x,y\n1,0.5,0.25\n0,0.1,0.2\n")
	b := writeFile(t, dir, "b.csv", "label,x,y\n1,3,4\n")

	out, err := execRoot(t, "stage", "--name", "train", "--header", "--storage", "local", "--path", store,
		"--compression", "zstd", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "staged train: 3 rows, 2 cols, 2 partitions, 0 nonzeros")

	out, err = execRoot(t, "inspect", "--path", store, "train")
	require.NoError(t, err)
	assert.Contains(t, out, "layout:      dense, 2 cols")
	assert.Contains(t, out, "rows:        3 in 2 partitions")
	assert.Contains(t, out, "features")
	assert.Contains(t, out, "zstd")

	out, err = execRoot(t, "inspect", "--path", store, "--verify", "train")
	require.NoError(t, err)
	assert.Contains(t, out, "verified 2 columns")

	require.NoError(t, os.Remove(filepath.Join(store, "train", "features.col")))
	_, err = execRoot(t, "inspect", "--path", store, "--verify", "train")
	require.ErrorIs(t, err, colstage.ErrIncomplete)
}

func TestStage_LibSVMFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	cfg := writeFile(t, dir, "colstage.yaml", `
stage:
  layout: sparse
  num_cols: 3
  mode: sequential
  rebase_indptr: true
input:
  format: libsvm
storage:
  local_path: `+store+`
`)
	a := writeFile(t, dir, "a.svm", "1 1:0.5 3:1.0\n0 2:2\n")
	b := writeFile(t, dir, "b.svm", "# comment\n1:2 qid:7 3:9\n")

	out, err := execRoot(t, "stage", "-c", cfg, "-n", "sparse", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows, 3 cols, 2 partitions, 4 nonzeros")

	out, err = execRoot(t, "inspect", "-c", cfg, "sparse")
	require.NoError(t, err)
	assert.Contains(t, out, "nonzeros:    4 (indptr rebased: true)")
}

func TestStage_Errors(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")

	_, err := execRoot(t, "stage", "--path", store, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err, "name is required")

	_, err = execRoot(t, "stage", "-n", "x", "--path", store, filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, dir, "bad.csv", "1,2\n1,2,3\n")
	_, err = execRoot(t, "stage", "-n", "x", "--path", store, bad)
	assert.Error(t, err)

	_, err = execRoot(t, "stage", "-n", "x", "--mode", "concurrent", "--rebase-indptr", "--path", store, bad)
	assert.ErrorContains(t, err, "sequential")

	_, err = execRoot(t, "inspect", "--path", store, "absent")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "colstage dev")
}

func TestOpenStore(t *testing.T) {
	ctx := t.Context()

	s, err := openStore(ctx, config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.MemoryStore{}, s)

	s, err = openStore(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, s)

	_, err = openStore(ctx, config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "text"}, &buf)
	assert.Error(t, err)
}
