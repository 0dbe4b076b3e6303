package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_WriteStatOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "entries/a/original.jpg", bytes.NewReader([]byte("jpeg-bytes"))))

	size, err := store.Stat(ctx, "entries/a/original.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(len("jpeg-bytes")), size)

	data, err := ReadAll(ctx, store, "entries/a/original.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "entries/a/original.jpg"))
	_, err = store.Stat(ctx, "entries/a/original.jpg")
	assert.True(t, errors.Is(err, ErrBlobNotFound))

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "entries/a/original.jpg"))
}

func TestLocalStore_WriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), "x.jpg", bytes.NewReader([]byte("1"))))
	require.NoError(t, store.Write(context.Background(), "x.jpg", bytes.NewReader([]byte("22"))))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.jpg", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(root, "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "22", string(data))
}

func TestCleanPath_RejectsEscapes(t *testing.T) {
	p, err := CleanPath("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", p)

	_, err = CleanPath("   ")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = CleanPath("/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestIsAllowedImage(t *testing.T) {
	assert.True(t, IsAllowedImage("photo.JPG"))
	assert.True(t, IsAllowedImage("photo.webp"))
	assert.False(t, IsAllowedImage("notes.txt"))
	assert.False(t, IsAllowedImage("photo.heic"), "no decoder for previews")
}
