package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_CreateOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "bay.cal")

	var fsys OSFileSystem
	w, err := fsys.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "start 0.12\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, fsys.Exists(path))

	r, err := fsys.Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "start 0.12\n", string(data))
}

func TestOSFileSystem_OpenMissing(t *testing.T) {
	_, err := OSFileSystem{}.Open(filepath.Join(t.TempDir(), "missing.cal"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_WriteVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("a/b.cal")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	data, err := m.ReadFile("a/b.cal")
	require.NoError(t, err)
	assert.Empty(t, data, "contents should not be visible before Close")

	require.NoError(t, w.Close())
	data, err = m.ReadFile("a/./b.cal")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, []string{"a/b.cal"}, m.Files())
}

func TestMemoryFileSystem_OpenReadsAll(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("x.cal", []byte("0123456789"))

	r, err := m.Open("x.cal")
	require.NoError(t, err)
	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.NoError(t, r.Close())
	assert.Equal(t, "0123456789", string(got))
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()
	_, err := m.Open("nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = m.ReadFile("nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, m.Exists("nope"))
}

func TestMemoryFileSystem_InjectedErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemoryFileSystem()
	m.WriteFile("x", []byte("data"))

	m.OpenErr = boom
	_, err := m.Open("x")
	assert.ErrorIs(t, err, boom)

	m.CreateErr = boom
	_, err = m.Create("y")
	assert.ErrorIs(t, err, boom)

	m.CreateErr = nil
	m.WriteErr = boom
	w, err := m.Create("z")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	assert.ErrorIs(t, err, boom)
}
