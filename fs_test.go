package blockfs_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	blockfs "github.com/trungnguyen10/blockfs"
	"github.com/trungnguyen10/blockfs/device"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
)

func freshFS(t *testing.T) *blockfs.FS {
	t.Helper()
	dev := device.NewMemoryDevice()
	require.NoError(t, blockfs.Format(dev))
	return blockfs.Mount(dev)
}

func TestCreateWriteCloseOpenReadRoundTrip(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("a")
	require.NoError(t, err)

	n, err := h.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.NoError(t, h.Seek(0))

	buf := make([]byte, 5)
	n, err = h.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	length, err := h.Length()
	require.NoError(t, err)
	require.EqualValues(t, 5, length)

	require.NoError(t, h.Close())

	h2, err := fs.OpenFile("a", blockfs.ReadOnly)
	require.NoError(t, err)
	defer h2.Close()

	buf2 := make([]byte, 5)
	n, err = h2.Read(buf2)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf2[:n]))
}

func TestSeekPastEOFAllocatesAndExtends(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("b")
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Seek(600))

	length, err := h.Length()
	require.NoError(t, err)
	require.EqualValues(t, 601, length)
	require.EqualValues(t, 2, fs.DebugRecord(0).BlockCount)
}

func TestSeekingPastEOFThenReadingTheGapYieldsZeroBytes(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("c")
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Seek(100))
	require.NoError(t, h.Seek(0))

	buf := make([]byte, 100)
	n, err := h.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.True(t, bytes.Equal(buf, make([]byte, 100)))
}

func TestWriteCrossingIndirectBoundaryAllocatesIndirectBlockOnce(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("d")
	require.NoError(t, err)
	defer h.Close()

	payload := bytes.Repeat([]byte{'X'}, layout.DirectPointers*layout.BlockSize)
	n, err := h.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.EqualValues(t, layout.DirectPointers, fs.DebugRecord(0).BlockCount)
	require.Zero(t, fs.DebugRecord(0).Indirect)

	n, err = h.Write([]byte{'Y'})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, layout.DirectPointers+1, fs.DebugRecord(0).BlockCount)
	require.NotZero(t, fs.DebugRecord(0).Indirect)
}

func TestWriteBeyondMaxFileSizeClamps(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("e")
	require.NoError(t, err)
	defer h.Close()

	payload := bytes.Repeat([]byte{'X'}, layout.MaxFileSize+320)
	n, err := h.Write(payload)
	require.ErrorIs(t, err, blockfserrors.ErrExceedsMaxFileSize)
	require.Equal(t, layout.MaxFileSize, n)

	n, err = h.Write([]byte{'Z'})
	require.ErrorIs(t, err, blockfserrors.ErrExceedsMaxFileSize)
	require.Equal(t, 0, n)
}

func TestReadOnlyHandleRejectsWrites(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("f")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h2, err := fs.OpenFile("f", blockfs.ReadOnly)
	require.NoError(t, err)
	defer h2.Close()

	n, err := h2.Write([]byte("nope"))
	require.ErrorIs(t, err, blockfserrors.ErrFileReadOnly)
	require.Equal(t, 0, n)
}

func TestDeletingOpenFileFails(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("g")
	require.NoError(t, err)
	defer h.Close()

	require.ErrorIs(t, fs.DeleteFile("g"), blockfserrors.ErrFileOpen)
}

func TestOpeningAlreadyOpenFileFails(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("h")
	require.NoError(t, err)
	defer h.Close()

	_, err = fs.OpenFile("h", blockfs.ReadWrite)
	require.ErrorIs(t, err, blockfserrors.ErrFileOpen)
}

func TestDeleteFreesSpaceAndRemovesEntry(t *testing.T) {
	fs := freshFS(t)

	h, err := fs.CreateFile("i")
	require.NoError(t, err)
	_, err = h.Write(bytes.Repeat([]byte{'Z'}, layout.BlockSize*3))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	require.NoError(t, fs.DeleteFile("i"))
	require.False(t, fs.FileExists("i"))

	h2, err := fs.CreateFile("j")
	require.NoError(t, err)
	defer h2.Close()

	n, err := h2.Write(bytes.Repeat([]byte{'Q'}, layout.BlockSize*3))
	require.NoError(t, err)
	require.Equal(t, layout.BlockSize*3, n)
}

func TestCreating801stFileFails(t *testing.T) {
	fs := freshFS(t)

	for i := 0; i < layout.MaxFiles; i++ {
		h, err := fs.CreateFile(fmt.Sprintf("file%d", i))
		require.NoError(t, err)
		require.NoError(t, h.Close())
	}

	_, err := fs.CreateFile("one-too-many")
	require.ErrorIs(t, err, blockfserrors.ErrOutOfSpace)
}
