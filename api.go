// Package blockfs implements the block-based filesystem described by the
// on-disk layout in package layout: a flat namespace of up to
// layout.MaxFiles files stored inside a single fixed-capacity
// device.BlockDevice. This file holds the small public types every caller
// needs; the orchestration lives in fs.go and the read/write/seek
// algorithms in fileio.go.
package blockfs

import (
	"sync"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
)

// Re-exported sentinel errors, so callers can write blockfs.ErrFileNotFound
// instead of reaching into the errors subpackage directly.
var (
	ErrOutOfSpace         = blockfserrors.ErrOutOfSpace
	ErrFileNotOpen        = blockfserrors.ErrFileNotOpen
	ErrFileOpen           = blockfserrors.ErrFileOpen
	ErrFileNotFound       = blockfserrors.ErrFileNotFound
	ErrFileReadOnly       = blockfserrors.ErrFileReadOnly
	ErrFileAlreadyExists  = blockfserrors.ErrFileAlreadyExists
	ErrExceedsMaxFileSize = blockfserrors.ErrExceedsMaxFileSize
	ErrIllegalFilename    = blockfserrors.ErrIllegalFilename
	ErrIOFailed           = blockfserrors.ErrIOFailed
)

// FileMode selects a file's access mode for the lifetime of a Handle.
type FileMode int

const (
	ReadOnly FileMode = iota
	ReadWrite
)

// Geometry reports the fixed parameters of the filesystem. It exists for
// diagnostics (the supplemented equivalent of the original's print_specs)
// and is otherwise unused by the read/write path, which consults the
// layout package constants directly.
type Geometry struct {
	BlockSize            int
	TotalBlocks          int
	MaxFiles             int
	MaxFilenameLength    int
	MaxFileSize          int
	MaxDataBlocksPerFile int
	DirectPointers       int
}

// stat returns the fixed geometry of this implementation.
func stat() Geometry {
	return Geometry{
		BlockSize:            layout.BlockSize,
		TotalBlocks:          layout.TotalBlocks,
		MaxFiles:             layout.MaxFiles,
		MaxFilenameLength:    layout.MaxFilenameLength,
		MaxFileSize:          layout.MaxFileSize,
		MaxDataBlocksPerFile: layout.MaxDataBlocksPerFile,
		DirectPointers:       layout.DirectPointers,
	}
}

// Handle is an opaque, in-memory file handle: a file-id bound to a current
// byte position and access mode for the duration of an open session
// (spec.md §3, "File handle"). Handles are not safe to share across
// goroutines; the filesystem's concurrency model is single-threaded,
// synchronous access (spec.md §5).
type Handle struct {
	fs       *FS
	id       int
	position uint64
	mode     FileMode
}

// lastErrMu and lastErr implement the legacy best-effort LastError
// accessor spec.md §9 recommends alongside returning typed errors from
// every call: a process-wide error status for callers migrating from the
// original global-status-variable convention.
var (
	lastErrMu sync.Mutex
	lastErr   error
)

func setLastError(err error) {
	lastErrMu.Lock()
	lastErr = err
	lastErrMu.Unlock()
}

// LastError returns the error set by the most recently completed public
// call on any FS, or nil if it succeeded. New code should prefer the error
// value returned directly from each call; this exists only for parity with
// the original's process-wide status variable.
func LastError() error {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErr
}
