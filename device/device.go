// Package device implements the BlockDevice collaborator described in
// spec.md §4.1/§6: a fixed-capacity array of fixed-size blocks with
// synchronous whole-block reads and writes. The filesystem itself never
// assumes anything about how a BlockDevice stores its bytes; it only relies
// on this interface.
package device

import (
	"fmt"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
)

// BlockSize is the fixed size of a single block, in bytes (spec.md §3, B).
const BlockSize = 512

// TotalBlocks is the fixed capacity of the backing container, in blocks
// (spec.md §3, N).
const TotalBlocks = 5000

// BlockDevice is the external collaborator from spec.md §4.1. Indices are in
// [0, TotalBlocks). Implementations must make Read/Write synchronous and
// atomic at block granularity.
type BlockDevice interface {
	// Init zero-fills all TotalBlocks blocks, destroying any existing data.
	Init() error

	// Size returns the total number of blocks on the device.
	Size() uint

	// ReadBlock fills buf (which must be exactly BlockSize bytes) with the
	// contents of the block at index.
	ReadBlock(index uint, buf []byte) error

	// WriteBlock writes buf (which must be exactly BlockSize bytes) to the
	// block at index.
	WriteBlock(index uint, buf []byte) error
}

// checkBounds is shared by every BlockDevice implementation in this package.
func checkBounds(index uint, bufLen int) error {
	if index >= TotalBlocks {
		return blockfserrors.ErrIOFailed.WithMessage(
			fmt.Sprintf("block index %d not in [0, %d)", index, TotalBlocks))
	}
	if bufLen != BlockSize {
		return blockfserrors.ErrIOFailed.WithMessage(
			fmt.Sprintf("buffer must be exactly %d bytes, got %d", BlockSize, bufLen))
	}
	return nil
}
