// Package bitmap implements the free-space map described in spec.md §4.2: a
// first-fit allocator over the data region, backed by an in-memory bit array
// that mirrors a fixed region of the backing device. The in-memory tracking
// structure is github.com/boljen/go-bitmap's Bitmap, grounded on
// drivers/common/allocatormap.go's Allocator from the teacher repo. Its
// on-disk packing is done by hand (see packMSBFirst/unpackMSBFirst below)
// because the wire format in spec.md §3 pins bit 0 of byte 0 to the
// high-order bit, a convention the library itself does not promise.
package bitmap

import (
	"fmt"

	bmlib "github.com/boljen/go-bitmap"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/device"
	"github.com/trungnguyen10/blockfs/layout"
)

// Bitmap tracks which data blocks are free. Bit k corresponds to data block
// layout.DataStartBlock+k; a set bit means "free", matching spec.md §3's
// "1 = free, 0 = used" convention.
type Bitmap struct {
	free bmlib.Bitmap
}

// New creates a Bitmap with every data block marked free, used when no files
// exist yet on a freshly initialized container (spec.md §4.2, "init").
func New() *Bitmap {
	b := &Bitmap{free: bmlib.New(layout.TotalDataBlocks)}
	for k := 0; k < layout.TotalDataBlocks; k++ {
		b.free.Set(k, true)
	}
	return b
}

// Load reads the bitmap region from dev and reconstructs the in-memory map.
func Load(dev device.BlockDevice) (*Bitmap, error) {
	raw := make([]byte, layout.BitmapBlockCount*layout.BlockSize)
	for i := 0; i < layout.BitmapBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.ReadBlock(uint(layout.BitmapStartBlock+i), buf); err != nil {
			return nil, blockfserrors.ErrIOFailed.Wrap(err)
		}
	}

	b := &Bitmap{free: bmlib.New(layout.TotalDataBlocks)}
	unpackMSBFirst(raw, b.free, layout.TotalDataBlocks)
	return b, nil
}

// Flush writes the in-memory bitmap back to its region on dev.
func (b *Bitmap) Flush(dev device.BlockDevice) error {
	raw := make([]byte, layout.BitmapBlockCount*layout.BlockSize)
	packMSBFirst(b.free, layout.TotalDataBlocks, raw)

	for i := 0; i < layout.BitmapBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.WriteBlock(uint(layout.BitmapStartBlock+i), buf); err != nil {
			return blockfserrors.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

// Alloc finds the first free data block in bit order, marks it used, and
// returns its physical block index. It fails with ErrOutOfSpace if every bit
// is clear, mirroring spec.md §4.2's "first-fit by bit order" allocation
// discipline.
func (b *Bitmap) Alloc() (uint, error) {
	for k := 0; k < layout.TotalDataBlocks; k++ {
		if b.free.Get(k) {
			b.free.Set(k, false)
			blockIndex := layout.DataStartBlock + k
			if blockIndex > layout.TotalBlocks-1 {
				return 0, blockfserrors.ErrOutOfSpace
			}
			return uint(blockIndex), nil
		}
	}
	return 0, blockfserrors.ErrOutOfSpace
}

// Release marks the data block at blockIndex free again. Out-of-range
// indices are ignored, per spec.md §4.2.
func (b *Bitmap) Release(blockIndex uint) {
	k := int(blockIndex) - layout.DataStartBlock
	if k < 0 || k >= layout.TotalDataBlocks {
		return
	}
	b.free.Set(k, true)
}

// IsFree reports whether the data block at blockIndex is currently free.
// Used by tests asserting spec.md §8's bitmap invariants.
func (b *Bitmap) IsFree(blockIndex uint) bool {
	k := int(blockIndex) - layout.DataStartBlock
	if k < 0 || k >= layout.TotalDataBlocks {
		return false
	}
	return b.free.Get(k)
}

func (b *Bitmap) String() string {
	free := 0
	for k := 0; k < layout.TotalDataBlocks; k++ {
		if b.free.Get(k) {
			free++
		}
	}
	return fmt.Sprintf("bitmap(%d/%d free)", free, layout.TotalDataBlocks)
}

// packMSBFirst writes numBits bits from src into dst, bit 0 of dst[0] holding
// the high-order bit, per spec.md §3.
func packMSBFirst(src bmlib.Bitmap, numBits int, dst []byte) {
	for k := 0; k < numBits; k++ {
		if src.Get(k) {
			dst[k/8] |= 1 << (7 - uint(k%8))
		}
	}
}

// unpackMSBFirst is the inverse of packMSBFirst.
func unpackMSBFirst(src []byte, dst bmlib.Bitmap, numBits int) {
	for k := 0; k < numBits; k++ {
		bit := (src[k/8] >> (7 - uint(k%8))) & 1
		dst.Set(k, bit == 1)
	}
}
