// Package layout is the single source of truth for the fixed on-disk region
// boundaries described in spec.md §3. Every other package derives its block
// arithmetic from these constants instead of recomputing them, so the
// wire-compatible geometry only needs to be right in one place.
package layout

import "github.com/trungnguyen10/blockfs/device"

const (
	// BlockSize is B in spec.md §3.
	BlockSize = device.BlockSize
	// TotalBlocks is N in spec.md §3.
	TotalBlocks = device.TotalBlocks
	// MaxFiles is F in spec.md §3: the fixed capacity of the directory and
	// metadata regions.
	MaxFiles = 800
	// DirentSize is E in spec.md §3.
	DirentSize = 64
	// RecordSize is M in spec.md §3.
	RecordSize = 64
	// AddressWidth is A in spec.md §3: width of one ASCII-decimal block
	// pointer field.
	AddressWidth = 4
	// DirectPointers is D in spec.md §3.
	DirectPointers = 12
	// IndirectPointers is I in spec.md §3.
	IndirectPointers = 1
	// PointersPerIndirectBlock is B/A in spec.md §3: how many block pointers
	// fit in one indirect block.
	PointersPerIndirectBlock = BlockSize / AddressWidth

	// MaxFileSize is (D + B/A) * B in spec.md §3.
	MaxFileSize = (DirectPointers + PointersPerIndirectBlock) * BlockSize
	// MaxDataBlocksPerFile is D + B/A in spec.md §3.
	MaxDataBlocksPerFile = DirectPointers + PointersPerIndirectBlock

	// MaxFilenameLength is E - A - 1 in spec.md §3: the longest filename that
	// still leaves room for the terminating NUL and the file-id field.
	MaxFilenameLength = DirentSize - AddressWidth - 1

	// entriesPerBlock / recordsPerBlock are how many fixed-size records fit
	// in one BlockSize block.
	entriesPerBlock = BlockSize / DirentSize
	recordsPerBlock = BlockSize / RecordSize

	// DirectoryStartBlock is the first block of the directory region.
	DirectoryStartBlock = 0
	// DirectoryBlockCount is F*E/B in spec.md §3.
	DirectoryBlockCount = (MaxFiles * DirentSize) / BlockSize

	// MetadataStartBlock is the first block of the metadata region.
	MetadataStartBlock = DirectoryStartBlock + DirectoryBlockCount
	// MetadataBlockCount is F*M/B in spec.md §3.
	MetadataBlockCount = (MaxFiles * RecordSize) / BlockSize

	// BitmapStartBlock is the first block of the free-space bitmap region.
	BitmapStartBlock = MetadataStartBlock + MetadataBlockCount

	// BitmapBlockCount is the number of blocks the bitmap needs to carry one
	// bit per data block. spec.md §3 computes this as
	// ceil((N-200-1)/8/B) and asserts it comes to 1 block for N=5000, but
	// that arithmetic is inconsistent with its own byte count (it derives
	// 600 bytes of bits, which doesn't fit in a single 512-byte block). We
	// resolve this the way spec.md §9 instructs for disputed bitmap sizing
	// ("implementers must commit and assert"): solving self-consistently for
	// the smallest S with S == ceil(ceil((N-200-S)/8)/B) gives S=2 for
	// N=5000, TotalBlocks=5000 (see DESIGN.md). That is the value used here;
	// it is hardcoded, and init below recomputes the block count from
	// TotalDataBlocks and panics if the two ever disagree.
	BitmapBlockCount = 2

	// DataStartBlock is the first block of the data region, right after the
	// BitmapBlockCount bitmap blocks: bit k ↔ data block
	// BitmapStartBlock + BitmapBlockCount + k.
	DataStartBlock = BitmapStartBlock + BitmapBlockCount
	// TotalDataBlocks is the number of blocks available for file/indirect
	// data, N - DataStartBlock.
	TotalDataBlocks = TotalBlocks - DataStartBlock
)

func init() {
	// Assert the self-consistency claimed above instead of silently trusting
	// a hardcoded constant: if the geometry constants ever change, this will
	// fail loudly instead of quietly corrupting the bitmap layout.
	bits := TotalDataBlocks
	bytes := (bits + 7) / 8
	blocks := (bytes + BlockSize - 1) / BlockSize
	if blocks != BitmapBlockCount {
		panic("layout: BitmapBlockCount is no longer self-consistent with TotalBlocks/MaxFiles")
	}
}
