// Package metatable implements the per-file metadata region from spec.md
// §3/§4.3: one fixed-width Record per file slot, holding the file's size,
// block count, and its direct + indirect block pointers. Fields are packed
// as ASCII decimal digits rather than binary integers, the same
// wire-compatibility trade spec.md §9 calls out explicitly as deliberate.
// The fixed-width field packing is grounded on
// file_systems/unixv1/format.go's use of github.com/noxer/bytewriter for
// bounded sequential writes into a fixed-size window.
package metatable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noxer/bytewriter"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
)

// sizeFieldWidth and blockCountFieldWidth are the ASCII-decimal field widths
// for Record.Size and Record.BlockCount. Chosen so the largest legal value
// (MaxFileSize, MaxDataBlocksPerFile) always fits with room to spare.
const (
	sizeFieldWidth       = 7
	blockCountFieldWidth = 5
)

// Record is one file's metadata: its current size, how many data blocks it
// occupies, its direct block pointers, and the pointer to its single
// indirect block (0 means "not yet allocated").
type Record struct {
	Size       uint32
	BlockCount uint32
	Direct     [layout.DirectPointers]uint32
	Indirect   uint32
}

// pointerFieldWidth is layout.AddressWidth, the width of every block pointer
// field, direct or indirect.
const pointerFieldWidth = layout.AddressWidth

// recordLen is the on-disk byte length of one Record. It must equal
// layout.RecordSize; the package's init panics if it doesn't, since
// that would mean the geometry and the wire format have drifted apart.
const recordLen = sizeFieldWidth + blockCountFieldWidth +
	layout.DirectPointers*pointerFieldWidth + layout.IndirectPointers*pointerFieldWidth

func init() {
	if recordLen != layout.RecordSize {
		panic("metatable: recordLen does not match layout.RecordSize")
	}
}

// encodeDecimalField formats value as a zero-padded ASCII decimal field of
// exactly width bytes, writing it through w. It fails if value doesn't fit
// in width digits.
func encodeDecimalField(w io.Writer, value uint64, width int) error {
	text := fmt.Sprintf("%0*d", width, value)
	if len(text) != width {
		return blockfserrors.ErrExceedsMaxFileSize.WithMessage(
			fmt.Sprintf("value %d does not fit in a %d-digit field", value, width))
	}
	_, err := w.Write([]byte(text))
	if err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// decodeDecimalField parses a fixed-width ASCII decimal field, tolerating
// leading/trailing whitespace left over from a zero-filled region.
func decodeDecimalField(field []byte) (uint64, error) {
	text := strings.TrimSpace(strings.Trim(string(field), "\x00"))
	if text == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, blockfserrors.ErrIOFailed.Wrap(err)
	}
	return value, nil
}

// encodeRecord packs r into exactly recordLen bytes.
func encodeRecord(r Record) ([]byte, error) {
	buf := make([]byte, recordLen)
	w := bytewriter.New(buf)

	if err := encodeDecimalField(w, uint64(r.Size), sizeFieldWidth); err != nil {
		return nil, err
	}
	if err := encodeDecimalField(w, uint64(r.BlockCount), blockCountFieldWidth); err != nil {
		return nil, err
	}
	for _, ptr := range r.Direct {
		if err := encodeDecimalField(w, uint64(ptr), pointerFieldWidth); err != nil {
			return nil, err
		}
	}
	if err := encodeDecimalField(w, uint64(r.Indirect), pointerFieldWidth); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeRecord is the inverse of encodeRecord.
func decodeRecord(buf []byte) (Record, error) {
	if len(buf) != recordLen {
		return Record{}, blockfserrors.ErrIOFailed.WithMessage("short record buffer")
	}

	var r Record
	offset := 0

	size, err := decodeDecimalField(buf[offset : offset+sizeFieldWidth])
	if err != nil {
		return Record{}, err
	}
	r.Size = uint32(size)
	offset += sizeFieldWidth

	blocks, err := decodeDecimalField(buf[offset : offset+blockCountFieldWidth])
	if err != nil {
		return Record{}, err
	}
	r.BlockCount = uint32(blocks)
	offset += blockCountFieldWidth

	for i := range r.Direct {
		ptr, err := decodeDecimalField(buf[offset : offset+pointerFieldWidth])
		if err != nil {
			return Record{}, err
		}
		r.Direct[i] = uint32(ptr)
		offset += pointerFieldWidth
	}

	indirect, err := decodeDecimalField(buf[offset : offset+pointerFieldWidth])
	if err != nil {
		return Record{}, err
	}
	r.Indirect = uint32(indirect)

	return r, nil
}
