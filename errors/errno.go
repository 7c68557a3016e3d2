// This file enumerates the taxonomy from spec.md §7, one Code per outcome a
// public blockfs call can report. NONE has no sentinel of its own: success is
// represented by a nil error.
package errors

// ErrOutOfSpace: a write or seek could not obtain enough free data blocks.
const ErrOutOfSpace = Code("no space left on block device")

// ErrFileNotOpen: the operation required an open handle.
const ErrFileNotOpen = Code("file is not open")

// ErrFileOpen: open/delete denied because the file is already open.
const ErrFileOpen = Code("file is already open")

// ErrFileNotFound: open/delete of a missing name.
const ErrFileNotFound = Code("no such file")

// ErrFileReadOnly: write attempted on a handle opened READ_ONLY.
const ErrFileReadOnly = Code("file is open read-only")

// ErrFileAlreadyExists: create of a name already present.
const ErrFileAlreadyExists = Code("file already exists")

// ErrExceedsMaxFileSize: seek/write beyond MaxFileSize.
const ErrExceedsMaxFileSize = Code("operation exceeds maximum file size")

// ErrIllegalFilename: empty name or longer than MaxFilenameLength.
const ErrIllegalFilename = Code("illegal filename")

// ErrIOFailed: underlying device failure, or an operation on a nil handle.
const ErrIOFailed = Code("block device I/O failed")
