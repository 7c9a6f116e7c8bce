// Package storageview defines the StorageView contract the archive engine
// consumes and the bridge that copies bytes between a caller's strided
// field and the archive's contiguous on-disk buffer.
//
// StorageView itself is an external collaborator: this package only states
// its contract and adapts it, the same way callers adapt io.ReaderAt
// without owning it. The concrete implementations in views.go are
// reference adapters for callers who don't already have their own strided
// array type — not a redefinition of the contract.
package storageview

import "fmt"

// ElementHandle points at one element's address within a StorageView. Get
// must return exactly BytesPerElement() bytes; Set must copy exactly that
// many bytes into the element's backing storage.
type ElementHandle interface {
	Get() []byte
	Set(data []byte)
}

// ElementIterator walks a StorageView's elements in canonical layout order,
// following the Go scanner pattern (bufio.Scanner): call Next until it
// returns false, then check Err.
type ElementIterator interface {
	Next() bool
	Element() ElementHandle
	Err() error
}

// StorageView exposes a field's strided in-memory layout for byte-level
// iteration. Implementations make no promise about their internal strides;
// the archive only relies on iteration order being stable between a write
// and a later read of the same logical field shape.
type StorageView interface {
	// SizeInBytes is the total size, in bytes, of this field.
	SizeInBytes() int
	// BytesPerElement is constant across the view.
	BytesPerElement() int
	// Elements returns a fresh iterator over this view's elements, in
	// canonical layout order. Total elements * BytesPerElement must equal
	// SizeInBytes.
	Elements() ElementIterator
}

// FillBuffer drains view's element iterator into the caller-supplied buf,
// which must already be sized to view.SizeInBytes(). Buffer allocation is
// left to the caller so an allocation failure can be reported as its own
// distinct error before any bytes are copied.
func FillBuffer(view StorageView, buf []byte) error {
	n := view.SizeInBytes()
	elemSize := view.BytesPerElement()
	if len(buf) != n {
		return fmt.Errorf("storageview: buffer has %d bytes, view expects %d", len(buf), n)
	}

	cursor := 0
	it := view.Elements()
	for it.Next() {
		chunk := it.Element().Get()
		if len(chunk) != elemSize {
			return fmt.Errorf("storageview: element returned %d bytes, want %d", len(chunk), elemSize)
		}
		if cursor+elemSize > n {
			return fmt.Errorf("storageview: iterator produced more than %d bytes", n)
		}
		copy(buf[cursor:cursor+elemSize], chunk)
		cursor += elemSize
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("storageview: iteration failed: %w", err)
	}
	if cursor != n {
		return fmt.Errorf("storageview: iterator produced %d bytes, want %d", cursor, n)
	}
	return nil
}

// CopyToBuffer drains view's element iterator into a freshly laid out
// contiguous buffer of length view.SizeInBytes(), advancing the write
// cursor by BytesPerElement() per element.
func CopyToBuffer(view StorageView) ([]byte, error) {
	buf := make([]byte, view.SizeInBytes())
	if err := FillBuffer(view, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// CopyFromBuffer distributes a contiguous buffer's bytes back into view's
// elements, in the same canonical order CopyToBuffer reads them.
func CopyFromBuffer(view StorageView, buf []byte) error {
	elemSize := view.BytesPerElement()
	n := view.SizeInBytes()
	if len(buf) != n {
		return fmt.Errorf("storageview: buffer has %d bytes, view expects %d", len(buf), n)
	}

	cursor := 0
	it := view.Elements()
	for it.Next() {
		if cursor+elemSize > n {
			return fmt.Errorf("storageview: iterator produced more than %d bytes", n)
		}
		it.Element().Set(buf[cursor : cursor+elemSize])
		cursor += elemSize
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("storageview: iteration failed: %w", err)
	}
	if cursor != n {
		return fmt.Errorf("storageview: iterator consumed %d bytes, want %d", cursor, n)
	}
	return nil
}
