package binaryarchive

import (
	"fmt"

	"github.com/fieldforge/binaryarchive/internal/datafile"
	"github.com/fieldforge/binaryarchive/internal/digest"
)

// FieldNames returns every field name currently recorded in the manifest,
// in lexicographic order.
func (a *Archive) FieldNames() []string {
	return a.table.Names()
}

// SnapshotCount returns how many snapshots are recorded for name, or 0 if
// name is not a known field.
func (a *Archive) SnapshotCount(name string) int {
	entries, _ := a.table.Lookup(name)
	return len(entries)
}

// VerifyChecksum re-reads the on-disk bytes for name's id-th snapshot and
// reports ChecksumMismatch if they no longer match the manifest's recorded
// digest. Valid in any mode; it never mutates archive state.
func (a *Archive) VerifyChecksum(name string, id int) error {
	entries, ok := a.table.Lookup(name)
	if !ok {
		return newError(KindUnknownField, name, nil)
	}
	if id < 0 || id >= len(entries) {
		return newError(KindInvalidID, fmt.Sprintf("%s[%d]: out of range (have %d snapshots)", name, id, len(entries)), nil)
	}
	entry := entries[id]

	size, err := a.byteRunSize(name, id)
	if err != nil {
		return newError(KindIOError, name, err)
	}

	buf := make([]byte, size)
	if err := datafile.ReadInto(a.dir, name, entry.Offset, buf); err != nil {
		return newError(KindIOError, name, err)
	}
	if got := digest.Sum(buf); got != entry.Checksum {
		return newError(KindChecksumMismatch,
			fmt.Sprintf("%s[%d]: on-disk bytes hash to %s, manifest recorded %s", name, id, got, entry.Checksum), nil)
	}
	return nil
}
