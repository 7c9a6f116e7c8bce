package binaryarchive

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fieldforge/binaryarchive/internal/datafile"
	"github.com/fieldforge/binaryarchive/internal/digest"
	"github.com/fieldforge/binaryarchive/internal/utils"
	"github.com/fieldforge/binaryarchive/storageview"
)

// Read loads the snapshot named by id into view's elements, verifying its
// SHA-256 digest against the manifest before distributing any bytes. Valid
// only in Read mode.
func (a *Archive) Read(view storageview.StorageView, id FieldID) error {
	if err := a.checkMode(Read); err != nil {
		return err
	}

	entries, ok := a.table.Lookup(id.Name)
	if !ok {
		return newError(KindUnknownField, id.Name, nil)
	}
	if id.ID < 0 || id.ID >= len(entries) {
		return newError(KindInvalidID, fmt.Sprintf("%s[%d]: out of range (have %d snapshots)", id.Name, id.ID, len(entries)), nil)
	}
	entry := entries[id.ID]

	n := view.SizeInBytes()
	buf, err := utils.AllocateBuffer(n)
	if err != nil {
		return newError(KindOutOfMemory, id.Name, err)
	}
	defer utils.ReleaseBuffer(buf)

	if err := datafile.ReadInto(a.dir, id.Name, entry.Offset, buf); err != nil {
		return newError(KindIOError, id.Name, err)
	}

	if got := digest.Sum(buf); got != entry.Checksum {
		return newError(KindChecksumMismatch,
			fmt.Sprintf("%s[%d]: on-disk bytes hash to %s, manifest recorded %s", id.Name, id.ID, got, entry.Checksum), nil)
	}

	if err := storageview.CopyFromBuffer(view, buf); err != nil {
		return newError(KindIOError, id.Name, err)
	}

	a.entry().WithFields(logrus.Fields{
		"field": id.Name,
		"id":    id.ID,
		"bytes": n,
	}).Info("field read")
	return nil
}
