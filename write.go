package binaryarchive

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fieldforge/binaryarchive/internal/datafile"
	"github.com/fieldforge/binaryarchive/internal/digest"
	"github.com/fieldforge/binaryarchive/internal/fieldtable"
	"github.com/fieldforge/binaryarchive/internal/utils"
	"github.com/fieldforge/binaryarchive/storageview"
)

// Write stores view's bytes as the snapshot named by id. Valid only in
// Write or Append mode.
//
// id.ID must be either the next unused index for id.Name (appending a new
// snapshot, possibly creating the field) or an index already present
// (overwriting that snapshot in place, which requires the new byte length
// to match the original exactly — SizeMismatch otherwise). Any other id.ID
// is InvalidId.
func (a *Archive) Write(view storageview.StorageView, id FieldID) error {
	if err := a.checkMode(Write, Append); err != nil {
		return err
	}

	n := view.SizeInBytes()
	buf, err := utils.AllocateBuffer(n)
	if err != nil {
		return newError(KindOutOfMemory, id.Name, err)
	}
	defer utils.ReleaseBuffer(buf)

	if err := storageview.FillBuffer(view, buf); err != nil {
		return newError(KindIOError, id.Name, err)
	}
	checksum := digest.Sum(buf)

	entries, exists := a.table.Lookup(id.Name)
	switch {
	case !exists:
		if id.ID != 0 {
			return newError(KindInvalidID, fmt.Sprintf("%s[%d]: field has no snapshots yet", id.Name, id.ID), nil)
		}
		offset, err := datafile.WriteNew(a.dir, id.Name, buf)
		if err != nil {
			return newError(KindIOError, id.Name, err)
		}
		a.table.Append(id.Name, fieldtable.FileOffset{Offset: offset, Checksum: checksum})

	case id.ID == len(entries):
		offset, err := datafile.Append(a.dir, id.Name, buf)
		if err != nil {
			return newError(KindIOError, id.Name, err)
		}
		a.table.Append(id.Name, fieldtable.FileOffset{Offset: offset, Checksum: checksum})

	case id.ID >= 0 && id.ID < len(entries):
		existing := entries[id.ID]
		origSize, err := a.byteRunSize(id.Name, id.ID)
		if err != nil {
			return newError(KindIOError, id.Name, err)
		}
		if origSize != n {
			return newError(KindSizeMismatch,
				fmt.Sprintf("%s[%d]: existing run is %d bytes, new write is %d bytes", id.Name, id.ID, origSize, n), nil)
		}
		if err := datafile.OverwriteAt(a.dir, id.Name, existing.Offset, buf); err != nil {
			return newError(KindIOError, id.Name, err)
		}
		if err := a.table.Replace(id.Name, id.ID, fieldtable.FileOffset{Offset: existing.Offset, Checksum: checksum}); err != nil {
			return newError(KindInvalidID, fmt.Sprintf("%s[%d]", id.Name, id.ID), err)
		}

	default:
		return newError(KindInvalidID, fmt.Sprintf("%s[%d]: out of range (have %d snapshots)", id.Name, id.ID, len(entries)), nil)
	}

	a.manifestDirty = true
	if err := a.flushManifest(); err != nil {
		return err
	}

	a.entry().WithFields(logrus.Fields{
		"field":    id.Name,
		"id":       id.ID,
		"bytes":    n,
		"checksum": checksum,
	}).Info("field written")
	return nil
}

// byteRunSize returns the length, in bytes, of the existing on-disk byte-run
// for an already-written snapshot, derived from the next snapshot's offset
// when one exists, or from the data file's current size otherwise.
func (a *Archive) byteRunSize(name string, id int) (int, error) {
	entries, _ := a.table.Lookup(name)
	if id+1 < len(entries) {
		return int(entries[id+1].Offset - entries[id].Offset), nil
	}
	size, err := datafile.Size(a.dir, name)
	if err != nil {
		return 0, err
	}
	return int(size) - int(entries[id].Offset), nil
}
