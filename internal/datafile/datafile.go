// Package datafile performs the scoped, single-operation-at-a-time reads
// and writes against a field's "<name>.dat" file. Every function here opens
// exactly one file handle and closes it before returning, on every exit
// path, mirroring the scoped-acquisition discipline the archive's
// single-writer/single-reader model requires.
package datafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Path returns the on-disk path for a field's data file within dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".dat")
}

// WriteNew creates (truncating if somehow present) name's data file and
// writes buf starting at offset 0. Returns the offset the entry was written
// at, which is always 0.
func WriteNew(dir, name string, buf []byte) (uint64, error) {
	f, err := os.OpenFile(Path(dir, name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s.dat: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Write(buf); err != nil {
		return 0, fmt.Errorf("write %s.dat: %w", name, err)
	}
	return 0, nil
}

// Append opens name's data file for append, writes buf at the current
// end-of-file, and returns that offset.
func Append(dir, name string, buf []byte) (uint64, error) {
	f, err := os.OpenFile(Path(dir, name), os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s.dat for append: %w", name, err)
	}
	defer f.Close()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek end of %s.dat: %w", name, err)
	}

	if _, err := f.Write(buf); err != nil {
		return 0, fmt.Errorf("append %s.dat: %w", name, err)
	}
	return uint64(offset), nil
}

// OverwriteAt rewrites the byte-run at offset with buf, without truncating
// the rest of the file. The caller is responsible for ensuring len(buf)
// equals the length of the existing byte-run; that check happens one layer
// up, before this is ever called.
func OverwriteAt(dir, name string, offset uint64, buf []byte) error {
	f, err := os.OpenFile(Path(dir, name), os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open %s.dat for overwrite: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek %s.dat to %d: %w", name, offset, err)
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("overwrite %s.dat at %d: %w", name, offset, err)
	}
	return nil
}

// ReadAt reads exactly n bytes from name's data file starting at offset. A
// short read (including hitting EOF before n bytes are read) is an error.
func ReadAt(dir, name string, offset uint64, n int) ([]byte, error) {
	f, err := os.Open(Path(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s.dat for read: %w", name, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s.dat to %d: %w", name, offset, err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("short read from %s.dat at %d (wanted %d bytes): %w", name, offset, n, err)
		}
		return nil, fmt.Errorf("read %s.dat at %d: %w", name, offset, err)
	}
	return buf, nil
}

// ReadInto reads exactly len(buf) bytes from name's data file starting at
// offset into buf, for callers that already hold a buffer sized via
// utils.AllocateBuffer and want to avoid a second allocation.
func ReadInto(dir, name string, offset uint64, buf []byte) error {
	f, err := os.Open(Path(dir, name))
	if err != nil {
		return fmt.Errorf("open %s.dat for read: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek %s.dat to %d: %w", name, offset, err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("short read from %s.dat at %d (wanted %d bytes): %w", name, offset, len(buf), err)
		}
		return fmt.Errorf("read %s.dat at %d: %w", name, offset, err)
	}
	return nil
}

// Size returns the current length, in bytes, of name's whole data file. The
// archive subtracts the last snapshot's offset from it to learn that
// snapshot's byte-run length, which an overwrite's SizeMismatch check
// compares against the caller's new buffer length before any bytes are
// touched.
func Size(dir, name string) (int64, error) {
	info, err := os.Stat(Path(dir, name))
	if err != nil {
		return 0, fmt.Errorf("stat %s.dat: %w", name, err)
	}
	return info.Size(), nil
}
