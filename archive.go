// Package binaryarchive is a persistent, content-addressed store for the
// multi-dimensional numerical array fields a simulation writes across
// successive savepoints: one JSON manifest plus one ".dat" file per field
// holding its snapshots back to back, each snapshot checksummed with SHA-256.
package binaryarchive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/fieldforge/binaryarchive/internal/fieldtable"
	"github.com/fieldforge/binaryarchive/internal/manifest"
)

// Mode selects how Open treats the target directory and the operations
// valid afterward.
type Mode int

const (
	// Read opens an existing archive whose manifest must already exist.
	Read Mode = iota
	// Write creates a fresh archive, discarding anything already in the
	// directory's manifest (the directory itself must be absent or empty).
	Write
	// Append opens an archive for adding new snapshots to existing or new
	// fields, preserving whatever the directory's manifest already records.
	Append
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case Append:
		return "Append"
	default:
		return "Unknown"
	}
}

// FieldID names one field and the savepoint index within it: ID 0 is the
// first snapshot ever written for Name, ID 1 the second, and so on.
type FieldID struct {
	Name string
	ID   int
}

// Archive is a single open binary archive directory. It is not safe for
// concurrent use: the format assumes one writer or reader at a time per
// directory.
type Archive struct {
	mode   Mode
	dir    string
	table  *fieldtable.Table
	closed bool

	serialboxVersion int
	archiveVersion   int

	manifestDirty bool
	log           *logrus.Logger
}

// Open opens directory in the given Mode. See Mode's constants for the
// preconditions and manifest-loading behavior of each mode.
func Open(directory string, mode Mode, opts ...Option) (*Archive, error) {
	cfg := &openConfig{logger: discardLogger()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.verbose {
		cfg.logger.SetLevel(logrus.DebugLevel)
	}

	serialboxVersion := LibraryVersionTag()
	if cfg.serialboxVersion != nil {
		serialboxVersion = *cfg.serialboxVersion
	}
	archiveVersion := ArchiveFormatVersion
	if cfg.archiveVersion != nil {
		archiveVersion = *cfg.archiveVersion
	}

	table, err := prepareDirectory(directory, mode, serialboxVersion, archiveVersion)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		mode:             mode,
		dir:              directory,
		table:            table,
		serialboxVersion: serialboxVersion,
		archiveVersion:   archiveVersion,
		log:              cfg.logger,
	}
	a.entry().Info("archive opened")
	return a, nil
}

// prepareDirectory validates/creates directory per mode's contract and
// returns the FieldTable the archive should start from.
func prepareDirectory(directory string, mode Mode, serialboxVersion, archiveVersion int) (*fieldtable.Table, error) {
	switch mode {
	case Read:
		return loadRequiredManifest(directory, serialboxVersion, archiveVersion)

	case Write:
		info, statErr := os.Stat(directory)
		switch {
		case statErr == nil:
			if !info.IsDir() {
				return nil, newError(KindFilesystemError, directory, fmt.Errorf("not a directory"))
			}
			entries, err := os.ReadDir(directory)
			if err != nil {
				return nil, newError(KindFilesystemError, directory, err)
			}
			if len(entries) > 0 {
				return nil, newError(KindDirectoryNotEmpty, directory, nil)
			}
		case os.IsNotExist(statErr):
			if err := os.MkdirAll(directory, 0o755); err != nil {
				return nil, newError(KindFilesystemError, directory, err)
			}
		default:
			return nil, newError(KindFilesystemError, directory, statErr)
		}
		return fieldtable.New(), nil

	case Append:
		info, statErr := os.Stat(directory)
		switch {
		case statErr == nil:
			if !info.IsDir() {
				return nil, newError(KindFilesystemError, directory, fmt.Errorf("not a directory"))
			}
			return loadOptionalManifest(directory, serialboxVersion, archiveVersion)
		case os.IsNotExist(statErr):
			if err := os.MkdirAll(directory, 0o755); err != nil {
				return nil, newError(KindFilesystemError, directory, err)
			}
			return fieldtable.New(), nil
		default:
			return nil, newError(KindFilesystemError, directory, statErr)
		}

	default:
		return nil, newError(KindWrongMode, fmt.Sprintf("unknown mode %d", mode), nil)
	}
}

func loadRequiredManifest(directory string, serialboxVersion, archiveVersion int) (*fieldtable.Table, error) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindNoSuchDirectory, directory, err)
		}
		return nil, newError(KindFilesystemError, directory, err)
	}
	if !info.IsDir() {
		return nil, newError(KindNoSuchDirectory, directory, fmt.Errorf("not a directory"))
	}
	return decodeManifestFile(directory, serialboxVersion, archiveVersion)
}

func loadOptionalManifest(directory string, serialboxVersion, archiveVersion int) (*fieldtable.Table, error) {
	path := filepath.Join(directory, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fieldtable.New(), nil
		}
		return nil, newError(KindFilesystemError, path, err)
	}
	return decodeManifestFile(directory, serialboxVersion, archiveVersion)
}

func decodeManifestFile(directory string, serialboxVersion, archiveVersion int) (*fieldtable.Table, error) {
	path := filepath.Join(directory, manifest.FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindFilesystemError, path, err)
	}

	table, err := manifest.Decode(data, serialboxVersion, archiveVersion)
	if err != nil {
		return nil, translateManifestError(path, err)
	}
	return table, nil
}

// Close flushes a dirty manifest, if any, and marks the archive unusable
// for further operations. Close is idempotent.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if !a.manifestDirty {
		a.entry().Debug("archive closed, no pending manifest writes")
		return nil
	}
	if err := a.flushManifest(); err != nil {
		return err
	}
	a.entry().Debug("archive closed")
	return nil
}

func (a *Archive) flushManifest() error {
	data, err := manifest.Encode(a.serialboxVersion, a.archiveVersion, a.table)
	if err != nil {
		return newError(KindFilesystemError, "encoding manifest", err)
	}
	path := filepath.Join(a.dir, manifest.FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newError(KindFilesystemError, path, err)
	}
	a.manifestDirty = false
	a.entry().WithField("path", path).Debug("manifest flushed")
	return nil
}

// ToText renders a short human-readable summary of the archive's current
// state: its mode, directory, field count, each field's name with its
// snapshot count, and total bytes recorded across every field's data files
// (best-effort; unreadable files are skipped).
func (a *Archive) ToText() string {
	names := a.table.Names()
	fields := make([]string, 0, len(names))
	var total int64
	for _, name := range names {
		entries, _ := a.table.Lookup(name)
		fields = append(fields, fmt.Sprintf("%s:%s", name, humanize.Comma(int64(len(entries)))))
		if info, err := os.Stat(filepath.Join(a.dir, name+".dat")); err == nil {
			total += info.Size()
		}
	}
	return fmt.Sprintf("BinaryArchive(%s, dir=%s, fields=%d [%s], bytes=%s)",
		a.mode, a.dir, len(names), strings.Join(fields, " "), humanize.Bytes(uint64(total)))
}

func (a *Archive) checkMode(allowed ...Mode) error {
	if a.closed {
		return newError(KindWrongMode, "archive is closed", nil)
	}
	for _, m := range allowed {
		if a.mode == m {
			return nil
		}
	}
	return newError(KindWrongMode, fmt.Sprintf("operation not valid in %s mode", a.mode), nil)
}

func translateManifestError(path string, err error) error {
	var vm *manifest.VersionMismatchError
	if errors.As(err, &vm) {
		return newError(KindVersionMismatch, path, err)
	}
	if errors.Is(err, manifest.ErrType) {
		return newError(KindTypeError, path, err)
	}
	return newError(KindFormatError, path, err)
}
