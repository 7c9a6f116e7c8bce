// Package manifest encodes and decodes the archive's metadata document:
// the library/format version tags and the FieldTable, as a JSON document
// named ArchiveMetaData.json.
package manifest

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/fieldforge/binaryarchive/internal/fieldtable"
)

// json is configured to match encoding/json's behavior exactly (field
// naming, HTML escaping, map key ordering) while using jsoniter's faster
// codec underneath.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileName is the manifest's fixed name within an archive directory.
const FileName = "ArchiveMetaData.json"

// Indent is the pretty-print indent width used so the manifest stays
// readable when inspected by hand.
const Indent = "    "

// ErrFormat means the document isn't syntactically valid JSON, or is
// missing a required top-level key.
var ErrFormat = errors.New("manifest: malformed document")

// ErrType means a present key holds a value of the wrong shape.
var ErrType = errors.New("manifest: value has wrong shape")

// VersionMismatchError means a version tag in the document disagrees with
// the version the running library expects.
type VersionMismatchError struct {
	Field string
	Got   int
	Want  int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("manifest: %s mismatch: document has %d, library expects %d", e.Field, e.Got, e.Want)
}

// document is the on-disk schema. entry is kept as a raw ordered pair so the
// wire format stays exactly [offset, "checksum"] regardless of how
// fieldtable.FileOffset is laid out in memory.
type document struct {
	SerialboxVersion     int                `json:"serialbox_version"`
	BinaryArchiveVersion int                `json:"binary_archive_version"`
	FieldsTable          map[string][]entry `json:"fields_table"`
}

type entry struct {
	Offset   uint64
	Checksum string
}

// MarshalJSON renders an entry as the mandated 2-element array
// [offset, "checksum"] rather than a JSON object.
func (e entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Offset, e.Checksum})
}

// UnmarshalJSON parses the mandated 2-element array form, failing ErrType
// if the shape or element types don't match.
func (e *entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrType, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: offset entry must have exactly 2 elements, got %d", ErrType, len(raw))
	}

	var offset uint64
	if err := json.Unmarshal(raw[0], &offset); err != nil {
		return fmt.Errorf("%w: offset must be a non-negative integer: %v", ErrType, err)
	}
	var checksum string
	if err := json.Unmarshal(raw[1], &checksum); err != nil {
		return fmt.Errorf("%w: checksum must be a string: %v", ErrType, err)
	}

	e.Offset = offset
	e.Checksum = checksum
	return nil
}

// Encode renders the given version tags and FieldTable as a pretty-printed
// JSON document, with fields_table keys emitted in the table's
// deterministic (lexicographic) order.
func Encode(serialboxVersion, archiveVersion int, table *fieldtable.Table) ([]byte, error) {
	doc := document{
		SerialboxVersion:     serialboxVersion,
		BinaryArchiveVersion: archiveVersion,
		FieldsTable:          make(map[string][]entry),
	}

	for _, name := range table.Names() {
		offsets, _ := table.Lookup(name)
		entries := make([]entry, len(offsets))
		for i, fo := range offsets {
			entries[i] = entry{Offset: fo.Offset, Checksum: fo.Checksum}
		}
		doc.FieldsTable[name] = entries
	}

	// jsoniter's standard-library-compatible encoder sorts map[string]...
	// keys the same way encoding/json does, so repeated encodes of the same
	// table are always byte-identical.
	return json.MarshalIndent(doc, "", Indent)
}

// Decode parses a manifest document and validates its version tags against
// wantSerialboxVersion/wantArchiveVersion, returning the populated
// FieldTable on success.
func Decode(data []byte, wantSerialboxVersion, wantArchiveVersion int) (*fieldtable.Table, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	svRaw, ok := raw["serialbox_version"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"serialbox_version\"", ErrFormat)
	}
	avRaw, ok := raw["binary_archive_version"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"binary_archive_version\"", ErrFormat)
	}
	ftRaw, ok := raw["fields_table"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"fields_table\"", ErrFormat)
	}

	var serialboxVersion int
	if err := json.Unmarshal(svRaw, &serialboxVersion); err != nil {
		return nil, fmt.Errorf("%w: \"serialbox_version\" must be an integer: %v", ErrType, err)
	}
	var archiveVersion int
	if err := json.Unmarshal(avRaw, &archiveVersion); err != nil {
		return nil, fmt.Errorf("%w: \"binary_archive_version\" must be an integer: %v", ErrType, err)
	}

	if serialboxVersion != wantSerialboxVersion {
		return nil, &VersionMismatchError{Field: "serialbox_version", Got: serialboxVersion, Want: wantSerialboxVersion}
	}
	if archiveVersion != wantArchiveVersion {
		return nil, &VersionMismatchError{Field: "binary_archive_version", Got: archiveVersion, Want: wantArchiveVersion}
	}

	var fieldsTable map[string][]entry
	if err := json.Unmarshal(ftRaw, &fieldsTable); err != nil {
		return nil, fmt.Errorf("%w: \"fields_table\": %v", ErrType, err)
	}

	table := fieldtable.New()
	for name, entries := range fieldsTable {
		offsets := make(fieldtable.OffsetTable, len(entries))
		for i, e := range entries {
			offsets[i] = fieldtable.FileOffset{Offset: e.Offset, Checksum: e.Checksum}
		}
		table.Set(name, offsets)
	}

	return table, nil
}
