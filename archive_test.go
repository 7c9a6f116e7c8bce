package binaryarchive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldforge/binaryarchive/internal/digest"
	"github.com/fieldforge/binaryarchive/storageview"
)

func sequence(start, n byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = start + byte(i)
	}
	return buf
}

// S1: fresh write, manifest and data file contents.
func TestScenarioFreshWrite(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, Write)
	require.NoError(t, err)

	want := sequence(0x00, 16)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, want), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	datPath := filepath.Join(dir, "u.dat")
	info, err := os.Stat(datPath)
	require.NoError(t, err)
	assert.EqualValues(t, 16, info.Size())

	raw, err := os.ReadFile(filepath.Join(dir, "ArchiveMetaData.json"))
	require.NoError(t, err)
	var doc struct {
		FieldsTable map[string][][2]any `json:"fields_table"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.FieldsTable["u"], 1)
	assert.EqualValues(t, 0, doc.FieldsTable["u"][0][0])
	assert.Equal(t, digest.Sum(want), doc.FieldsTable["u"][0][1])
}

// S2: append a second snapshot, offsets accumulate.
func TestScenarioAppend(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 16)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	a, err = Open(dir, Append)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x10, 16)), FieldID{Name: "u", ID: 1}))
	require.NoError(t, a.Close())

	info, err := os.Stat(filepath.Join(dir, "u.dat"))
	require.NoError(t, err)
	assert.EqualValues(t, 32, info.Size())

	raw, err := os.ReadFile(filepath.Join(dir, "ArchiveMetaData.json"))
	require.NoError(t, err)
	var doc struct {
		FieldsTable map[string][][2]any `json:"fields_table"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.FieldsTable["u"], 2)
	assert.EqualValues(t, 0, doc.FieldsTable["u"][0][0])
	assert.EqualValues(t, 16, doc.FieldsTable["u"][1][0])
}

// S3: read both snapshots back, InvalidId and UnknownField on bad ids.
func TestScenarioRead(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 16)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x10, 16)), FieldID{Name: "u", ID: 1}))
	require.NoError(t, a.Close())

	a, err = Open(dir, Read)
	require.NoError(t, err)

	got0 := make([]byte, 16)
	require.NoError(t, a.Read(storageview.NewContiguousView(1, got0), FieldID{Name: "u", ID: 0}))
	assert.Equal(t, sequence(0x00, 16), got0)

	got1 := make([]byte, 16)
	require.NoError(t, a.Read(storageview.NewContiguousView(1, got1), FieldID{Name: "u", ID: 1}))
	assert.Equal(t, sequence(0x10, 16), got1)

	err = a.Read(storageview.NewContiguousView(1, make([]byte, 16)), FieldID{Name: "u", ID: 2})
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidID))

	err = a.Read(storageview.NewContiguousView(1, make([]byte, 16)), FieldID{Name: "v", ID: 0})
	require.Error(t, err)
	assert.True(t, Is(err, KindUnknownField))

	require.NoError(t, a.Close())
}

// S4: a single corrupted byte surfaces as ChecksumMismatch on read.
func TestScenarioCorruption(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 16)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	datPath := filepath.Join(dir, "u.dat")
	raw, err := os.ReadFile(datPath)
	require.NoError(t, err)
	raw[5] ^= 0xff
	require.NoError(t, os.WriteFile(datPath, raw, 0o644))

	a, err = Open(dir, Read)
	require.NoError(t, err)
	err = a.Read(storageview.NewContiguousView(1, make([]byte, 16)), FieldID{Name: "u", ID: 0})
	require.Error(t, err)
	assert.True(t, Is(err, KindChecksumMismatch))
}

// S5: a truncated manifest is either FormatError or VersionMismatch.
func TestScenarioTruncatedManifest(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 16)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ArchiveMetaData.json"), []byte("{}"), 0o644))

	_, err = Open(dir, Read)
	require.Error(t, err)
	assert.True(t, Is(err, KindFormatError) || Is(err, KindVersionMismatch))
}

// S6: opening a non-empty directory in Write mode fails without side effects.
func TestScenarioWriteOnNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))

	_, err := Open(dir, Write)
	require.Error(t, err)
	assert.True(t, Is(err, KindDirectoryNotEmpty))
}

// Property 1: round-trip identity.
func TestRoundTripIdentity(t *testing.T) {
	dir := t.TempDir()
	want := []float64{1.5, -2.25, 3.0, 0.0, 42}

	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewFloat64View(want), FieldID{Name: "temperature", ID: 0}))
	require.NoError(t, a.Close())

	a, err = Open(dir, Read)
	require.NoError(t, err)
	got := make([]float64, len(want))
	require.NoError(t, a.Read(storageview.NewFloat64View(got), FieldID{Name: "temperature", ID: 0}))
	assert.Equal(t, want, got)
}

// Property 2: append order with strictly non-decreasing, contiguous offsets.
func TestAppendOrderOffsets(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, Write)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(byte(i), 8)), FieldID{Name: "u", ID: i}))
	}

	entries, ok := a.table.Lookup("u")
	require.True(t, ok)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.EqualValues(t, i*8, e.Offset)
	}
	require.NoError(t, a.Close())
}

// Property 3: overwriting snapshot j leaves every other snapshot untouched.
func TestOverwriteStability(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, Write)
	require.NoError(t, err)

	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 8)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x10, 8)), FieldID{Name: "u", ID: 1}))
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x20, 8)), FieldID{Name: "u", ID: 2}))

	replacement := sequence(0xa0, 8)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, replacement), FieldID{Name: "u", ID: 1}))
	require.NoError(t, a.Close())

	a, err = Open(dir, Read)
	require.NoError(t, err)

	got0 := make([]byte, 8)
	require.NoError(t, a.Read(storageview.NewContiguousView(1, got0), FieldID{Name: "u", ID: 0}))
	assert.Equal(t, sequence(0x00, 8), got0)

	got1 := make([]byte, 8)
	require.NoError(t, a.Read(storageview.NewContiguousView(1, got1), FieldID{Name: "u", ID: 1}))
	assert.Equal(t, replacement, got1)

	got2 := make([]byte, 8)
	require.NoError(t, a.Read(storageview.NewContiguousView(1, got2), FieldID{Name: "u", ID: 2}))
	assert.Equal(t, sequence(0x20, 8), got2)
}

// Overwrite with a mismatched length fails SizeMismatch, leaving the
// manifest's recorded checksum for that snapshot untouched.
func TestOverwriteSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 8)), FieldID{Name: "u", ID: 0}))

	err = a.Write(storageview.NewContiguousView(1, sequence(0x00, 4)), FieldID{Name: "u", ID: 0})
	require.Error(t, err)
	assert.True(t, Is(err, KindSizeMismatch))
	require.NoError(t, a.Close())
}

// Property 4: version gate.
func TestVersionGate(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 4)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "ArchiveMetaData.json"))
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["binary_archive_version"] = json.RawMessage("999")
	patched, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ArchiveMetaData.json"), patched, 0o644))

	_, err = Open(dir, Read)
	require.Error(t, err)
	assert.True(t, Is(err, KindVersionMismatch))
}

// Property 6: mode exclusivity.
func TestModeExclusivity(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, w.Write(storageview.NewContiguousView(1, sequence(0x00, 4)), FieldID{Name: "u", ID: 0}))

	err = w.Read(storageview.NewContiguousView(1, make([]byte, 4)), FieldID{Name: "u", ID: 0})
	require.Error(t, err)
	assert.True(t, Is(err, KindWrongMode))
	require.NoError(t, w.Close())

	r, err := Open(dir, Read)
	require.NoError(t, err)
	err = r.Write(storageview.NewContiguousView(1, sequence(0x00, 4)), FieldID{Name: "u", ID: 1})
	require.Error(t, err)
	assert.True(t, Is(err, KindWrongMode))
}

func TestOpenReadMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), Read)
	require.Error(t, err)
	assert.True(t, Is(err, KindNoSuchDirectory))
}

func TestWriteModeCreatesAbsentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestToText(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, Write)
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 16)), FieldID{Name: "u", ID: 0}))

	text := a.ToText()
	assert.Contains(t, text, "u")
	assert.Contains(t, text, "Write")
	require.NoError(t, a.Close())
}

// ArchiveConfig's version override lets a caller pin the tags a manifest is
// written with and checked against, independently of the library's own
// current version.
func TestArchiveConfigVersionOverride(t *testing.T) {
	dir := t.TempDir()
	pinned := 7

	a, err := Open(dir, Write, WithConfig(ArchiveConfig{
		SerialboxVersionOverride:     &pinned,
		ArchiveFormatVersionOverride: &pinned,
	}))
	require.NoError(t, err)
	require.NoError(t, a.Write(storageview.NewContiguousView(1, sequence(0x00, 4)), FieldID{Name: "u", ID: 0}))
	require.NoError(t, a.Close())

	// Opening with the library's real versions now sees a VersionMismatch.
	_, err = Open(dir, Read)
	require.Error(t, err)
	assert.True(t, Is(err, KindVersionMismatch))

	// Opening with the same pinned override succeeds.
	a, err = Open(dir, Read, WithConfig(ArchiveConfig{
		SerialboxVersionOverride:     &pinned,
		ArchiveFormatVersionOverride: &pinned,
	}))
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

// ArchiveConfig's Verbose flag raises the injected logger to debug level.
func TestArchiveConfigVerboseRaisesLogLevel(t *testing.T) {
	dir := t.TempDir()
	logger := discardLogger()
	logger.SetLevel(logrus.InfoLevel)

	a, err := Open(dir, Write, WithLogger(logger), WithConfig(ArchiveConfig{Verbose: true}))
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	require.NoError(t, a.Close())
}
