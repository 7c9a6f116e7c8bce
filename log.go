package binaryarchive

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger is the default logger an Archive uses when the caller
// doesn't supply one via WithLogger: every entry goes nowhere, so logging
// calls stay on the hot path without a nil check at every call site.
func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Option configures an Archive at Open time.
type Option func(*openConfig)

type openConfig struct {
	logger           *logrus.Logger
	verbose          bool
	serialboxVersion *int
	archiveVersion   *int
}

// ArchiveConfig bundles the archive's caller-tunable options that don't
// need their own functional option: whether to log at debug verbosity, and
// the version tags Open checks the manifest against. The version fields are
// nil by default, meaning "use the library's current versions"; tests that
// need to provoke a VersionMismatch, or a caller pinning an older on-disk
// format, set them explicitly.
type ArchiveConfig struct {
	Verbose                      bool
	SerialboxVersionOverride     *int
	ArchiveFormatVersionOverride *int
}

// WithConfig applies cfg's verbose flag and version overrides.
func WithConfig(cfg ArchiveConfig) Option {
	return func(c *openConfig) {
		c.verbose = cfg.Verbose
		c.serialboxVersion = cfg.SerialboxVersionOverride
		c.archiveVersion = cfg.ArchiveFormatVersionOverride
	}
}

// WithLogger injects a logrus.Logger the Archive uses to emit structured
// entries on open, write, read, and manifest flush. Unset, the Archive logs
// to nowhere.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *openConfig) {
		c.logger = logger
	}
}

func (a *Archive) entry() *logrus.Entry {
	return a.log.WithFields(logrus.Fields{
		"directory": a.dir,
		"mode":      a.mode.String(),
	})
}
