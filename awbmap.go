// Package awbmap is the top-level facade over the AWB Map tuning-file
// toolkit: parse a vendor tuning document into typed records, patch mutated
// field values back into the file without disturbing its formatting, and
// manage timestamped backups.
//
// The facade wires the default field registry through the parser and writer.
// Callers needing a customised field set or an injected filesystem/clock use
// the internal packages' constructors directly through their own wiring.
package awbmap

import (
	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/backup"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/parse"
	"github.com/banshee-data/awbmap/internal/awb/patch"
	"github.com/banshee-data/awbmap/internal/awb/validate"
)

// ParseFile reads and decodes the tuning document at path. deviceLabel tags
// the returned configuration and may be empty.
func ParseFile(path, deviceLabel string) (*awb.MapConfiguration, error) {
	return parse.NewParser(field.DefaultRegistry()).ParseFile(path, deviceLabel)
}

// Parse decodes a tuning document held in memory.
func Parse(data []byte, deviceLabel string) (*awb.MapConfiguration, error) {
	return parse.NewParser(field.DefaultRegistry()).Parse(data, deviceLabel)
}

// WriteFile patches cfg's mutated field values into the document at path,
// leaving every unrelated byte untouched. With makeBackup set a timestamped
// copy is made first.
func WriteFile(cfg *awb.MapConfiguration, path string, makeBackup bool) error {
	return patch.NewWriter(field.DefaultRegistry()).Write(cfg, path, makeBackup)
}

// Validate checks the document at path at the given strictness level.
func Validate(path string, level validate.Level) (*validate.Result, error) {
	return validate.Validate(path, level, field.DefaultRegistry())
}

// BackupFile copies path into its backup directory and returns the backup
// file's path.
func BackupFile(path string) (string, error) {
	return backup.NewService().Backup(path)
}

// ListBackups returns the existing backups for path, oldest first.
func ListBackups(path string) ([]backup.Info, error) {
	return backup.NewService().List(path)
}

// RestoreFromBackup copies a backup file over target atomically.
func RestoreFromBackup(backupPath, target string) error {
	return backup.NewService().Restore(backupPath, target)
}

// Metadata summarises the document at path without a full decode.
func Metadata(path string) (*awb.FileMetadata, error) {
	return parse.Meta(path)
}
