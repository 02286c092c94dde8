// Package sqlite persists the tuning history: parse sessions, write audit
// records and imported EXIF frames. The schema is managed with embedded
// migrations.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/exif"
	"github.com/banshee-data/awbmap/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the history database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the history database at path and migrates it to
// the latest schema version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: closing it would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

// Session is one recorded parse session.
type Session struct {
	SessionID    string
	SourcePath   string
	DeviceLabel  string
	EntryCount   int
	WarningCount int
	CreatedAt    int64
}

// RecordSession stores the outcome of a parse.
func (s *Store) RecordSession(cfg *awb.MapConfiguration) error {
	_, err := s.Exec(`
		INSERT INTO awb_sessions (session_id, source_path, device_label, entry_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cfg.ParseID, cfg.SourcePath, cfg.DeviceLabel, len(cfg.Points), len(cfg.Warnings), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// WriteAudit is one recorded write.
type WriteAudit struct {
	AuditID    string
	SessionID  string
	TargetPath string
	EditCount  int
	BackupPath string
	CreatedAt  int64
}

// RecordWrite stores an audit row for a completed write. It satisfies the
// patch engine's AuditSink.
func (s *Store) RecordWrite(parseID, targetPath string, editCount int, backupPath string) error {
	_, err := s.Exec(`
		INSERT INTO awb_write_audit (audit_id, session_id, target_path, edit_count, backup_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), parseID, targetPath, editCount, backupPath, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record write audit: %w", err)
	}
	return nil
}

// ListWrites returns the audit trail for a target path, newest first.
func (s *Store) ListWrites(targetPath string) ([]*WriteAudit, error) {
	rows, err := s.Query(`
		SELECT audit_id, session_id, target_path, edit_count, backup_path, created_at
		FROM awb_write_audit
		WHERE target_path = ?
		ORDER BY created_at DESC`, targetPath)
	if err != nil {
		return nil, fmt.Errorf("query write audit: %w", err)
	}
	defer rows.Close()

	var out []*WriteAudit
	for rows.Next() {
		a := &WriteAudit{}
		var session, backupPath sql.NullString
		if err := rows.Scan(&a.AuditID, &session, &a.TargetPath, &a.EditCount, &backupPath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan write audit: %w", err)
		}
		a.SessionID = session.String
		a.BackupPath = backupPath.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertFrames stores imported EXIF frames under an import ID and returns
// the generated frame IDs in input order.
func (s *Store) InsertFrames(importID string, frames []exif.Frame) ([]string, error) {
	tx, err := s.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin frame insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	ids := make([]string, len(frames))
	for i, f := range frames {
		ids[i] = uuid.New().String()
		_, err := tx.Exec(`
			INSERT INTO exif_frames (frame_id, import_id, bv, cct, ir, rpg, bpg, source_file, source_row, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ids[i], importID, f.BV, f.CCT, f.IR, f.RpG, f.BpG, f.SourceFile, f.SourceRow, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert frame %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit frame insert: %w", err)
	}
	monitoring.Debugf("storage: inserted %d EXIF frames for import %s", len(frames), importID)
	return ids, nil
}

// RecordMatches stores the match outcome for frames previously inserted
// under the same import ID. frameIDs must align with matches.
func (s *Store) RecordMatches(importID string, frameIDs []string, matches []exif.Match) error {
	if len(frameIDs) != len(matches) {
		return fmt.Errorf("frame ID count %d does not match match count %d", len(frameIDs), len(matches))
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin match insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	for i, m := range matches {
		matched := 0
		if m.Matched {
			matched = 1
		}
		_, err := tx.Exec(`
			INSERT INTO exif_matches (frame_id, import_id, alias, matched, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			frameIDs[i], importID, m.Alias, matched, now,
		)
		if err != nil {
			return fmt.Errorf("insert match %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// MatchCounts returns the number of matched frames per alias for an import.
func (s *Store) MatchCounts(importID string) (map[string]int, error) {
	rows, err := s.Query(`
		SELECT alias, COUNT(*)
		FROM exif_matches
		WHERE import_id = ? AND matched = 1
		GROUP BY alias`, importID)
	if err != nil {
		return nil, fmt.Errorf("query match counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var alias string
		var n int
		if err := rows.Scan(&alias, &n); err != nil {
			return nil, fmt.Errorf("scan match count: %w", err)
		}
		out[alias] = n
	}
	return out, rows.Err()
}
