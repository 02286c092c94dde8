// Package backup makes timestamped copies of tuning files before they are
// overwritten, with count-based rotation.
package backup

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/fsutil"
	"github.com/banshee-data/awbmap/internal/monitoring"
	"github.com/banshee-data/awbmap/internal/timeutil"
)

// DefaultRetention is the backup count kept per target file.
const DefaultRetention = 50

// DirName is the sibling directory backups land in when no override is set.
const DirName = "backups"

// stampLayout matches the naming contract <stem>_backup_<stamp><ext>.
const stampLayout = "20060102_150405"

// Info describes one existing backup file.
type Info struct {
	Path      string
	Name      string
	CreatedAt time.Time
	SizeBytes int64
}

// Service copies files aside before writes. The zero value is not usable;
// construct with NewService and override fields as needed.
type Service struct {
	FS    fsutil.FileSystem
	Clock timeutil.Clock

	// Dir overrides the default sibling backups/ directory.
	Dir string

	// Retention caps how many backups are kept per target file. Zero and
	// negative values fall back to DefaultRetention; "keep none" is not a
	// supported setting.
	Retention int
}

// NewService returns a service with OS filesystem, real clock and default
// retention.
func NewService() *Service {
	return &Service{
		FS:        fsutil.OSFileSystem{},
		Clock:     timeutil.RealClock{},
		Retention: DefaultRetention,
	}
}

func (s *Service) dirFor(path string) string {
	if s.Dir != "" {
		return s.Dir
	}
	return filepath.Join(filepath.Dir(path), DirName)
}

func (s *Service) retention() int {
	if s.Retention > 0 {
		return s.Retention
	}
	return DefaultRetention
}

func splitStem(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// Backup copies path to a timestamped file under the backup directory and
// prunes the oldest backups beyond the retention cap. It returns the backup
// file path.
func (s *Service) Backup(path string) (string, error) {
	data, err := s.FS.ReadFile(path)
	if err != nil {
		return "", &awb.BackupError{Path: path, Err: err}
	}

	dir := s.dirFor(path)
	if err := s.FS.MkdirAll(dir, 0755); err != nil {
		return "", &awb.BackupError{Path: path, Err: err}
	}

	stem, ext := splitStem(path)
	name := fmt.Sprintf("%s_backup_%s%s", stem, s.Clock.Now().Format(stampLayout), ext)
	dst := filepath.Join(dir, name)
	if err := s.FS.WriteFile(dst, data, 0644); err != nil {
		return "", &awb.BackupError{Path: path, Err: err}
	}

	// Pruning is best-effort and never fails the backup itself.
	if err := s.prune(path); err != nil {
		monitoring.Logf("backup: pruning %s: %v", dir, err)
	}
	return dst, nil
}

// List returns the existing backups for path, oldest first.
func (s *Service) List(path string) ([]Info, error) {
	dir := s.dirFor(path)
	if !s.FS.Exists(dir) {
		return nil, nil
	}

	entries, err := s.FS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list backups for %s: %w", path, err)
	}

	stem, ext := splitStem(path)
	prefix := stem + "_backup_"

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		created, err := time.Parse(stampLayout, stamp)
		if err != nil {
			continue
		}
		var size int64
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		infos = append(infos, Info{
			Path:      filepath.Join(dir, name),
			Name:      name,
			CreatedAt: created,
			SizeBytes: size,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// Restore copies a backup file over the target path atomically.
func (s *Service) Restore(backupPath, target string) error {
	data, err := s.FS.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("restore from %s: %w", backupPath, err)
	}
	if err := s.FS.WriteFileAtomic(target, data, 0644); err != nil {
		return fmt.Errorf("restore to %s: %w", target, err)
	}
	return nil
}

// prune removes the oldest backups beyond the retention cap.
func (s *Service) prune(path string) error {
	infos, err := s.List(path)
	if err != nil {
		return err
	}
	excess := len(infos) - s.retention()
	for i := 0; i < excess; i++ {
		if err := s.FS.Remove(infos[i].Path); err != nil {
			return err
		}
		monitoring.Debugf("backup: pruned %s", infos[i].Path)
	}
	return nil
}
