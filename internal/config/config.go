package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/awbmap/internal/awb/backup"
)

// ToolConfig is the root configuration for the awbmap tool. All fields are
// optional; the Get* methods provide fallback defaults, so partial configs
// are safe.
type ToolConfig struct {
	// DeviceLabel tags parsed configurations and history records with the
	// camera module they came from.
	DeviceLabel *string `json:"device_label,omitempty"`

	// Backup params
	BackupDir       *string `json:"backup_dir,omitempty"`
	BackupRetention *int    `json:"backup_retention,omitempty"`

	// HistoryDBPath is the sqlite file for sessions, write audits and
	// EXIF match records. Empty disables history recording.
	HistoryDBPath *string `json:"history_db_path,omitempty"`

	// Report params
	ReportTheme     *string `json:"report_theme,omitempty"`
	ReportMaxPoints *int    `json:"report_max_points,omitempty"`
}

// EmptyToolConfig returns a ToolConfig with all fields set to nil.
func EmptyToolConfig() *ToolConfig {
	return &ToolConfig{}
}

// Load reads a ToolConfig from a JSON file. Fields omitted from the file
// retain their defaults.
func Load(path string) (*ToolConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyToolConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ToolConfig) Validate() error {
	if c.BackupRetention != nil && *c.BackupRetention < 1 {
		return fmt.Errorf("backup_retention must be at least 1, got %d", *c.BackupRetention)
	}

	if c.ReportMaxPoints != nil && *c.ReportMaxPoints < 1 {
		return fmt.Errorf("report_max_points must be at least 1, got %d", *c.ReportMaxPoints)
	}

	if c.ReportTheme != nil {
		switch *c.ReportTheme {
		case "", "white", "dark", "chalk", "essos", "infographic", "macarons",
			"purple-passion", "roma", "romantic", "shine", "vintage", "walden",
			"westeros", "wonderland":
		default:
			return fmt.Errorf("unknown report_theme %q", *c.ReportTheme)
		}
	}

	return nil
}

// GetDeviceLabel returns the device_label value or the default.
func (c *ToolConfig) GetDeviceLabel() string {
	if c.DeviceLabel == nil {
		return ""
	}
	return *c.DeviceLabel
}

// GetBackupDir returns the backup_dir value, or "" when unset. Empty means
// the backup service's default: a backups/ subdirectory next to the source
// file.
func (c *ToolConfig) GetBackupDir() string {
	if c.BackupDir == nil {
		return ""
	}
	return *c.BackupDir
}

// GetBackupRetention returns the backup_retention value or the default.
func (c *ToolConfig) GetBackupRetention() int {
	if c.BackupRetention == nil {
		return backup.DefaultRetention
	}
	return *c.BackupRetention
}

// GetHistoryDBPath returns the history_db_path value or "" when history
// recording is disabled.
func (c *ToolConfig) GetHistoryDBPath() string {
	if c.HistoryDBPath == nil {
		return ""
	}
	return *c.HistoryDBPath
}

// GetReportTheme returns the report_theme value or the default.
func (c *ToolConfig) GetReportTheme() string {
	if c.ReportTheme == nil || *c.ReportTheme == "" {
		return "white"
	}
	return *c.ReportTheme
}

// GetReportMaxPoints returns the report_max_points value or the default.
func (c *ToolConfig) GetReportMaxPoints() int {
	if c.ReportMaxPoints == nil {
		return 64
	}
	return *c.ReportMaxPoints
}
