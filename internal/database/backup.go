// Package database schedules snapshots of the sqlite store.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"restobook/internal/clock"
	"restobook/internal/config"
)

const (
	backupPrefix = "restobook_"
	backupSuffix = ".db"
)

// Snapshotter writes a consistent copy of the database to dest.
type Snapshotter interface {
	Backup(ctx context.Context, dest string) error
}

type BackupService struct {
	db     Snapshotter
	config config.BackupConfig
	clock  clock.Clock
	logger zerolog.Logger
}

func NewBackupService(db Snapshotter, cfg config.BackupConfig, clk clock.Clock, logger zerolog.Logger) *BackupService {
	return &BackupService{
		db:     db,
		config: cfg,
		clock:  clk,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Start backs up immediately and then once per interval until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Dur("interval", s.config.Interval()).Str("path", s.config.Path).Msg("Backup service started")

	ticker := time.NewTicker(s.config.Interval())
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *BackupService) run(ctx context.Context) {
	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Backup failed")
		return
	}
	if _, err := s.CleanupOldBackups(); err != nil {
		s.logger.Error().Err(err).Msg("Backup cleanup failed")
	}
}

// PerformBackup writes a timestamped snapshot and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + s.clock.Now().UTC().Format("20060102_150405") + backupSuffix
	dest := filepath.Join(s.config.Path, name)

	// VACUUM INTO refuses to overwrite.
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup %s already exists", dest)
	}

	start := time.Now()
	if err := s.db.Backup(ctx, dest); err != nil {
		return "", err
	}

	s.logger.Info().Str("path", dest).Dur("took", time.Since(start)).Msg("Backup completed")
	return dest, nil
}

// CleanupOldBackups removes snapshots older than the retention window and
// returns how many were deleted. Files not written by the service are left alone.
func (s *BackupService) CleanupOldBackups() (int, error) {
	if s.config.RetentionDays <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.config.Path)
	if err != nil {
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	cutoff := s.clock.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.Path, name)); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to delete old backup")
			continue
		}
		s.logger.Info().Str("file", name).Msg("Deleted old backup")
		removed++
	}
	return removed, nil
}
