package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smallbiznis/waterbill/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/waterbill/internal/observability/metrics"
	"go.uber.org/zap"
)

// BackupKind tags a backup file with how it was taken.
type BackupKind string

const (
	BackupAuto   BackupKind = "auto"
	BackupManual BackupKind = "manual"
)

const (
	backupPrefix     = "ledger_backup_"
	backupSuffix     = ".json"
	quarantinePrefix = "corrupted_data_"
	stampLayout      = "20060102_150405"
	dayLayout        = "20060102"

	// keepBackups is the retention count for the cleanup sweep. Quarantine
	// files do not count against it and are never auto-deleted.
	keepBackups = 10
)

// CreateBackup writes a dated full copy of the document and runs the
// retention sweep. It returns the backup file path.
func (s *Store) CreateBackup(kind BackupKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.createBackupLocked(kind)
	if err != nil {
		return "", err
	}
	if err := s.cleanupBackupsLocked(); err != nil {
		s.log.Warn("backup retention sweep failed", zap.Error(err))
	}
	return path, nil
}

func (s *Store) createBackupLocked(kind BackupKind) (string, error) {
	stamp := s.clock.Now().Format(stampLayout)
	name := fmt.Sprintf("%s%s_%s%s", backupPrefix, kind, stamp, backupSuffix)
	path := filepath.Join(s.backupDir, name)

	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode backup: %v", domain.ErrStoreIO, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		s.log.Error("backup write failed", zap.String("file", path), zap.Error(err))
		return "", fmt.Errorf("%w: write backup: %v", domain.ErrStoreIO, err)
	}

	obsmetrics.Store().IncBackup(string(kind))
	s.log.Info("backup created", zap.String("file", name), zap.String("kind", string(kind)))
	return path, nil
}

// AutoBackup takes the daily automatic backup if none exists yet for the
// current calendar day. The scheduler's daily job delegates here.
func (s *Store) AutoBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoBackupLocked()
}

// autoBackupLocked runs before every persisted write but creates at most one
// auto backup per calendar day, detected by scanning existing filenames for
// today's date stamp. A backup failure is logged and does not block the
// write that triggered it.
func (s *Store) autoBackupLocked() error {
	today := s.clock.Now().Format(dayLayout)
	autoPrefix := backupPrefix + string(BackupAuto) + "_"

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		s.log.Warn("backup dir scan failed", zap.Error(err))
		return fmt.Errorf("%w: scan backup dir: %v", domain.ErrStoreIO, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, autoPrefix) && strings.Contains(name, today) {
			return nil
		}
	}

	if _, err := s.createBackupLocked(BackupAuto); err != nil {
		return err
	}
	return s.cleanupBackupsLocked()
}

// CleanupBackups deletes backups beyond the most recently modified
// keepBackups, by file modification time. The scheduler's weekly job
// delegates here.
func (s *Store) CleanupBackups() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupBackupsLocked()
}

func (s *Store) cleanupBackupsLocked() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return fmt.Errorf("%w: scan backup dir: %v", domain.ErrStoreIO, err)
	}

	type backupFile struct {
		name  string
		mtime int64
	}
	var backups []backupFile
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{name: name, mtime: info.ModTime().UnixNano()})
	}
	if len(backups) <= keepBackups {
		return nil
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].mtime < backups[j].mtime })
	for _, old := range backups[:len(backups)-keepBackups] {
		if err := os.Remove(filepath.Join(s.backupDir, old.name)); err != nil {
			s.log.Warn("backup delete failed", zap.String("file", old.name), zap.Error(err))
			continue
		}
		s.log.Info("old backup deleted", zap.String("file", old.name))
	}
	return nil
}

// quarantine copies unreadable document bytes verbatim into the backup dir.
// Quarantine files are exempt from retention and never auto-deleted.
func (s *Store) quarantine(raw []byte) (string, error) {
	stamp := s.clock.Now().Format(stampLayout)
	path := filepath.Join(s.backupDir, quarantinePrefix+stamp+backupSuffix)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("%w: write quarantine: %v", domain.ErrStoreIO, err)
	}
	return path, nil
}
