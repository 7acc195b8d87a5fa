package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/waterbill/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backupNames(t *testing.T, s *Store) []string {
	t.Helper()
	entries, err := os.ReadDir(s.backupDir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestCreateBackupWritesDatedCopy(t *testing.T) {
	s := newTestStore(t, testClock())

	path, err := s.CreateBackup(BackupManual)
	require.NoError(t, err)

	name := filepath.Base(path)
	assert.True(t, strings.HasPrefix(name, "ledger_backup_manual_"))
	assert.True(t, strings.HasSuffix(name, ".json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": "2.0"`)
}

func TestAutoBackupOncePerDay(t *testing.T) {
	clk := testClock()
	s := newTestStore(t, clk)

	require.NoError(t, s.AutoBackup())
	clk.Advance(2 * time.Hour)
	require.NoError(t, s.AutoBackup())

	var autos int
	for _, name := range backupNames(t, s) {
		if strings.HasPrefix(name, "ledger_backup_auto_") {
			autos++
		}
	}
	assert.Equal(t, 1, autos)

	// The next calendar day gets its own backup.
	clk.Advance(24 * time.Hour)
	require.NoError(t, s.AutoBackup())

	autos = 0
	for _, name := range backupNames(t, s) {
		if strings.HasPrefix(name, "ledger_backup_auto_") {
			autos++
		}
	}
	assert.Equal(t, 2, autos)
}

func TestSaveTakesDailyBackupBeforeWrite(t *testing.T) {
	clk := testClock()
	s := newTestStore(t, clk)

	_, err := s.SaveInvoice(domain.Invoice{SubscriberID: "1001", Period: "2026-08"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = s.SaveInvoice(domain.Invoice{SubscriberID: "1001", Period: "2026-09"})
	require.NoError(t, err)

	var autos int
	for _, name := range backupNames(t, s) {
		if strings.HasPrefix(name, "ledger_backup_auto_") {
			autos++
		}
	}
	assert.Equal(t, 1, autos)
}

func TestCleanupKeepsMostRecentBackups(t *testing.T) {
	clk := testClock()
	s := newTestStore(t, clk)

	// Bypass the per-create sweep to build up an oversized set.
	for i := 0; i < 14; i++ {
		_, err := s.createBackupLocked(BackupManual)
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	require.NoError(t, s.CleanupBackups())

	names := backupNames(t, s)
	assert.Len(t, names, 10)
}

func TestCleanupIgnoresQuarantineFiles(t *testing.T) {
	clk := testClock()
	s := newTestStore(t, clk)

	quarantined, err := s.quarantine([]byte("not json"))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := s.createBackupLocked(BackupManual)
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}
	require.NoError(t, s.CleanupBackups())

	_, err = os.Stat(quarantined)
	assert.NoError(t, err)

	var backups int
	for _, name := range backupNames(t, s) {
		if strings.HasPrefix(name, "ledger_backup_") {
			backups++
		}
	}
	assert.Equal(t, 10, backups)
}
