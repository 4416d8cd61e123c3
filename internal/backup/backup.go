// ABOUTME: Writes dated snapshot backups of the vault and prunes old ones
// ABOUTME: One file per day named xvault-backup-YYYY-MM-DD.json; a same-day rerun overwrites it

package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/storage"
)

// FileName returns the backup file name for day t.
func FileName(t time.Time) string {
	return config.BackupFilePrefix + t.Format(config.BackupDateLayout) + config.BackupFileSuffix
}

// Write exports the vault into dir and returns the written path.
func Write(ctx context.Context, store *storage.Store, dir string, now time.Time) (string, error) {
	snap, err := store.Export(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(dir, config.DefaultDirPerms); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWrite writes data to a temp file in the same directory and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".xvault-backup-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// List returns backup files in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, config.BackupFilePrefix) || !strings.HasSuffix(name, config.BackupFileSuffix) {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, config.BackupFilePrefix), config.BackupFileSuffix)
		if _, err := time.Parse(config.BackupDateLayout, day); err != nil {
			continue
		}
		names = append(names, filepath.Join(dir, name))
	}
	// The date layout sorts lexically.
	sort.Strings(names)
	return names, nil
}

// Prune deletes all but the newest keep backups in dir and returns the removed paths.
func Prune(dir string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(files) <= keep {
		return nil, nil
	}
	stale := files[:len(files)-keep]
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return stale, nil
}
