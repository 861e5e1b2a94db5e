package deviceconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
)

const (
	// DefaultMaxSnapshots is how many backups are kept per device
	DefaultMaxSnapshots = 10

	snapshotTimeLayout = "20060102-150405"
	snapshotExt        = ".json"
)

// BackupFilename names a backup of hostname taken at t, e.g.
// "living-room-20261019-101500.json". An empty hostname becomes "device".
func BackupFilename(hostname string, t time.Time) string {
	return backupPrefix(hostname) + t.Format(snapshotTimeLayout) + snapshotExt
}

func backupPrefix(hostname string) string {
	name := slug.Make(hostname)
	if name == "" {
		name = "device"
	}
	return name + "-"
}

// SnapshotStore keeps configuration backups on disk so a restore can be
// rolled back. Only the newest MaxSnapshots files of each device are kept.
type SnapshotStore struct {
	// Dir holds the backup files
	Dir string

	// MaxSnapshots is the number of files kept per device, 0 keeps all
	MaxSnapshots int

	now   func() time.Time
	mutex sync.Mutex
}

// NewSnapshotStore creates a store writing to dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{
		Dir:          dir,
		MaxSnapshots: DefaultMaxSnapshots,
		now:          time.Now,
	}
}

// Save writes raw as a new snapshot of hostname and prunes old ones.
func (s *SnapshotStore) Save(hostname string, raw []byte) (*BackupInfo, error) {
	_, info, err := ParseBackup(raw)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	taken := s.now()
	path := filepath.Join(s.Dir, BackupFilename(hostname, taken))
	if err := writeFileAtomic(path, raw, 0o600); err != nil {
		return nil, err
	}
	info.Path = path
	info.Taken = taken.Truncate(time.Second)

	logging.Info("Saved configuration snapshot",
		zap.String("hostname", hostname),
		zap.String("path", path),
		zap.Int("settings", len(info.Keys)),
	)

	if err := s.pruneLocked(hostname); err != nil {
		logging.Warn("Failed to prune old snapshots", zap.Error(err))
	}
	return info, nil
}

// List returns the snapshots of hostname, oldest first. Files that do not
// follow the naming scheme are ignored.
func (s *SnapshotStore) List(hostname string) ([]*BackupInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.listLocked(hostname)
}

// Latest returns the newest snapshot of hostname, or nil when there is none.
func (s *SnapshotStore) Latest(hostname string) (*BackupInfo, error) {
	list, err := s.List(hostname)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[len(list)-1], nil
}

// Load reads the file of a snapshot.
func (s *SnapshotStore) Load(info *BackupInfo) ([]byte, error) {
	if info == nil || info.Path == "" {
		return nil, fmt.Errorf("snapshot has no file")
	}
	raw, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return raw, nil
}

func (s *SnapshotStore) listLocked(hostname string) ([]*BackupInfo, error) {
	prefix := backupPrefix(hostname)
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []*BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), snapshotExt)
		taken, err := time.ParseInLocation(snapshotTimeLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		out = append(out, &BackupInfo{
			Hostname: hostname,
			Path:     filepath.Join(s.Dir, name),
			Taken:    taken,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Taken.Before(out[j].Taken) })
	return out, nil
}

func (s *SnapshotStore) pruneLocked(hostname string) error {
	if s.MaxSnapshots <= 0 {
		return nil
	}
	list, err := s.listLocked(hostname)
	if err != nil {
		return err
	}
	for len(list) > s.MaxSnapshots {
		if err := os.Remove(list[0].Path); err != nil {
			return err
		}
		list = list[1:]
	}
	return nil
}

// SnapshotBeforeRestore downloads the current configuration of the device
// behind client and stores it, so the restore that follows can be undone.
func SnapshotBeforeRestore(ctx context.Context, client *Client, store *SnapshotStore, hostname string) (*BackupInfo, error) {
	raw, err := client.DownloadBackup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to download pre-restore snapshot: %w", err)
	}
	return store.Save(hostname, raw)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}
