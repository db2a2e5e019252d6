package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"vote-ledger/logs"
	"vote-ledger/models"
)

const (
	auditPrefix = "audit_export_"
	auditSuffix = ".json"
	// Nanosecond precision keeps two exports in the same second apart and
	// sorts lexically in time order.
	fileTimeLayout = "20060102150405.000000000"
)

var ErrNoExport = errors.New("storage: no audit export saved")

// AuditStore keeps audit exports as timestamped JSON files in one directory.
type AuditStore struct {
	dataDir string
	mutex   sync.RWMutex
	now     func() time.Time
}

type auditFile struct {
	path      string
	timestamp time.Time
}

func New(dataDir string) (*AuditStore, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &AuditStore{
		dataDir: absPath,
		now:     time.Now,
	}, nil
}

func (s *AuditStore) Dir() string {
	return s.dataDir
}

// listFiles returns the export files oldest first. Names that do not parse are skipped.
func (s *AuditStore) listFiles() ([]auditFile, error) {
	files, err := filepath.Glob(filepath.Join(s.dataDir, auditPrefix+"*"+auditSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var out []auditFile
	for _, file := range files {
		base := filepath.Base(file)
		stamp := strings.TrimSuffix(strings.TrimPrefix(base, auditPrefix), auditSuffix)
		ts, err := time.Parse(fileTimeLayout, stamp)
		if err != nil {
			logs.Warn("Invalid timestamp in filename %s: %v", base, err)
			continue
		}
		out = append(out, auditFile{path: file, timestamp: ts})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].timestamp.Before(out[j].timestamp) })
	return out, nil
}

// SaveAuditExport writes export to a new file and returns its path.
func (s *AuditStore) SaveAuditExport(export *models.AuditExport) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ts := s.now().UTC()
	path := filepath.Join(s.dataDir, auditPrefix+ts.Format(fileTimeLayout)+auditSuffix)
	if err := writeJSON(path, export); err != nil {
		return "", err
	}

	logs.Info("Saved audit export %s with %d blocks to %s", export.ExportID, export.BlockCount, filepath.Base(path))
	return path, nil
}

// LoadLatestAuditExport returns the most recent export, or ErrNoExport.
func (s *AuditStore) LoadLatestAuditExport() (*models.AuditExport, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoExport
	}

	latest := files[len(files)-1].path
	var export models.AuditExport
	if err := readJSON(latest, &export); err != nil {
		return nil, err
	}
	return &export, nil
}

// Prune removes all but the keep most recent exports and reports how many it removed.
func (s *AuditStore) Prune(keep int) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	files, err := s.listFiles()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(files) <= keep {
		return 0, nil
	}

	removed := 0
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", filepath.Base(f.path), err)
		}
		removed++
	}
	logs.Debug("Pruned %d audit exports, kept %d", removed, keep)
	return removed, nil
}
