// Package maintenance keeps the run database healthy: periodic snapshots
// with retention, and SQLite optimize passes.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sydlexius/trackyear/internal/store"
)

const (
	snapshotPrefix = "trackyear-"
	stampLayout    = "20060102-150405"

	// LastOptimizePath is the document holding the time of the last
	// optimize pass.
	LastOptimizePath = "maintenance/last_optimize"
)

var snapshotPattern = regexp.MustCompile(`^trackyear-\d{8}-\d{6}\.db$`)

// Snapshot describes one backup file.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Status reports the size of the database files and the last optimize time.
type Status struct {
	DBFileSize     int64     `json:"db_file_size"`
	WALFileSize    int64     `json:"wal_file_size"`
	PageCount      int64     `json:"page_count"`
	PageSize       int64     `json:"page_size"`
	LastOptimizeAt time.Time `json:"last_optimize_at,omitzero"`
	Snapshots      int       `json:"snapshots"`
}

// Service runs maintenance against one SQLite database.
type Service struct {
	db        *sql.DB
	docs      *store.Store
	dbPath    string
	backupDir string
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a maintenance service. An empty backupDir places
// snapshots in a backups directory next to the database. retention below one
// keeps a single snapshot.
func NewService(db *sql.DB, docs *store.Store, dbPath, backupDir string, retention int, logger *slog.Logger) *Service {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(dbPath), "backups")
	}
	return &Service{
		db:        db,
		docs:      docs,
		dbPath:    dbPath,
		backupDir: backupDir,
		retention: max(retention, 1),
		logger:    logger.With(slog.String("component", "maintenance")),
		now:       time.Now,
	}
}

// Backup writes a consistent copy of the database with VACUUM INTO.
func (s *Service) Backup(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := snapshotPrefix + now.Format(stampLayout) + ".db"
	dest := filepath.Join(s.backupDir, filename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists", filename)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.logger.Info("snapshot written",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))
	return &Snapshot{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

// Snapshots lists the backup files, newest first.
func (s *Service) Snapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var out []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !snapshotPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), snapshotPrefix), ".db")
		created, err := time.Parse(stampLayout, stamp)
		if err != nil {
			created = info.ModTime()
		}
		out = append(out, Snapshot{Filename: entry.Name(), Size: info.Size(), CreatedAt: created})
	}

	slices.SortFunc(out, func(a, b Snapshot) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Prune removes snapshots beyond the retention count and returns how many
// were removed.
func (s *Service) Prune() (int, error) {
	snaps, err := s.Snapshots()
	if err != nil {
		return 0, err
	}
	if len(snaps) <= s.retention {
		return 0, nil
	}

	removed := 0
	for _, snap := range snaps[s.retention:] {
		if err := os.Remove(filepath.Join(s.backupDir, snap.Filename)); err != nil {
			s.logger.Warn("removing old snapshot",
				slog.String("filename", snap.Filename),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	s.logger.Info("pruned snapshots", slog.Int("removed", removed), slog.Int("retention", s.retention))
	return removed, nil
}

// Optimize runs PRAGMA optimize, truncates the WAL and records the time.
func (s *Service) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	if err := s.docs.Set(ctx, LastOptimizePath, s.now().UTC()); err != nil {
		s.logger.Warn("recording optimize time", slog.String("error", err.Error()))
	}
	s.logger.Info("optimize complete")
	return nil
}

// Status reads file sizes and page counters.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}
	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}

	var last time.Time
	switch err := s.docs.Get(ctx, LastOptimizePath, &last); {
	case err == nil:
		st.LastOptimizeAt = last
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	snaps, err := s.Snapshots()
	if err != nil {
		return nil, err
	}
	st.Snapshots = len(snaps)
	return st, nil
}

// RunOnce takes a snapshot, prunes old ones and optimizes.
func (s *Service) RunOnce(ctx context.Context) error {
	if _, err := s.Backup(ctx); err != nil {
		return err
	}
	if _, err := s.Prune(); err != nil {
		return err
	}
	return s.Optimize(ctx)
}

// StartScheduler calls RunOnce on a fixed interval until ctx is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduled maintenance failed", slog.String("error", err.Error()))
			}
		}
	}
}
