package refdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"jingleid/internal/fingerprint"
	"jingleid/internal/logging"
)

const lockRetryDelay = 100 * time.Millisecond

// LockTimeout bounds how long checkpoint operations wait for the file lock.
var LockTimeout = 5 * time.Second

// CheckpointInfo describes a checkpoint without building a Database.
type CheckpointInfo struct {
	Path          string             `json:"path"`
	FormatVersion int                `json:"format_version"`
	CreatedAt     string             `json:"created_at"`
	Generator     string             `json:"generator"`
	Params        fingerprint.Params `json:"params"`
	Entries       []EntryInfo        `json:"entries"`
}

// EntryInfo describes one stored reference.
type EntryInfo struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	Bands    int    `json:"bands"`
	Frames   int    `json:"frames"`
}

type checkpoint struct {
	info    CheckpointInfo
	entries []Entry
}

// SaveCheckpoint writes the database to path. The file is written to a
// sibling temporary file and renamed into place.
func (d *Database) SaveCheckpoint(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) == 0 {
		return fmt.Errorf("save checkpoint: %w", ErrEmptyDatabase)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save checkpoint: ensure directory: %w", err)
	}

	unlock, err := lockCheckpoint(ctx, path, true)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	defer unlock()

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	defer func() { _ = os.Remove(tmp) }()

	if err := writeCheckpoint(ctx, tmp, d.params, d.entries); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save checkpoint: rename: %w", err)
	}
	d.logger.Info("checkpoint saved",
		logging.String("path", path),
		logging.Int("entries", len(d.entries)),
	)
	return nil
}

// LoadCheckpoint replaces the database contents and params with those stored
// at path. On error the database is unchanged.
func (d *Database) LoadCheckpoint(ctx context.Context, path string) error {
	cp, err := loadCheckpoint(ctx, path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = cp.info.Params
	d.entries = cp.entries
	d.logger.Info("checkpoint loaded",
		logging.String("path", path),
		logging.Int("entries", len(cp.entries)),
	)
	return nil
}

// OpenCheckpoint builds a Database from the checkpoint at path.
func OpenCheckpoint(ctx context.Context, path string, opts ...Option) (*Database, error) {
	cp, err := loadCheckpoint(ctx, path)
	if err != nil {
		return nil, err
	}
	d, err := New(cp.info.Params, opts...)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	d.entries = cp.entries
	return d, nil
}

// Inspect verifies the checkpoint at path and describes its contents.
func Inspect(ctx context.Context, path string) (*CheckpointInfo, error) {
	cp, err := loadCheckpoint(ctx, path)
	if err != nil {
		return nil, err
	}
	return &cp.info, nil
}

func loadCheckpoint(ctx context.Context, path string) (*checkpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	// sql.Open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	unlock, err := lockCheckpoint(ctx, path, false)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	defer unlock()

	cp, err := readCheckpoint(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return cp, nil
}

// lockCheckpoint takes the advisory lock beside path, exclusive for writers
// and shared for readers.
func lockCheckpoint(ctx context.Context, path string, exclusive bool) (func(), error) {
	lockPath := path + ".lock"
	fileLock := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fileLock.TryLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryRLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		_ = fileLock.Close()
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !locked {
		_ = fileLock.Close()
		return nil, fmt.Errorf("%w: %s is held by another process", ErrCheckpointLocked, lockPath)
	}
	return func() {
		_ = fileLock.Unlock()
		_ = fileLock.Close()
	}, nil
}

func writeCheckpoint(ctx context.Context, path string, params fingerprint.Params, entries []Entry) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := createSchema(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO checkpoint_meta (format_version, int_width, created_at, generator) VALUES (?, ?, ?, ?)",
		checkpointFormatVersion, checkpointIntWidth, time.Now().UTC().Format(time.RFC3339), checkpointGenerator,
	); err != nil {
		return fmt.Errorf("write checkpoint meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO params (chunk_length_ms, fft_size, fft_bin_start, fft_bin_end, fft_bin_step, partition_size) VALUES (?, ?, ?, ?, ?, ?)",
		params.ChunkLengthMS, params.FFTSize, params.FFTBinStart, params.FFTBinEnd, params.FFTBinStep, params.PartitionSize,
	); err != nil {
		return fmt.Errorf("write params: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (position, label, bands, frames, data, checksum) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, entry := range entries {
		fp := entry.Fingerprint
		data := encodeValues(fp.Values())
		if _, err := stmt.ExecContext(ctx, i, entry.Label, fp.Bands(), fp.Frames(), data, checksum(data)); err != nil {
			return fmt.Errorf("write entry %q: %w", entry.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func readCheckpoint(ctx context.Context, path string) (*checkpoint, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ok, err := hasMetaTable(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckpointCorrupt, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: checkpoint_meta table is missing", ErrCheckpointCorrupt)
	}

	info := CheckpointInfo{Path: path}
	var intWidth int
	if err := db.QueryRowContext(ctx,
		"SELECT format_version, int_width, created_at, generator FROM checkpoint_meta LIMIT 1",
	).Scan(&info.FormatVersion, &intWidth, &info.CreatedAt, &info.Generator); err != nil {
		return nil, fmt.Errorf("%w: read meta: %w", ErrCheckpointCorrupt, err)
	}
	if info.FormatVersion != checkpointFormatVersion {
		return nil, fmt.Errorf("%w: checkpoint has version %d, expected %d (re-run 'jingleid fit')",
			ErrCheckpointVersion, info.FormatVersion, checkpointFormatVersion)
	}
	if intWidth != checkpointIntWidth {
		return nil, fmt.Errorf("%w: checkpoint stores %d-bit values, expected %d",
			ErrCheckpointVersion, intWidth, checkpointIntWidth)
	}

	params, err := scanParams(db.QueryRowContext(ctx,
		"SELECT chunk_length_ms, fft_size, fft_bin_start, fft_bin_end, fft_bin_step, partition_size FROM params LIMIT 1"))
	if err != nil {
		return nil, fmt.Errorf("%w: read params: %w", ErrCheckpointCorrupt, err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckpointCorrupt, err)
	}
	info.Params = params

	entries, err := readEntries(ctx, db, params, &info)
	if err != nil {
		return nil, err
	}
	validated, err := validateEntries(params, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckpointCorrupt, err)
	}
	return &checkpoint{info: info, entries: validated}, nil
}

func readEntries(ctx context.Context, db *sql.DB, params fingerprint.Params, info *CheckpointInfo) ([]Entry, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT position, label, bands, frames, data, checksum FROM entries ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: read entries: %w", ErrCheckpointCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			ei   EntryInfo
			data []byte
			sum  int64
		)
		if err := rows.Scan(&ei.Position, &ei.Label, &ei.Bands, &ei.Frames, &data, &sum); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", ErrCheckpointCorrupt, err)
		}
		if ei.Position != len(entries) {
			return nil, fmt.Errorf("%w: entry position %d, expected %d", ErrCheckpointCorrupt, ei.Position, len(entries))
		}
		if ei.Bands != params.PartitionSize {
			return nil, fmt.Errorf("%w: entry %q has %d bands, partition size is %d",
				ErrCheckpointCorrupt, ei.Label, ei.Bands, params.PartitionSize)
		}
		if ei.Frames < 0 || len(data) != ei.Bands*ei.Frames*checkpointIntWidth/8 {
			return nil, fmt.Errorf("%w: entry %q holds %d bytes for shape (%d, %d)",
				ErrCheckpointCorrupt, ei.Label, len(data), ei.Bands, ei.Frames)
		}
		if checksum(data) != sum {
			return nil, fmt.Errorf("%w: entry %q checksum mismatch", ErrCheckpointCorrupt, ei.Label)
		}
		fp, err := fingerprint.NewFingerprint(params, ei.Bands, ei.Frames, decodeValues(data))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrCheckpointCorrupt, ei.Label, err)
		}
		entries = append(entries, Entry{Label: ei.Label, Fingerprint: fp})
		info.Entries = append(info.Entries, ei)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read entries: %w", ErrCheckpointCorrupt, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrCheckpointCorrupt)
	}
	return entries, nil
}
