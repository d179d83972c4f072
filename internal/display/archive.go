package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ArchiveExt is the file extension of archived snapshots.
const ArchiveExt = ".msgpack.zst"

// ArchiveSink writes every snapshot to its own zstd-compressed msgpack file.
type ArchiveSink struct {
	dir    string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewArchiveSink creates dir if needed and returns a sink writing into it.
func NewArchiveSink(dir string, logger zerolog.Logger) (*ArchiveSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &ArchiveSink{
		dir:    dir,
		logger: logger.With().Str("sink", "archive").Logger(),
	}, nil
}

// Deliver writes snap to <dir>/<taken UTC>_<cycle>.msgpack.zst.
func (a *ArchiveSink) Deliver(ctx context.Context, snap Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.dir, archiveName(snap))
	if err := writeArchive(path, snap); err != nil {
		return err
	}

	a.logger.Debug().Str("path", path).Int("count", snap.Count).Msg("Archived snapshot")
	return nil
}

// Close is a no-op; files are closed after each write.
func (a *ArchiveSink) Close() error {
	return nil
}

func archiveName(snap Snapshot) string {
	return snap.Taken.UTC().Format("20060102T150405Z") + "_" + snap.CycleID + ArchiveExt
}

func writeArchive(path string, snap Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if err := msgpack.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	return os.Rename(tmp, path)
}

// ReadArchive decodes a snapshot written by ArchiveSink.
func ReadArchive(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return Snapshot{}, err
	}
	defer zr.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return snap, nil
}
