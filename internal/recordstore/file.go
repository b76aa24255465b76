package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
)

const fileBackend = "file"

// FileStore keeps one collection as a JSON array in <dir>/<name>.json.
// Every write replaces the whole file through a temp file and rename, and the
// in-memory committed snapshot is swapped only once the rename has succeeded.
type FileStore[T Record[T]] struct {
	name string
	path string
	ids  crypto.IDGenerator
	log  *logger.Logger

	writeMu  sync.Mutex
	snapshot atomic.Pointer[[]T]

	write func(path string, data []byte) error
}

func OpenFileStore[T Record[T]](name, dir string, ids crypto.IDGenerator, log *logger.Logger) (*FileStore[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Collection: name, Op: "open", Err: fmt.Errorf("create data directory: %w", err)}
	}

	s := &FileStore[T]{
		name:  name,
		path:  filepath.Join(dir, name+".json"),
		ids:   ids,
		log:   log,
		write: writeFileAtomic,
	}

	removeStaleTempFiles(dir, name, log)

	records, err := s.readFile()
	if err != nil {
		return nil, &StorageError{Collection: name, Op: "open", Err: err}
	}
	if records == nil {
		records = make([]T, 0)
		if err := s.persist(records); err != nil {
			return nil, &StorageError{Collection: name, Op: "open", Err: err}
		}
	}

	s.snapshot.Store(&records)
	metrics.StoreRecords.WithLabelValues(fileBackend, name).Set(float64(len(records)))

	log.Infof("record store %s opened: path=%s records=%d", name, s.path, len(records))
	return s, nil
}

func (s *FileStore[T]) Name() string {
	return s.name
}

func (s *FileStore[T]) LoadAll(ctx context.Context) ([]T, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.current()
	observe(fileBackend, s.name, "load_all", start, nil)
	return out, nil
}

func (s *FileStore[T]) Append(ctx context.Context, rec T) (T, error) {
	return s.AppendUnless(ctx, rec, nil)
}

func (s *FileStore[T]) AppendUnless(ctx context.Context, rec T, conflicts Predicate[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(fileBackend, s.name, "append", start, err) }()

	if rec.RecordID() == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return out, &StorageError{Collection: s.name, Op: "append", Err: fmt.Errorf("generate id: %w", err)}
		}
		rec = rec.WithRecordID(id)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return out, err
	}

	records := s.current()
	if _, dup := FindFirst(records, ByID[T](rec.RecordID())); dup {
		return out, ErrConflict
	}
	if conflicts != nil {
		if _, found := FindFirst(records, conflicts); found {
			return out, ErrConflict
		}
	}

	next := append(records, rec)
	if err := s.commit(next); err != nil {
		return out, &StorageError{Collection: s.name, Op: "append", Err: err}
	}
	return rec, nil
}

func (s *FileStore[T]) UpdateWhere(ctx context.Context, match Predicate[T], mutate Mutator[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(fileBackend, s.name, "update", start, err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return out, err
	}

	records := s.current()
	idx, found := FindFirst(records, match)
	if !found {
		return out, ErrNotFound
	}

	original := records[idx]
	updated, err := mutate(original)
	if err != nil {
		return out, err
	}
	updated = updated.WithRecordID(original.RecordID())
	records[idx] = updated

	if err := s.commit(records); err != nil {
		return out, &StorageError{Collection: s.name, Op: "update", Err: err}
	}
	return updated, nil
}

func (s *FileStore[T]) DeleteWhere(ctx context.Context, match Predicate[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(fileBackend, s.name, "delete", start, err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return out, err
	}

	records := s.current()
	idx, found := FindFirst(records, match)
	if !found {
		return out, ErrNotFound
	}

	removed := records[idx]
	next := append(records[:idx:idx], records[idx+1:]...)

	if err := s.commit(next); err != nil {
		return out, &StorageError{Collection: s.name, Op: "delete", Err: err}
	}
	return removed, nil
}

// current returns a private copy of the committed snapshot.
func (s *FileStore[T]) current() []T {
	p := s.snapshot.Load()
	if p == nil {
		return make([]T, 0)
	}
	out := make([]T, len(*p))
	copy(out, *p)
	return out
}

// commit must be called with writeMu held.
func (s *FileStore[T]) commit(records []T) error {
	if err := s.persist(records); err != nil {
		s.log.WithFields(context.Background(), logger.Fields{
			"collection": s.name,
			"action":     "record_store_write_failed",
		}).Errorf("record store write failed: %v", err)
		return err
	}
	s.snapshot.Store(&records)
	metrics.StoreRecords.WithLabelValues(fileBackend, s.name).Set(float64(len(records)))
	return nil
}

func (s *FileStore[T]) persist(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	return s.write(s.path, append(data, '\n'))
}

// readFile returns nil records (and no error) when the collection file does not exist yet.
func (s *FileStore[T]) readFile() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}

	records := make([]T, 0)
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", s.path, err)
	}
	return records, nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs it
// and renames it over destPath, then syncs the directory entry.
func writeFileAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func removeStaleTempFiles(dir, name string, log *logger.Logger) {
	matches, err := filepath.Glob(filepath.Join(dir, "."+name+".json.tmp-*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			log.Warnf("record store %s: failed to remove stale temp file %s: %v", name, m, err)
		}
	}
}
