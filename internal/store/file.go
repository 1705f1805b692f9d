package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kingrea/brief-maestro/internal/brief"
)

const documentExt = ".md"

const (
	lockPoll     = 10 * time.Millisecond
	lockWait     = 10 * time.Second
	staleLockAge = time.Minute
)

// ErrLocked reports that another writer held a brief for longer than the
// lock wait.
var ErrLocked = errors.New("store: brief is locked by another writer")

// FileBackend keeps one markdown document per brief. The YAML frontmatter
// carries the record and the body carries the rendered brief.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure briefs dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory holding the documents.
func (f *FileBackend) Dir() string {
	return f.dir
}

// Path returns the document path for a client code.
func (f *FileBackend) Path(code string) string {
	return filepath.Join(f.dir, code+documentExt)
}

// Insert writes a new document, failing when one already exists.
func (f *FileBackend) Insert(ctx context.Context, b *brief.Brief, rendered []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := writeDocument(recordFrom(b), rendered)
	if err != nil {
		return err
	}
	path := f.Path(b.Code)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return brief.ErrAlreadyExists
		}
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return file.Close()
}

// Load reads and decodes the document for code.
func (f *FileBackend) Load(ctx context.Context, code string) (*brief.Brief, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := f.Path(code)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, brief.ErrNotFound
		}
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	rec, _, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	if rec.Code != code {
		return nil, fmt.Errorf("store: %s: record code %s does not match %s", path, rec.Code, code)
	}
	return rec.toBrief()
}

// Update rewrites the document for code under its lock file. The new
// content replaces the old one atomically.
func (f *FileBackend) Update(ctx context.Context, code string, apply UpdateFunc) error {
	release, err := f.acquire(ctx, code)
	if err != nil {
		return err
	}
	defer release()

	b, err := f.Load(ctx, code)
	if err != nil {
		return err
	}
	rendered, err := apply(b)
	if err != nil {
		return err
	}
	return f.replace(b, rendered)
}

func (f *FileBackend) replace(b *brief.Brief, rendered []byte) error {
	path := f.Path(b.Code)
	content, err := writeDocument(recordFrom(b), rendered)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+b.Code+"-*.tmp")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", b.Code, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: replace %s: %w", path, err)
	}
	return nil
}

func (f *FileBackend) lockPath(code string) string {
	return filepath.Join(f.dir, "."+code+".lock")
}

// acquire creates the lock file for code, waiting while another writer
// holds it. A lock older than staleLockAge belongs to a writer that died
// and is broken.
func (f *FileBackend) acquire(ctx context.Context, code string) (func(), error) {
	path := f.lockPath(code)
	deadline := time.Now().Add(lockWait)
	for {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(file, "%d\n", os.Getpid())
			file.Close()
			return func() { os.Remove(path) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("store: lock %s: %w", code, err)
		}
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) > staleLockAge {
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, code)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPoll):
		}
	}
}

// List decodes every document's record, sorted by code.
func (f *FileBackend) List(ctx context.Context, includeArchived bool) ([]Summary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", f.dir, err)
	}
	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != documentExt {
			continue
		}
		b, err := f.Load(ctx, strings.TrimSuffix(name, documentExt))
		if err != nil {
			return nil, err
		}
		if b.Archived && !includeArchived {
			continue
		}
		out = append(out, Summary{Code: b.Code, Status: b.Status, Archived: b.Archived, UpdatedAt: b.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Close is a no-op for the file backend.
func (f *FileBackend) Close() error {
	return nil
}
