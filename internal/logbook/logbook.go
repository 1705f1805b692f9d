// Package logbook keeps a plain-text change history for each brief.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends timestamped entries to a single text file.
type Logbook struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message = strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		message,
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("logbook: append %s: %w", l.path, err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries along with the
// total number of entries on file. maxLines <= 0 returns every entry.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if maxLines > 0 && total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) error {
	return l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) error {
	return l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) error {
	return l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Shelf hands out one logbook per client code, all under one directory.
type Shelf struct {
	dir   string
	now   func() time.Time
	mu    sync.Mutex
	books map[string]*Logbook
}

// NewShelf creates a shelf rooted at dir. The directory is created lazily.
func NewShelf(dir string) *Shelf {
	return &Shelf{dir: dir, now: time.Now, books: make(map[string]*Logbook)}
}

// WithClock overrides the clock stamped on new entries.
func (s *Shelf) WithClock(clock func() time.Time) *Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = clock
	for _, book := range s.books {
		book.now = clock
	}
	return s
}

// Dir returns the shelf's directory.
func (s *Shelf) Dir() string {
	return s.dir
}

// Book returns the logbook for code, creating it on first use.
func (s *Shelf) Book(code string) (*Logbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if book, ok := s.books[code]; ok {
		return book, nil
	}
	book, err := New(filepath.Join(s.dir, code+".log"))
	if err != nil {
		return nil, err
	}
	book.now = s.now
	s.books[code] = book
	return book, nil
}
