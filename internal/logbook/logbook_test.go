package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ACME.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := book.Info("entry-%d", i); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
	all, _ := book.Tail(0)
	if len(all) != 5 {
		t.Fatalf("Tail(0) returned %d lines, want 5", len(all))
	}
}

func TestTailMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "none.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	lines, total := book.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v (%d)", lines, total)
	}
}

func TestAppendFlattensMultilineMessages(t *testing.T) {
	book, _ := New(filepath.Join(t.TempDir(), "ACME.log"))
	book.now = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }
	if err := book.Warn("set Goals.Summary:\n  two\nlines"); err != nil {
		t.Fatalf("append: %v", err)
	}
	lines, _ := book.Tail(1)
	want := "2026-10-19T08:30:00Z WARN  set Goals.Summary: two lines"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestShelfReusesBooksPerCode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	shelf := NewShelf(dir)
	first, err := shelf.Book("ACME")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	second, _ := shelf.Book("ACME")
	if first != second {
		t.Fatalf("expected the same logbook for one code")
	}
	if err := first.Info("created"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ACME.log")); err != nil {
		t.Fatalf("history file missing: %v", err)
	}
	other, _ := shelf.Book("OTHER")
	if lines, _ := other.Tail(5); len(lines) != 0 {
		t.Fatalf("codes must not share history: %v", lines)
	}
}
