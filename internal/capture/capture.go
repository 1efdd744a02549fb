package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Entry records one uploaded capture so a ledger row can be traced back to
// the image on disk.
type Entry struct {
	OrderID    string    `json:"order_id"`
	File       string    `json:"file"`
	Link       string    `json:"link"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Log is a JSON manifest of uploaded captures, keyed by file name. Every
// change is written straight back to disk; a crash mid-run loses at most the
// entry being written.
type Log struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	filename string
}

func Open(filename string) (*Log, error) {
	l := &Log{
		entries:  make(map[string]*Entry),
		filename: filename,
	}

	// Load existing data if file exists
	if err := l.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return l, nil
}

func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.File == "" {
		return fmt.Errorf("capture file name is required")
	}

	if entry.UploadedAt.IsZero() {
		entry.UploadedAt = time.Now()
	}

	l.entries[entry.File] = &entry
	return l.save()
}

func (l *Log) Get(file string) (*Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, exists := l.entries[file]
	return entry, exists
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

func (l *Log) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity
	tmpFile := l.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	// Rename to actual file
	return os.Rename(tmpFile, l.filename)
}

func (l *Log) load() error {
	data, err := os.ReadFile(l.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &l.entries)
}
