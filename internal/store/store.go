package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultLimit is the number of records kept per history file.
const DefaultLimit = 500

const (
	compilesFile   = "compiles.json"
	uploadsFile    = "uploads.json"
	installsFile   = "installs.json"
	serialLogsFile = "serial_logs.json"
)

// Store keeps an append-only history of compile, upload and install
// attempts plus serial monitor sessions. Each kind lives in its own JSON
// file under <root>/history; the oldest records are dropped past Limit.
type Store struct {
	root  string
	Limit int
	mu    sync.Mutex
}

// New creates a Store rooted at dir, usually the project's .boardbridge
// directory.
func New(dir string) *Store {
	return &Store{root: dir, Limit: DefaultLimit}
}

func (s *Store) AddCompile(r CompileRecord) error { return add(s, compilesFile, r) }

func (s *Store) AddUpload(r UploadRecord) error { return add(s, uploadsFile, r) }

func (s *Store) AddInstall(r InstallRecord) error { return add(s, installsFile, r) }

func (s *Store) AddSerialLog(r SerialLog) error { return add(s, serialLogsFile, r) }

// Compiles returns compile records, oldest first.
func (s *Store) Compiles() ([]CompileRecord, error) { return list[CompileRecord](s, compilesFile) }

// Uploads returns upload records, oldest first.
func (s *Store) Uploads() ([]UploadRecord, error) { return list[UploadRecord](s, uploadsFile) }

// Installs returns install records, oldest first.
func (s *Store) Installs() ([]InstallRecord, error) { return list[InstallRecord](s, installsFile) }

// SerialLogs returns recorded monitor sessions, oldest first.
func (s *Store) SerialLogs() ([]SerialLog, error) { return list[SerialLog](s, serialLogsFile) }

// LogsDir returns the directory for serial session logs, creating it if
// needed.
func (s *Store) LogsDir() (string, error) {
	dir := filepath.Join(s.root, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, "history", name)
}

func list[T any](s *Store, name string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []T
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("history file %s is corrupt: %w", name, err)
	}
	return records, nil
}

// add appends record to the named file. A file that does not parse is left
// untouched and reported.
func add[T any](s *Store, name string, record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var records []json.RawMessage
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("history file %s is corrupt: %w", name, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	records = append(records, raw)
	if s.Limit > 0 && len(records) > s.Limit {
		records = records[len(records)-s.Limit:]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
