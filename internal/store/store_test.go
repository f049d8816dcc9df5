package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAddAndRetrieveUploads(t *testing.T) {
	s := New(t.TempDir())

	record := UploadRecord{
		Board:     "arduino:avr:uno",
		Port:      "/dev/ttyACM0",
		Platform:  "native",
		Timestamp: time.Now(),
		Success:   true,
		Duration:  "12.5s",
	}

	if err := s.AddUpload(record); err != nil {
		t.Fatalf("AddUpload failed: %v", err)
	}

	uploads, err := s.Uploads()
	if err != nil {
		t.Fatalf("Uploads failed: %v", err)
	}
	if len(uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploads))
	}
	if uploads[0].Port != "/dev/ttyACM0" {
		t.Errorf("expected port=/dev/ttyACM0, got=%s", uploads[0].Port)
	}
}

func TestAddMultipleRecords(t *testing.T) {
	s := New(t.TempDir())

	s.AddCompile(CompileRecord{Board: "arduino:avr:uno", Timestamp: time.Now(), Success: true, Duration: "5s"})
	s.AddCompile(CompileRecord{Board: "esp32:esp32:wroom", Timestamp: time.Now(), Success: false, Duration: "3s", Error: "missing core"})
	s.AddInstall(InstallRecord{CoreID: "esp32:esp32", Timestamp: time.Now(), Success: true, Duration: "40s"})

	compiles, _ := s.Compiles()
	if len(compiles) != 2 {
		t.Errorf("expected 2 compiles, got %d", len(compiles))
	}
	if compiles[1].Error != "missing core" {
		t.Errorf("expected error to round-trip, got %q", compiles[1].Error)
	}

	installs, _ := s.Installs()
	if len(installs) != 1 {
		t.Errorf("expected 1 install, got %d", len(installs))
	}
}

func TestEmptyStore(t *testing.T) {
	s := New(t.TempDir())

	uploads, err := s.Uploads()
	if err != nil {
		t.Fatalf("Uploads on empty store failed: %v", err)
	}
	if len(uploads) != 0 {
		t.Errorf("expected 0 uploads, got %d", len(uploads))
	}
}

func TestCorruptHistoryIsNotOverwritten(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	dir := filepath.Join(root, "history")
	os.MkdirAll(dir, 0o755)
	path := filepath.Join(dir, "installs.json")
	os.WriteFile(path, []byte("{broken"), 0o644)

	if err := s.AddInstall(InstallRecord{CoreID: "arduino:avr"}); err == nil {
		t.Fatal("expected error for corrupt history file")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{broken" {
		t.Fatalf("corrupt file was modified: %q", data)
	}
}

func TestLimitDropsOldest(t *testing.T) {
	s := New(t.TempDir())
	s.Limit = 3

	for i := 0; i < 5; i++ {
		if err := s.AddSerialLog(SerialLog{Port: "/dev/ttyACM0", BaudRate: 9600 * (i + 1)}); err != nil {
			t.Fatalf("AddSerialLog: %v", err)
		}
	}
	logs, err := s.SerialLogs()
	if err != nil {
		t.Fatalf("SerialLogs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(logs))
	}
	if logs[0].BaudRate != 9600*3 {
		t.Fatalf("expected oldest kept record to be the third, got %d", logs[0].BaudRate)
	}
}

func TestCorruptHistoryIsReported(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	dir := filepath.Join(root, "history")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "uploads.json"), []byte("[{"), 0o644)

	if _, err := s.Uploads(); err == nil {
		t.Fatal("expected error reading corrupt history")
	}
}

func TestLogsDirCreated(t *testing.T) {
	root := t.TempDir()
	dir, err := New(root).LogsDir()
	if err != nil {
		t.Fatalf("LogsDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to exist", dir)
	}
}
