package store

import "time"

// CompileRecord captures the result of a compile-only attempt.
type CompileRecord struct {
	Board     string    `json:"board"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// UploadRecord captures the result of a compile-and-upload attempt.
type UploadRecord struct {
	Board     string    `json:"board"`
	Port      string    `json:"port"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Stage     string    `json:"stage,omitempty"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// InstallRecord captures a board-support package install attempt.
type InstallRecord struct {
	CoreID    string    `json:"core_id"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Duration  string    `json:"duration"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// SerialLog tracks a serial monitor session.
type SerialLog struct {
	Port      string    `json:"port"`
	BaudRate  int       `json:"baud_rate"`
	Timestamp time.Time `json:"timestamp"`
	LogFile   string    `json:"log_file"`
}
