package devicetest

import (
	"context"
	"testing"

	"github.com/buckleypaul/boardbridge/internal/device"
)

func TestSimulationsSatisfyContract(t *testing.T) {
	CheckContract(t, NewWeb())
	CheckContract(t, NewNative())

	noUpload := NewNative()
	noUpload.Caps.CanUpload = false
	CheckContract(t, noUpload)
}

func TestUploadReplaysProgressOnlyWhenSupported(t *testing.T) {
	a := NewNative()
	a.Progress = []device.ProgressEvent{
		{Stage: device.ProgressCompiling, Percent: 100},
		{Stage: device.ProgressUploading, Percent: 100},
	}

	var n int
	a.Upload(context.Background(), "p", "c", "b", func(device.ProgressEvent) { n++ })
	if n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}

	a.Caps.SupportsProgress = false
	n = 0
	a.Upload(context.Background(), "p", "c", "b", func(device.ProgressEvent) { n++ })
	if n != 0 {
		t.Fatalf("expected no events without progress support, got %d", n)
	}
	if a.Calls("Upload") != 2 {
		t.Fatalf("expected 2 upload calls, got %d", a.Calls("Upload"))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	a := NewNative()
	a.ExportProject(context.Background(), "blink", "content")
	content, ok := a.Exported("blink")
	if !ok {
		t.Fatal("expected exported project")
	}
	a.Import = &device.ProjectFile{Name: "blink", Content: content}
	file, err := a.ImportProject(context.Background())
	if err != nil || file.Content != "content" {
		t.Fatalf("unexpected import %+v, %v", file, err)
	}
}
