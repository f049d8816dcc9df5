package upload

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/devicetest"
	"github.com/buckleypaul/boardbridge/internal/logger"
	"github.com/buckleypaul/boardbridge/internal/store"
)

type memHistory struct {
	mu       sync.Mutex
	uploads  []store.UploadRecord
	compiles []store.CompileRecord
}

func (h *memHistory) AddUpload(r store.UploadRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, r)
	return nil
}

func (h *memHistory) AddCompile(r store.CompileRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compiles = append(h.compiles, r)
	return nil
}

func collect(updates *[]Update) UpdateFunc {
	return func(u Update) { *updates = append(*updates, u) }
}

func TestRunReportsOrderedProgress(t *testing.T) {
	a := devicetest.NewNative()
	a.Progress = []device.ProgressEvent{
		{Stage: device.ProgressCompiling, Percent: 10},
		{Stage: device.ProgressCompiling, Percent: 100},
		{Stage: device.ProgressUploading, Percent: 40},
		{Stage: device.ProgressUploading, Percent: 100},
	}
	h := &memHistory{}
	p := New(a, h, 0, logger.NewTestLogger())

	var updates []Update
	res := p.Run(context.Background(), "/dev/ttyACM0", "void setup(){}", "arduino:avr:uno", collect(&updates))
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	want := []struct {
		state   State
		percent int
	}{
		{Compiling, 0},
		{Compiling, 5},
		{Compiling, 50},
		{Uploading, 70},
		{Uploading, 100},
		{Succeeded, 100},
	}
	if len(updates) != len(want) {
		t.Fatalf("expected %d updates, got %d: %+v", len(want), len(updates), updates)
	}
	for i, w := range want {
		if updates[i].State != w.state || updates[i].Percent != w.percent {
			t.Errorf("update %d = %s/%d, want %s/%d", i, updates[i].State, updates[i].Percent, w.state, w.percent)
		}
	}
	if updates[len(updates)-1].Result == nil {
		t.Fatal("final update must carry the result")
	}

	if s, pct := p.State(); s != Succeeded || pct != 100 {
		t.Fatalf("unexpected final state %s/%d", s, pct)
	}
	if len(h.uploads) != 1 || !h.uploads[0].Success || h.uploads[0].Platform != "native" {
		t.Fatalf("unexpected history %+v", h.uploads)
	}
}

func TestRunDropsOutOfOrderEvents(t *testing.T) {
	a := devicetest.NewNative()
	a.Progress = []device.ProgressEvent{
		{Stage: device.ProgressCompiling, Percent: 60},
		{Stage: device.ProgressCompiling, Percent: 20},
		{Stage: device.ProgressUploading, Percent: 10},
		{Stage: device.ProgressCompiling, Percent: 90},
		{Stage: "linking", Percent: 50},
		{Stage: device.ProgressUploading, Percent: 50},
	}
	p := New(a, nil, 0, logger.NewTestLogger())

	var updates []Update
	p.Run(context.Background(), "p", "c", "b", collect(&updates))

	last := -1
	sawUploading := false
	for _, u := range updates {
		if u.Percent < last {
			t.Fatalf("percent went backwards: %+v", updates)
		}
		last = u.Percent
		if u.State == Uploading {
			sawUploading = true
		}
		if sawUploading && u.State == Compiling {
			t.Fatalf("compiling after uploading: %+v", updates)
		}
	}
	// 0, 30, 55, 75, succeeded
	if len(updates) != 5 {
		t.Fatalf("expected 5 updates, got %+v", updates)
	}
}

func TestRunWithoutProgressSupport(t *testing.T) {
	a := devicetest.NewNative()
	a.Caps.SupportsProgress = false
	a.Progress = []device.ProgressEvent{{Stage: device.ProgressCompiling, Percent: 50}}
	p := New(a, nil, 0, logger.NewTestLogger())

	var updates []Update
	res := p.Run(context.Background(), "p", "c", "b", collect(&updates))
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(updates) != 2 || updates[0].State != Compiling || updates[1].State != Succeeded {
		t.Fatalf("unexpected updates %+v", updates)
	}
}

func TestRunFailureResult(t *testing.T) {
	a := devicetest.NewNative()
	a.UploadResult = device.Failed(device.StageCompile, "missing semicolon")
	a.Progress = []device.ProgressEvent{{Stage: device.ProgressCompiling, Percent: 40}}
	h := &memHistory{}
	p := New(a, h, 0, logger.NewTestLogger())

	var updates []Update
	res := p.Run(context.Background(), "p", "c", "b", collect(&updates))
	if res.Success || res.Stage != device.StageCompile {
		t.Fatalf("unexpected result %+v", res)
	}
	final := updates[len(updates)-1]
	if final.State != Failed || final.Percent != 20 || final.Message != "missing semicolon" {
		t.Fatalf("unexpected final update %+v", final)
	}
	if len(h.uploads) != 1 || h.uploads[0].Success || h.uploads[0].Stage != "compile" {
		t.Fatalf("unexpected history %+v", h.uploads)
	}
}

func TestLateEventsAreIgnored(t *testing.T) {
	a := devicetest.NewNative()
	var saved device.ProgressFunc
	a.UploadHook = func(ctx context.Context, onProgress device.ProgressFunc) device.UploadResult {
		saved = onProgress
		return device.Succeeded(device.StageUpload, "Upload complete")
	}
	p := New(a, nil, 0, logger.NewTestLogger())

	var updates []Update
	p.Run(context.Background(), "p", "c", "b", collect(&updates))
	n := len(updates)

	saved(device.ProgressEvent{Stage: device.ProgressUploading, Percent: 100})
	if len(updates) != n {
		t.Fatalf("late event delivered: %+v", updates)
	}
}

func TestConcurrentRunIsRejected(t *testing.T) {
	a := devicetest.NewNative()
	started := make(chan struct{})
	release := make(chan struct{})
	a.UploadHook = func(ctx context.Context, _ device.ProgressFunc) device.UploadResult {
		close(started)
		<-release
		return device.Succeeded(device.StageUpload, "Upload complete")
	}
	p := New(a, nil, 0, logger.NewTestLogger())

	done := make(chan device.UploadResult, 1)
	go func() { done <- p.Run(context.Background(), "p", "c", "b", nil) }()
	<-started

	res := p.Run(context.Background(), "p", "c", "b", nil)
	if res.Success || res.Error != ErrBusy.Error() {
		t.Fatalf("expected busy failure, got %+v", res)
	}
	if res := p.Compile(context.Background(), "c", "b", nil); res.Success {
		t.Fatalf("expected compile to be rejected while busy, got %+v", res)
	}

	close(release)
	if res := <-done; !res.Success {
		t.Fatalf("first run failed: %+v", res)
	}
	if a.Calls("Upload") != 1 || a.Calls("Compile") != 0 {
		t.Fatalf("unexpected adapter calls upload=%d compile=%d", a.Calls("Upload"), a.Calls("Compile"))
	}
}

func TestRunTimeout(t *testing.T) {
	a := devicetest.NewNative()
	a.UploadHook = func(ctx context.Context, _ device.ProgressFunc) device.UploadResult {
		<-ctx.Done()
		return device.Failed(device.StageUpload, ctx.Err().Error())
	}
	p := New(a, nil, 20*time.Millisecond, logger.NewTestLogger())

	res := p.Run(context.Background(), "p", "c", "b", nil)
	if res.Success || !strings.HasPrefix(res.Error, "timed out after 20ms") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCallerDeadlineIsNotLabelledAsTimeout(t *testing.T) {
	a := devicetest.NewNative()
	a.UploadHook = func(ctx context.Context, _ device.ProgressFunc) device.UploadResult {
		<-ctx.Done()
		return device.Failed(device.StageUpload, ctx.Err().Error())
	}

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"no pipeline timeout", 0},
		{"longer pipeline timeout", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(a, nil, tt.timeout, logger.NewTestLogger())
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			res := p.Run(ctx, "p", "c", "b", nil)
			if res.Success || strings.HasPrefix(res.Error, "timed out after") {
				t.Fatalf("unexpected result %+v", res)
			}
			if res.Error != context.DeadlineExceeded.Error() {
				t.Fatalf("expected the adapter's error, got %q", res.Error)
			}
		})
	}
}

func TestCompileRecordsHistory(t *testing.T) {
	a := devicetest.NewNative()
	h := &memHistory{}
	p := New(a, h, 0, logger.NewTestLogger())

	var updates []Update
	res := p.Compile(context.Background(), "c", "arduino:avr:uno", collect(&updates))
	if !res.Success || res.Message != "Compilation successful" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.compiles) != 1 || h.compiles[0].Board != "arduino:avr:uno" {
		t.Fatalf("unexpected history %+v", h.compiles)
	}
	if updates[len(updates)-1].State != Succeeded {
		t.Fatalf("unexpected updates %+v", updates)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		stage   device.ProgressStage
		percent int
		want    int
	}{
		{device.ProgressCompiling, 0, 0},
		{device.ProgressCompiling, 100, 50},
		{device.ProgressUploading, 0, 50},
		{device.ProgressUploading, 100, 100},
		{device.ProgressUploading, 150, 100},
		{device.ProgressCompiling, -5, 0},
	}
	for _, tt := range tests {
		if got := Overall(tt.stage, tt.percent); got != tt.want {
			t.Errorf("Overall(%s, %d) = %d, want %d", tt.stage, tt.percent, got, tt.want)
		}
	}
}
