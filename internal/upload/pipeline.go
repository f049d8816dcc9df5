// Package upload drives the compile and upload sequence against a device
// adapter and reports a single two-stage progress value.
package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/store"
)

// State is the client-visible pipeline state.
type State string

const (
	Idle      State = "idle"
	Compiling State = "compiling"
	Uploading State = "uploading"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// ErrBusy is the failure reported when a run is already active.
var ErrBusy = errors.New("an upload is already in progress")

// Update is delivered to the caller on every state or percent change.
// Percent spans both stages: compiling covers 0-50, uploading 50-100.
type Update struct {
	State   State
	Percent int
	Message string
	Result  *device.UploadResult
}

// UpdateFunc receives pipeline updates.
type UpdateFunc func(Update)

// History records attempts. *store.Store satisfies it.
type History interface {
	AddCompile(r store.CompileRecord) error
	AddUpload(r store.UploadRecord) error
}

// Pipeline runs at most one compile or upload at a time.
type Pipeline struct {
	adapter device.Adapter
	history History
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	state   State
	percent int
}

// New returns a pipeline. A zero timeout disables the per-run deadline and
// history may be nil.
func New(adapter device.Adapter, history History, timeout time.Duration, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		adapter: adapter,
		history: history,
		timeout: timeout,
		log:     log,
		state:   Idle,
	}
}

// State returns the current state and overall percent.
func (p *Pipeline) State() (State, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.percent
}

func (p *Pipeline) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.state = Idle
	p.percent = 0
	return true
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Pipeline) set(state State, percent int) {
	p.mu.Lock()
	p.state = state
	p.percent = percent
	p.mu.Unlock()
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// timedOut reports whether run expired because of the pipeline's own
// timeout rather than the caller's context.
func (p *Pipeline) timedOut(parent, run context.Context) bool {
	return p.timeout > 0 && parent.Err() == nil && errors.Is(run.Err(), context.DeadlineExceeded)
}

// Run compiles and uploads code to board on port. It always returns exactly
// one result; a concurrent call fails immediately with ErrBusy's message.
// onUpdate may be nil.
func (p *Pipeline) Run(ctx context.Context, port, code, board string, onUpdate UpdateFunc) device.UploadResult {
	if !p.acquire() {
		return device.Failed(device.StageUpload, ErrBusy.Error())
	}
	defer p.release()

	runCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	s := newSink(p, onUpdate)
	defer s.deactivate()

	s.emit(Compiling, 0, "")

	start := time.Now()
	res := p.adapter.Upload(runCtx, port, code, board, s.progress)
	if !res.Success && p.timedOut(ctx, runCtx) {
		res = device.Failed(res.Stage, "timed out after "+p.timeout.String()+": "+res.Error)
	}
	s.finish(res)

	p.log.Info().
		Str("board", board).
		Str("port", port).
		Bool("success", res.Success).
		Str("stage", string(res.Stage)).
		Dur("took", time.Since(start)).
		Msg("Upload finished")

	p.recordUpload(port, board, start, res)
	return res
}

// Compile runs a compile-only attempt with the same bookkeeping as Run.
func (p *Pipeline) Compile(ctx context.Context, code, board string, onUpdate UpdateFunc) device.UploadResult {
	if !p.acquire() {
		return device.Failed(device.StageCompile, ErrBusy.Error())
	}
	defer p.release()

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	s := newSink(p, onUpdate)
	defer s.deactivate()

	s.emit(Compiling, 0, "")

	start := time.Now()
	res := p.adapter.Compile(ctx, code, board)
	s.finish(res)

	p.log.Info().Str("board", board).Bool("success", res.Success).Dur("took", time.Since(start)).Msg("Compile finished")
	p.recordCompile(board, start, res)
	return res
}

func (p *Pipeline) recordUpload(port, board string, start time.Time, res device.UploadResult) {
	if p.history == nil {
		return
	}
	err := p.history.AddUpload(store.UploadRecord{
		Board:     board,
		Port:      port,
		Platform:  string(p.adapter.Platform()),
		Timestamp: start,
		Success:   res.Success,
		Stage:     string(res.Stage),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Error:     res.Error,
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("Could not record upload")
	}
}

func (p *Pipeline) recordCompile(board string, start time.Time, res device.UploadResult) {
	if p.history == nil {
		return
	}
	err := p.history.AddCompile(store.CompileRecord{
		Board:     board,
		Platform:  string(p.adapter.Platform()),
		Timestamp: start,
		Success:   res.Success,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Error:     res.Error,
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("Could not record compile")
	}
}

// sink turns raw progress events into ordered updates for one run. After
// deactivate it ignores everything.
type sink struct {
	p        *Pipeline
	onUpdate UpdateFunc

	mu      sync.Mutex
	active  bool
	stage   State
	percent int
}

func newSink(p *Pipeline, onUpdate UpdateFunc) *sink {
	return &sink{p: p, onUpdate: onUpdate, active: true, stage: Idle}
}

func (s *sink) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// progress is the adapter callback.
func (s *sink) progress(ev device.ProgressEvent) {
	var state State
	switch ev.Stage {
	case device.ProgressCompiling:
		state = Compiling
	case device.ProgressUploading:
		state = Uploading
	default:
		s.p.log.Debug().Str("stage", string(ev.Stage)).Msg("Ignoring progress with unknown stage")
		return
	}
	s.emit(state, Overall(ev.Stage, ev.Percent), ev.Message)
}

func (s *sink) emit(state State, percent int, msg string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if rank(state) < rank(s.stage) || (state == s.stage && percent < s.percent) {
		s.mu.Unlock()
		s.p.log.Debug().Str("state", string(state)).Int("percent", percent).Msg("Dropping out-of-order progress")
		return
	}
	s.stage = state
	s.percent = percent
	s.mu.Unlock()

	s.p.set(state, percent)
	if s.onUpdate != nil {
		s.onUpdate(Update{State: state, Percent: percent, Message: msg})
	}
}

func (s *sink) finish(res device.UploadResult) {
	s.mu.Lock()
	percent := s.percent
	s.stage = Failed
	if res.Success {
		s.stage = Succeeded
		percent = 100
	}
	state := s.stage
	s.percent = percent
	s.mu.Unlock()

	s.p.set(state, percent)
	if s.onUpdate != nil {
		msg := res.Message
		if !res.Success {
			msg = res.Error
		}
		s.onUpdate(Update{State: state, Percent: percent, Message: msg, Result: &res})
	}
}

func rank(s State) int {
	switch s {
	case Compiling:
		return 1
	case Uploading:
		return 2
	case Succeeded, Failed:
		return 3
	}
	return 0
}

// Overall maps a stage-local percent onto the combined 0-100 scale.
func Overall(stage device.ProgressStage, percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if stage == device.ProgressUploading {
		return 50 + percent/2
	}
	return percent / 2
}
