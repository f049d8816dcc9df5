package serial

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/buckleypaul/boardbridge/internal/logger"
)

// pipePort is a fake board: bytes written to board appear on the port.
type pipePort struct {
	r     *io.PipeReader
	board *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, board: w}
}

func (p *pipePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *pipePort) Close() error { return p.r.Close() }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMonitorReceivesAndRecords(t *testing.T) {
	port := newPipePort()
	var gotPath string
	var gotBaud int
	m := NewMonitorWith(func(path string, baud int) (io.ReadWriteCloser, error) {
		gotPath, gotBaud = path, baud
		return port, nil
	}, logger.NewTestLogger())

	if err := m.Connect("/dev/ttyACM0", 9600); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer m.Disconnect()
	if gotPath != "/dev/ttyACM0" || gotBaud != 9600 {
		t.Fatalf("opened %q at %d", gotPath, gotBaud)
	}

	rec := &syncBuffer{}
	m.Record(rec)

	go port.board.Write([]byte("hello\n"))
	select {
	case data := <-m.DataChan():
		if data != "hello\n" {
			t.Fatalf("unexpected data %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no data received")
	}
	if rec.String() != "hello\n" {
		t.Fatalf("session log has %q", rec.String())
	}

	if err := m.Write([]byte("ping")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	port.mu.Lock()
	written := port.written.String()
	port.mu.Unlock()
	if written != "ping" {
		t.Fatalf("board received %q", written)
	}
}

func TestMonitorConnectError(t *testing.T) {
	m := NewMonitorWith(func(string, int) (io.ReadWriteCloser, error) {
		return nil, errors.New("permission denied")
	}, logger.NewTestLogger())

	if err := m.Connect("/dev/ttyACM0", 115200); err == nil {
		t.Fatal("expected error")
	}
	if m.Connected() {
		t.Fatal("must not be connected after a failed open")
	}
	if err := m.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected ErrClosedPipe, got %v", err)
	}
}

func TestMonitorDisconnectsWhenPortCloses(t *testing.T) {
	port := newPipePort()
	m := NewMonitorWith(func(string, int) (io.ReadWriteCloser, error) { return port, nil }, logger.NewTestLogger())
	if err := m.Connect("/dev/ttyUSB0", 115200); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	port.board.CloseWithError(errors.New("unplugged"))

	deadline := time.Now().Add(2 * time.Second)
	for m.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("monitor still connected after port closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if m.PortName() != "/dev/ttyUSB0" {
		t.Fatalf("unexpected port name %q", m.PortName())
	}
}
