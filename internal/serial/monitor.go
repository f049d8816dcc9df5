package serial

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// OpenFunc opens a port at the given baud rate.
type OpenFunc func(path string, baudRate int) (io.ReadWriteCloser, error)

func openPort(path string, baudRate int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(path, mode)
}

// Monitor reads from one board's serial port and can copy the stream to a
// session log.
type Monitor struct {
	open OpenFunc
	log  zerolog.Logger

	mu       sync.Mutex
	port     io.ReadWriteCloser
	portName string
	baudRate int
	running  bool
	record   io.Writer
	dataCh   chan string
	done     chan struct{}
}

// NewMonitor returns a monitor that opens host serial ports.
func NewMonitor(log zerolog.Logger) *Monitor {
	return NewMonitorWith(openPort, log)
}

// NewMonitorWith returns a monitor using open to reach the port.
func NewMonitorWith(open OpenFunc, log zerolog.Logger) *Monitor {
	return &Monitor{
		open:   open,
		log:    log,
		dataCh: make(chan string, 64),
		done:   make(chan struct{}),
	}
}

// Connect opens portName, replacing any current connection.
func (m *Monitor) Connect(portName string, baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.disconnectLocked()
	}

	port, err := m.open(portName, baudRate)
	if err != nil {
		return fmt.Errorf("open %s: %w", portName, err)
	}

	m.port = port
	m.portName = portName
	m.baudRate = baudRate
	m.running = true
	m.done = make(chan struct{})

	m.log.Info().Str("port", portName).Int("baud", baudRate).Msg("Serial monitor connected")
	go m.readLoop(port, m.done)
	return nil
}

// Record copies everything received from now on to w. Pass nil to stop.
func (m *Monitor) Record(w io.Writer) {
	m.mu.Lock()
	m.record = w
	m.mu.Unlock()
}

// Disconnect closes the port.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
}

func (m *Monitor) disconnectLocked() {
	if !m.running {
		return
	}
	m.running = false
	if m.port != nil {
		m.port.Close()
	}
	close(m.done)
	m.log.Info().Str("port", m.portName).Msg("Serial monitor disconnected")
}

// Write sends data to the board.
func (m *Monitor) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil || !m.running {
		return io.ErrClosedPipe
	}
	_, err := m.port.Write(data)
	return err
}

// DataChan returns the channel that receives serial data.
func (m *Monitor) DataChan() <-chan string {
	return m.dataCh
}

// Connected reports whether a port is open.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// PortName returns the current or last port.
func (m *Monitor) PortName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portName
}

func (m *Monitor) readLoop(port io.ReadWriteCloser, done chan struct{}) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			m.mu.Lock()
			if m.running && m.port == port {
				m.log.Warn().Err(err).Str("port", m.portName).Msg("Serial read ended")
				m.disconnectLocked()
			}
			m.mu.Unlock()
			return
		}
		if n == 0 {
			continue
		}
		chunk := string(buf[:n])

		m.mu.Lock()
		if w := m.record; w != nil {
			if _, err := io.WriteString(w, chunk); err != nil {
				m.log.Warn().Err(err).Msg("Session log write failed")
				m.record = nil
			}
		}
		m.mu.Unlock()

		select {
		case m.dataCh <- chunk:
		default:
			// full
		}
	}
}
