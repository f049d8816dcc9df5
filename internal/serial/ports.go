package serial

import (
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// usbVendors maps USB vendor ids commonly found on maker boards to a
// manufacturer name. The enumerator only reports product strings.
var usbVendors = map[string]string{
	"2341": "Arduino",
	"2A03": "Arduino",
	"1A86": "WCH",
	"10C4": "Silicon Labs",
	"0403": "FTDI",
	"303A": "Espressif",
	"2E8A": "Raspberry Pi",
	"239A": "Adafruit",
	"1B4F": "SparkFun",
}

// EnumerateFunc returns the raw host port list.
type EnumerateFunc func() ([]*enumerator.PortDetails, error)

// Lister enumerates host serial ports.
type Lister struct {
	enumerate EnumerateFunc
}

// NewLister returns a Lister backed by the host enumerator.
func NewLister() *Lister {
	return &Lister{enumerate: enumerator.GetDetailedPortsList}
}

// NewListerWith returns a Lister backed by a custom enumeration function.
func NewListerWith(fn EnumerateFunc) *Lister {
	return &Lister{enumerate: fn}
}

// ListPorts returns available serial ports, one entry per path.
func (l *Lister) ListPorts() ([]device.SerialPort, error) {
	ports, err := l.enumerate()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ports))
	var result []device.SerialPort
	for _, p := range ports {
		if p == nil || p.Name == "" || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		sp := device.SerialPort{Path: p.Name}
		if p.IsUSB {
			sp.VendorID = strings.ToUpper(p.VID)
			sp.ProductID = strings.ToUpper(p.PID)
			sp.Manufacturer = usbVendors[sp.VendorID]
		}
		result = append(result, sp)
	}
	return result, nil
}
