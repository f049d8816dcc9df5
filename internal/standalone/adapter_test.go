package standalone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/devicetest"
	"github.com/buckleypaul/boardbridge/internal/logger"
)

type fakeLister struct {
	ports []device.SerialPort
	err   error
}

func (f fakeLister) ListPorts() ([]device.SerialPort, error) { return f.ports, f.err }

// fakeChooser returns the next path; an empty path simulates cancel.
type fakeChooser struct {
	path string
	err  error
}

func (f *fakeChooser) ChooseFile(context.Context) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	return f.path, f.path != "", nil
}

func TestCapabilitiesFollowPortLister(t *testing.T) {
	a := New(Options{}, logger.NewTestLogger())
	caps := a.Capabilities()
	if caps.CanListPorts || caps.CanUpload || caps.CanAutoDetectBoard || caps.SupportsProgress {
		t.Fatalf("expected no capabilities, got %+v", caps)
	}
	if ports := a.ListPorts(context.Background()); ports != nil {
		t.Fatalf("expected no ports, got %v", ports)
	}

	withPorts := New(Options{Ports: fakeLister{ports: []device.SerialPort{{Path: "/dev/ttyACM0"}}}}, logger.NewTestLogger())
	if !withPorts.Capabilities().CanListPorts {
		t.Fatal("expected CanListPorts with a lister")
	}
	if ports := withPorts.ListPorts(context.Background()); len(ports) != 1 {
		t.Fatalf("expected 1 port, got %v", ports)
	}
}

func TestListPortsSwallowsEnumerationError(t *testing.T) {
	a := New(Options{Ports: fakeLister{err: errors.New("denied")}}, logger.NewTestLogger())
	if ports := a.ListPorts(context.Background()); len(ports) != 0 {
		t.Fatalf("expected empty list, got %v", ports)
	}
}

func TestCompileAndUploadFailWithoutPanicking(t *testing.T) {
	a := New(Options{}, logger.NewTestLogger())
	if a.Capabilities().CanUpload {
		t.Fatal("standalone adapter must not claim upload")
	}

	called := false
	res := a.Upload(context.Background(), "/dev/ttyACM0", "code", "arduino:avr:uno", func(device.ProgressEvent) { called = true })
	if res.Success || res.Error == "" || res.Message != "" {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if called {
		t.Fatal("progress must not fire without SupportsProgress")
	}

	res = a.Compile(context.Background(), "code", "arduino:avr:uno")
	if res.Success || res.Stage != device.StageCompile || res.Error == "" {
		t.Fatalf("unexpected compile result %+v", res)
	}
}

func TestCoreManagementDefaults(t *testing.T) {
	a := New(Options{}, logger.NewTestLogger())
	ctx := context.Background()

	if a.CheckArduinoCLI(ctx) {
		t.Fatal("expected no arduino-cli")
	}
	if v, err := a.ArduinoCLIVersion(ctx); err != nil || v != CLIUnavailable {
		t.Fatalf("unexpected version %q, %v", v, err)
	}
	if a.ListInstalledCores(ctx) != nil || a.ListInstalledBoards(ctx) != nil || a.SearchCores(ctx, "avr") != nil || a.BundledCores(ctx) != nil {
		t.Fatal("expected empty core listings")
	}
	if status := a.CheckCoreStatus(ctx, "arduino:avr:uno"); status != (device.CoreStatus{}) {
		t.Fatalf("expected zero status, got %+v", status)
	}
	if _, err := a.InstallCore(ctx, "arduino:avr"); !errors.Is(err, device.ErrCoreInstallationUnsupported) {
		t.Fatalf("expected ErrCoreInstallationUnsupported, got %v", err)
	}
}

func TestImportCancelReturnsNil(t *testing.T) {
	a := New(Options{Chooser: &fakeChooser{}}, logger.NewTestLogger())
	file, err := a.ImportProject(context.Background())
	if err != nil || file != nil {
		t.Fatalf("expected nil, nil on cancel; got %v, %v", file, err)
	}
}

func TestImportRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firmware.bin")
	os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644)

	a := New(Options{Chooser: &fakeChooser{path: path}}, logger.NewTestLogger())
	_, err := a.ImportProject(context.Background())
	if !errors.Is(err, device.ErrImportRead) {
		t.Fatalf("expected ErrImportRead, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := "{\"blocks\":[{\"type\":\"led_on\"}],\"note\":\"héllo\"}\n"
	chooser := &fakeChooser{}
	a := New(Options{Chooser: chooser, ExportDir: dir}, logger.NewTestLogger())

	if err := a.ExportProject(context.Background(), "Blink", content); err != nil {
		t.Fatalf("ExportProject failed: %v", err)
	}

	chooser.path = filepath.Join(dir, "Blink.json")
	file, err := a.ImportProject(context.Background())
	if err != nil {
		t.Fatalf("ImportProject failed: %v", err)
	}
	if file.Content != content {
		t.Fatalf("content changed in round trip: %q", file.Content)
	}
	if file.Name != "Blink.json" {
		t.Fatalf("unexpected name %q", file.Name)
	}
}

func TestExportDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	a := New(Options{ExportDir: dir}, logger.NewTestLogger())

	a.ExportProject(context.Background(), "blink.json", "first")
	a.ExportProject(context.Background(), "blink.json", "second")

	first, _ := os.ReadFile(filepath.Join(dir, "blink.json"))
	second, _ := os.ReadFile(filepath.Join(dir, "blink (1).json"))
	if string(first) != "first" || string(second) != "second" {
		t.Fatalf("unexpected contents %q / %q", first, second)
	}
}

func TestExportFileName(t *testing.T) {
	tests := map[string]string{
		"Blink":          "Blink.json",
		"a/b:c":          "a_b_c.json",
		"  ":             "project.json",
		"traffic.blocks": "traffic.blocks",
		"..":             "project.json",
	}
	for in, want := range tests {
		if got := exportFileName(in); got != want {
			t.Errorf("exportFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSatisfiesContract(t *testing.T) {
	devicetest.CheckContract(t, New(Options{}, logger.NewTestLogger()))
	devicetest.CheckContract(t, New(Options{Ports: fakeLister{}}, logger.NewTestLogger()))
}
