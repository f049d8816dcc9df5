// Package devicetest provides a scriptable in-memory device.Adapter for
// tests of code built on top of the adapter contract.
package devicetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// Adapter simulates a board toolchain. Exported fields may be set before
// use; hooks, when non-nil, take precedence over the static values.
type Adapter struct {
	PlatformValue device.Platform
	Caps          device.PlatformCapabilities

	Ports        []device.SerialPort
	CLIAvailable bool
	CLIVersion   string
	VersionErr   error
	Cores        []device.CoreInfo
	Boards       []device.BoardInfo
	Bundled      []string
	SearchResult []device.CoreInfo
	Statuses     map[string]device.CoreStatus

	CompileResult device.UploadResult
	UploadResult  device.UploadResult
	// Progress is replayed to the upload callback before UploadResult is
	// returned, when Caps.SupportsProgress is set.
	Progress []device.ProgressEvent

	InstallHook func(ctx context.Context, coreID string) (string, error)
	UploadHook  func(ctx context.Context, onProgress device.ProgressFunc) device.UploadResult

	// Import is returned by ImportProject; nil simulates a cancelled chooser.
	Import *device.ProjectFile

	mu       sync.Mutex
	calls    map[string]int
	exported map[string]string
}

var _ device.Adapter = (*Adapter)(nil)

// NewNative returns a simulation of a fully capable companion.
func NewNative() *Adapter {
	return &Adapter{
		PlatformValue: device.PlatformNative,
		Caps: device.PlatformCapabilities{
			CanListPorts:       true,
			CanUpload:          true,
			CanAutoDetectBoard: true,
			SupportsProgress:   true,
		},
		CLIAvailable:  true,
		CLIVersion:    "1.0.4",
		CompileResult: device.Succeeded(device.StageCompile, "Compilation successful"),
		UploadResult:  device.Succeeded(device.StageUpload, "Upload complete"),
	}
}

// NewWeb returns a simulation of a host without a companion.
func NewWeb() *Adapter {
	return &Adapter{
		PlatformValue: device.PlatformWeb,
		CompileResult: device.Failed(device.StageCompile, "compile unavailable"),
		UploadResult:  device.Failed(device.StageUpload, "upload unavailable"),
	}
}

// Calls reports how often the named method was invoked.
func (a *Adapter) Calls(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

// Exported returns the content last exported under name.
func (a *Adapter) Exported(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	content, ok := a.exported[name]
	return content, ok
}

func (a *Adapter) record(method string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[method]++
}

func (a *Adapter) Platform() device.Platform { return a.PlatformValue }

func (a *Adapter) Capabilities() device.PlatformCapabilities { return a.Caps }

func (a *Adapter) ListPorts(context.Context) []device.SerialPort {
	a.record("ListPorts")
	if !a.Caps.CanListPorts {
		return nil
	}
	return a.Ports
}

func (a *Adapter) Compile(context.Context, string, string) device.UploadResult {
	a.record("Compile")
	return a.CompileResult
}

func (a *Adapter) Upload(ctx context.Context, _, _, _ string, onProgress device.ProgressFunc) device.UploadResult {
	a.record("Upload")
	if !a.Caps.SupportsProgress {
		onProgress = nil
	}
	if a.UploadHook != nil {
		return a.UploadHook(ctx, onProgress)
	}
	if onProgress != nil {
		for _, ev := range a.Progress {
			onProgress(ev)
		}
	}
	if !a.Caps.CanUpload {
		return device.Failed(device.StageUpload, "upload unavailable")
	}
	return a.UploadResult
}

func (a *Adapter) ExportProject(_ context.Context, name, content string) error {
	a.record("ExportProject")
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.exported == nil {
		a.exported = make(map[string]string)
	}
	a.exported[name] = content
	return nil
}

func (a *Adapter) ImportProject(context.Context) (*device.ProjectFile, error) {
	a.record("ImportProject")
	return a.Import, nil
}

func (a *Adapter) CheckArduinoCLI(context.Context) bool {
	a.record("CheckArduinoCLI")
	return a.CLIAvailable
}

func (a *Adapter) ArduinoCLIVersion(context.Context) (string, error) {
	a.record("ArduinoCLIVersion")
	if a.VersionErr != nil {
		return "", a.VersionErr
	}
	return a.CLIVersion, nil
}

func (a *Adapter) ListInstalledCores(context.Context) []device.CoreInfo {
	a.record("ListInstalledCores")
	return a.Cores
}

func (a *Adapter) ListInstalledBoards(context.Context) []device.BoardInfo {
	a.record("ListInstalledBoards")
	return a.Boards
}

func (a *Adapter) CheckCoreStatus(_ context.Context, fqbn string) device.CoreStatus {
	a.record("CheckCoreStatus")
	if s, ok := a.Statuses[fqbn]; ok {
		return s
	}
	if a.PlatformValue == device.PlatformWeb {
		return device.CoreStatus{}
	}
	return device.CoreStatus{CoreID: device.CoreIDFromFQBN(fqbn)}
}

func (a *Adapter) InstallCore(ctx context.Context, coreID string) (string, error) {
	a.record("InstallCore")
	if a.InstallHook != nil {
		return a.InstallHook(ctx, coreID)
	}
	if a.PlatformValue == device.PlatformWeb {
		return "", fmt.Errorf("install %s: %w", coreID, device.ErrCoreInstallationUnsupported)
	}
	return "installed " + coreID, nil
}

func (a *Adapter) SearchCores(context.Context, string) []device.CoreInfo {
	a.record("SearchCores")
	return a.SearchResult
}

func (a *Adapter) BundledCores(context.Context) []string {
	a.record("BundledCores")
	return a.Bundled
}
