// Package device defines the contract every board/toolchain adapter
// implements, together with the value types and helpers shared by the
// standalone and native implementations.
package device

import (
	"context"
	"errors"
)

var (
	// ErrCoreInstallationUnsupported is returned by InstallCore on adapters
	// that have no toolchain to install into.
	ErrCoreInstallationUnsupported = errors.New("core installation is not supported on this platform")

	// ErrImportRead is returned when an imported file cannot be read as text.
	ErrImportRead = errors.New("could not read project file")

	// ErrUnsupported marks operations that have no meaning on the active platform.
	ErrUnsupported = errors.New("operation not supported on this platform")
)

// Adapter normalizes port discovery, compile, upload, core management and
// project import/export for one runtime context.
//
// Query methods never fail: they return empty or default values when the
// underlying call cannot be made. Compile and Upload report failure through
// the returned UploadResult. InstallCore is the only mutating operation that
// returns an error for a failed attempt.
type Adapter interface {
	Platform() Platform
	Capabilities() PlatformCapabilities

	ListPorts(ctx context.Context) []SerialPort
	Compile(ctx context.Context, code, board string) UploadResult
	// Upload compiles and flashes code. onProgress may be nil and is only
	// called when Capabilities().SupportsProgress is true.
	Upload(ctx context.Context, port, code, board string, onProgress ProgressFunc) UploadResult

	ExportProject(ctx context.Context, name, content string) error
	// ImportProject returns nil, nil when the user cancels.
	ImportProject(ctx context.Context) (*ProjectFile, error)

	CheckArduinoCLI(ctx context.Context) bool
	ArduinoCLIVersion(ctx context.Context) (string, error)
	ListInstalledCores(ctx context.Context) []CoreInfo
	ListInstalledBoards(ctx context.Context) []BoardInfo
	CheckCoreStatus(ctx context.Context, fqbn string) CoreStatus
	InstallCore(ctx context.Context, coreID string) (string, error)
	SearchCores(ctx context.Context, query string) []CoreInfo
	BundledCores(ctx context.Context) []string
}

// ManagesCores reports whether the adapter's platform offers core management.
func ManagesCores(a Adapter) bool {
	return a.Platform() != PlatformWeb
}
