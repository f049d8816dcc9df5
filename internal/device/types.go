package device

// Platform identifies which runtime context an adapter serves.
type Platform string

const (
	// PlatformWeb has no companion process; only host-local features work.
	PlatformWeb Platform = "web"
	// PlatformNative drives a companion toolchain process.
	PlatformNative Platform = "native"
)

// SerialPort is a discoverable serial endpoint. Path is unique within one
// listing.
type SerialPort struct {
	Path         string
	Manufacturer string
	VendorID     string
	ProductID    string
}

// CoreInfo describes a board-support package. ID has the form
// vendor:architecture. An empty InstalledVersion means not installed.
type CoreInfo struct {
	ID               string
	Name             string
	InstalledVersion string
	LatestVersion    string
}

// Installed reports whether the core has an installed version.
func (c CoreInfo) Installed() bool {
	return c.InstalledVersion != ""
}

// BoardInfo is a concrete board exposed by an installed core.
type BoardInfo struct {
	Name string
	FQBN string
}

// CoreStatus is the resolved install state of the core owning a board.
type CoreStatus struct {
	CoreID    string
	Installed bool
	Bundled   bool
}

// PlatformCapabilities reports what an adapter can actually do. A false
// capability means the matching operation returns an empty or failed result.
type PlatformCapabilities struct {
	CanListPorts       bool
	CanUpload          bool
	CanAutoDetectBoard bool
	SupportsProgress   bool
}

// ResultStage names the step an UploadResult refers to.
type ResultStage string

const (
	StageCompile ResultStage = "compile"
	StageUpload  ResultStage = "upload"
)

// UploadResult is the outcome of a compile or upload attempt. Message is set
// on success and Error on failure, never both.
type UploadResult struct {
	Success bool
	Stage   ResultStage
	Message string
	Error   string
}

// Succeeded builds a successful result.
func Succeeded(stage ResultStage, message string) UploadResult {
	return UploadResult{Success: true, Stage: stage, Message: message}
}

// Failed builds a failed result.
func Failed(stage ResultStage, errMsg string) UploadResult {
	return UploadResult{Success: false, Stage: stage, Error: errMsg}
}

// ProgressStage is the stage reported by an in-flight upload.
type ProgressStage string

const (
	ProgressCompiling ProgressStage = "compiling"
	ProgressUploading ProgressStage = "uploading"
)

// ProgressEvent is a stage/percent update emitted during an upload.
type ProgressEvent struct {
	Stage   ProgressStage
	Percent int
	Message string
}

// ProgressFunc receives progress events synchronously.
type ProgressFunc func(ProgressEvent)

// ProjectFile is a named project document moved in or out by export/import.
type ProjectFile struct {
	Name    string
	Content string
}
