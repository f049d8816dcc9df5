package native

import (
	"encoding/json"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// Command names understood by the companion process.
const (
	cmdListPorts         = "list_ports"
	cmdCompileCode       = "compile_code"
	cmdUploadCode        = "upload_code"
	cmdCheckArduinoCLI   = "check_arduino_cli"
	cmdArduinoCLIVersion = "get_arduino_cli_version"
	cmdListCores         = "list_installed_cores"
	cmdListBoards        = "list_installed_boards"
	cmdCheckCoreStatus   = "check_core_status"
	cmdInstallCore       = "install_core"
	cmdSearchCores       = "search_cores"
	cmdBundledCores      = "get_bundled_cores"
	cmdSaveFileDialog    = "save_file_dialog"
	cmdOpenFileDialog    = "open_file_dialog"

	// ProgressEvent is the event name carrying upload progress.
	ProgressEvent = "compile-progress"
)

// Arguments go out in camelCase; results come back in snake_case.

type compileArgs struct {
	Code  string `json:"code"`
	Board string `json:"board"`
}

type uploadArgs struct {
	Port  string `json:"port"`
	Code  string `json:"code"`
	Board string `json:"board"`
}

type coreStatusArgs struct {
	BoardFQBN string `json:"boardFqbn"`
}

type installCoreArgs struct {
	CoreID string `json:"coreId"`
}

type searchCoresArgs struct {
	Query string `json:"query"`
}

type saveFileArgs struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type wirePort struct {
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer"`
	VendorID     string `json:"vendor_id"`
	ProductID    string `json:"product_id"`
}

func (p wirePort) toDevice() device.SerialPort {
	return device.SerialPort{
		Path:         p.Path,
		Manufacturer: p.Manufacturer,
		VendorID:     p.VendorID,
		ProductID:    p.ProductID,
	}
}

type wireCore struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	InstalledVersion string `json:"installed_version"`
	LatestVersion    string `json:"latest_version"`
}

func (c wireCore) toDevice() device.CoreInfo {
	return device.CoreInfo{
		ID:               c.ID,
		Name:             c.Name,
		InstalledVersion: c.InstalledVersion,
		LatestVersion:    c.LatestVersion,
	}
}

type wireBoard struct {
	Name string `json:"name"`
	FQBN string `json:"fqbn"`
}

type wireCoreStatus struct {
	CoreID    string `json:"core_id"`
	Installed bool   `json:"installed"`
	Bundled   bool   `json:"bundled"`
}

type wireUploadResult struct {
	Success bool            `json:"success"`
	Stage   string          `json:"stage"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func (r wireUploadResult) toDevice() device.UploadResult {
	stage := device.ResultStage(r.Stage)
	if r.Success {
		msg := r.Message
		if msg == "" {
			msg = "Upload complete"
		}
		return device.Succeeded(stage, msg)
	}
	if stage == "" {
		stage = device.StageUpload
	}
	errMsg := ""
	if len(r.Error) > 0 && string(r.Error) != "null" {
		errMsg = device.ErrorMessage(device.DecodeErrorValue(r.Error))
	}
	if errMsg == "" {
		errMsg = r.Message
	}
	if errMsg == "" {
		errMsg = "Upload failed"
	}
	return device.Failed(stage, errMsg)
}

type wireProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

func (p wireProgress) toDevice() device.ProgressEvent {
	pct := int(p.Percent)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return device.ProgressEvent{
		Stage:   device.ProgressStage(p.Stage),
		Percent: pct,
		Message: p.Message,
	}
}

type wireProjectFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
