// Package native implements the device adapter on top of the companion
// toolchain process.
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/companion"
	"github.com/buckleypaul/boardbridge/internal/device"
)

// Invoker issues companion commands and subscribes to companion events.
// *companion.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, cmd string, args, result any) error
	Listen(event string, fn companion.EventHandler) (unlisten func())
}

// Adapter is the full-capability adapter.
type Adapter struct {
	inv Invoker
	log zerolog.Logger
}

var _ device.Adapter = (*Adapter)(nil)

// New returns an Adapter issuing commands through inv.
func New(inv Invoker, log zerolog.Logger) *Adapter {
	return &Adapter{inv: inv, log: log}
}

func (a *Adapter) Platform() device.Platform { return device.PlatformNative }

func (a *Adapter) Capabilities() device.PlatformCapabilities {
	return device.PlatformCapabilities{
		CanListPorts:       true,
		CanUpload:          true,
		CanAutoDetectBoard: true,
		SupportsProgress:   true,
	}
}

// Close releases the underlying connection when it is closable.
func (a *Adapter) Close() error {
	if c, ok := a.inv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Adapter) ListPorts(ctx context.Context) []device.SerialPort {
	var wire []wirePort
	if err := a.inv.Invoke(ctx, cmdListPorts, nil, &wire); err != nil {
		a.log.Warn().Err(err).Msg("Listing ports failed")
		return nil
	}
	ports := make([]device.SerialPort, 0, len(wire))
	seen := make(map[string]bool, len(wire))
	for _, p := range wire {
		if seen[p.Path] {
			continue
		}
		seen[p.Path] = true
		ports = append(ports, p.toDevice())
	}
	return ports
}

func (a *Adapter) Compile(ctx context.Context, code, board string) device.UploadResult {
	var out json.RawMessage
	err := a.inv.Invoke(ctx, cmdCompileCode, compileArgs{Code: code, Board: board}, &out)
	if err != nil {
		msg := failureMessage(err, "Compilation failed")
		a.log.Info().Str("board", board).Str("error", msg).Msg("Compile failed")
		return device.Failed(device.StageCompile, msg)
	}
	return device.Succeeded(device.StageCompile, successMessage(out, "Compilation successful"))
}

func (a *Adapter) Upload(ctx context.Context, port, code, board string, onProgress device.ProgressFunc) device.UploadResult {
	if onProgress != nil && a.Capabilities().SupportsProgress {
		unlisten := a.inv.Listen(ProgressEvent, func(payload json.RawMessage) {
			var p wireProgress
			if err := json.Unmarshal(payload, &p); err != nil {
				a.log.Debug().Err(err).Msg("Dropping malformed progress event")
				return
			}
			onProgress(p.toDevice())
		})
		defer unlisten()
	}

	var res wireUploadResult
	err := a.inv.Invoke(ctx, cmdUploadCode, uploadArgs{Port: port, Code: code, Board: board}, &res)
	if err != nil {
		msg := failureMessage(err, "Upload failed")
		a.log.Info().Str("board", board).Str("port", port).Str("error", msg).Msg("Upload failed")
		return device.Failed(device.StageUpload, msg)
	}
	return res.toDevice()
}

func (a *Adapter) ExportProject(ctx context.Context, name, content string) error {
	var saved bool
	if err := a.inv.Invoke(ctx, cmdSaveFileDialog, saveFileArgs{Name: name, Content: content}, &saved); err != nil {
		return fmt.Errorf("export project %q: %w", name, err)
	}
	if !saved {
		a.log.Debug().Str("name", name).Msg("Export cancelled by user")
	}
	return nil
}

func (a *Adapter) ImportProject(ctx context.Context) (*device.ProjectFile, error) {
	var file *wireProjectFile
	if err := a.inv.Invoke(ctx, cmdOpenFileDialog, nil, &file); err != nil {
		return nil, fmt.Errorf("import project: %w", err)
	}
	if file == nil {
		a.log.Debug().Msg("Import cancelled by user")
		return nil, nil
	}
	return &device.ProjectFile{Name: file.Name, Content: file.Content}, nil
}

func (a *Adapter) CheckArduinoCLI(ctx context.Context) bool {
	var ok bool
	if err := a.inv.Invoke(ctx, cmdCheckArduinoCLI, nil, &ok); err != nil {
		a.log.Debug().Err(err).Msg("arduino-cli check failed")
		return false
	}
	return ok
}

func (a *Adapter) ArduinoCLIVersion(ctx context.Context) (string, error) {
	var version string
	if err := a.inv.Invoke(ctx, cmdArduinoCLIVersion, nil, &version); err != nil {
		return "", fmt.Errorf("arduino-cli version: %w", err)
	}
	return version, nil
}

func (a *Adapter) ListInstalledCores(ctx context.Context) []device.CoreInfo {
	return a.cores(ctx, cmdListCores, nil)
}

func (a *Adapter) SearchCores(ctx context.Context, query string) []device.CoreInfo {
	return a.cores(ctx, cmdSearchCores, searchCoresArgs{Query: query})
}

func (a *Adapter) cores(ctx context.Context, cmd string, args any) []device.CoreInfo {
	var wire []wireCore
	if err := a.inv.Invoke(ctx, cmd, args, &wire); err != nil {
		a.log.Debug().Err(err).Str("cmd", cmd).Msg("Core listing unavailable")
		return nil
	}
	cores := make([]device.CoreInfo, 0, len(wire))
	for _, c := range wire {
		cores = append(cores, c.toDevice())
	}
	return cores
}

func (a *Adapter) ListInstalledBoards(ctx context.Context) []device.BoardInfo {
	var wire []wireBoard
	if err := a.inv.Invoke(ctx, cmdListBoards, nil, &wire); err != nil {
		a.log.Debug().Err(err).Msg("Board listing unavailable")
		return nil
	}
	boards := make([]device.BoardInfo, 0, len(wire))
	for _, b := range wire {
		boards = append(boards, device.BoardInfo{Name: b.Name, FQBN: b.FQBN})
	}
	return boards
}

func (a *Adapter) CheckCoreStatus(ctx context.Context, fqbn string) device.CoreStatus {
	status := device.CoreStatus{CoreID: device.CoreIDFromFQBN(fqbn)}

	var wire wireCoreStatus
	if err := a.inv.Invoke(ctx, cmdCheckCoreStatus, coreStatusArgs{BoardFQBN: fqbn}, &wire); err != nil {
		a.log.Debug().Err(err).Str("fqbn", fqbn).Msg("Core status unavailable")
		return status
	}
	if wire.CoreID != "" && wire.CoreID != status.CoreID {
		a.log.Warn().Str("fqbn", fqbn).Str("remote", wire.CoreID).Str("local", status.CoreID).
			Msg("Companion derived a different core id")
	}
	status.Installed = wire.Installed
	status.Bundled = wire.Bundled
	return status
}

func (a *Adapter) InstallCore(ctx context.Context, coreID string) (string, error) {
	var out string
	if err := a.inv.Invoke(ctx, cmdInstallCore, installCoreArgs{CoreID: coreID}, &out); err != nil {
		return "", fmt.Errorf("install %s: %w", coreID, err)
	}
	return out, nil
}

func (a *Adapter) BundledCores(ctx context.Context) []string {
	var ids []string
	if err := a.inv.Invoke(ctx, cmdBundledCores, nil, &ids); err != nil {
		a.log.Debug().Err(err).Msg("Bundled core listing unavailable")
		return nil
	}
	return ids
}

// failureMessage normalizes a failed call. Values reported by the companion
// go through device.ErrorMessage; transport errors use their own text. def
// is used when the normalized text is empty.
func failureMessage(err error, def string) string {
	var msg string
	var remote *companion.RemoteError
	if errors.As(err, &remote) {
		msg = device.ErrorMessage(remote.Decoded())
	} else {
		msg = device.ErrorMessage(err)
	}
	if strings.TrimSpace(msg) == "" {
		return def
	}
	return msg
}

// successMessage renders an opaque success value, falling back to def when
// it is empty.
func successMessage(raw json.RawMessage, def string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	if msg := device.ErrorMessage(device.DecodeErrorValue(raw)); msg != "" {
		return msg
	}
	return def
}
