// Package standalone implements the device adapter for hosts without a
// companion toolchain process. Only host-local features are available:
// optional serial enumeration and project files on disk.
package standalone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/device"
)

const (
	compileUnavailable = "Compiling requires the desktop companion app; it is not running."
	uploadUnavailable  = "Uploading to a board requires the desktop companion app; it is not running."
	// CLIUnavailable is reported as the arduino-cli version.
	CLIUnavailable = "not available"

	defaultExt = ".json"
)

// PortLister enumerates host serial ports.
type PortLister interface {
	ListPorts() ([]device.SerialPort, error)
}

// FileChooser asks the user to pick a file. ok is false when the user
// cancels.
type FileChooser interface {
	ChooseFile(ctx context.Context) (path string, ok bool, err error)
}

// Options configures an Adapter. Nil Ports disables port listing; nil
// Chooser makes every import a cancellation.
type Options struct {
	Ports     PortLister
	Chooser   FileChooser
	ExportDir string
}

// Adapter is the constrained adapter.
type Adapter struct {
	ports     PortLister
	chooser   FileChooser
	exportDir string
	log       zerolog.Logger
}

var _ device.Adapter = (*Adapter)(nil)

// New returns an Adapter with the given host facilities.
func New(opts Options, log zerolog.Logger) *Adapter {
	dir := opts.ExportDir
	if dir == "" {
		dir = "."
	}
	return &Adapter{
		ports:     opts.Ports,
		chooser:   opts.Chooser,
		exportDir: dir,
		log:       log,
	}
}

func (a *Adapter) Platform() device.Platform { return device.PlatformWeb }

func (a *Adapter) Capabilities() device.PlatformCapabilities {
	return device.PlatformCapabilities{CanListPorts: a.ports != nil}
}

func (a *Adapter) ListPorts(ctx context.Context) []device.SerialPort {
	if a.ports == nil {
		return nil
	}
	ports, err := a.ports.ListPorts()
	if err != nil {
		a.log.Warn().Err(err).Msg("Serial enumeration failed")
		return nil
	}
	return ports
}

func (a *Adapter) Compile(context.Context, string, string) device.UploadResult {
	return device.Failed(device.StageCompile, compileUnavailable)
}

func (a *Adapter) Upload(context.Context, string, string, string, device.ProgressFunc) device.UploadResult {
	return device.Failed(device.StageUpload, uploadUnavailable)
}

// ExportProject writes content into the export directory. An existing file
// is never replaced; a numeric suffix is added instead.
func (a *Adapter) ExportProject(_ context.Context, name, content string) error {
	if err := os.MkdirAll(a.exportDir, 0o755); err != nil {
		return fmt.Errorf("export project %q: %w", name, err)
	}

	base := exportFileName(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	path := filepath.Join(a.exportDir, base)
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			path = filepath.Join(a.exportDir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
			continue
		}
		if err != nil {
			return fmt.Errorf("export project %q: %w", name, err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return fmt.Errorf("export project %q: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("export project %q: %w", name, err)
		}
		a.log.Info().Str("path", path).Msg("Project exported")
		return nil
	}
}

func (a *Adapter) ImportProject(ctx context.Context) (*device.ProjectFile, error) {
	if a.chooser == nil {
		return nil, nil
	}
	path, ok, err := a.chooser.ChooseFile(ctx)
	if err != nil {
		return nil, fmt.Errorf("import project: %w", err)
	}
	if !ok {
		a.log.Debug().Msg("Import cancelled by user")
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", device.ErrImportRead, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w %s: not a text file", device.ErrImportRead, path)
	}
	return &device.ProjectFile{Name: filepath.Base(path), Content: string(data)}, nil
}

func (a *Adapter) CheckArduinoCLI(context.Context) bool { return false }

func (a *Adapter) ArduinoCLIVersion(context.Context) (string, error) {
	return CLIUnavailable, nil
}

func (a *Adapter) ListInstalledCores(context.Context) []device.CoreInfo { return nil }

func (a *Adapter) ListInstalledBoards(context.Context) []device.BoardInfo { return nil }

func (a *Adapter) CheckCoreStatus(context.Context, string) device.CoreStatus {
	return device.CoreStatus{}
}

func (a *Adapter) InstallCore(_ context.Context, coreID string) (string, error) {
	return "", fmt.Errorf("install %s: %w", coreID, device.ErrCoreInstallationUnsupported)
}

func (a *Adapter) SearchCores(context.Context, string) []device.CoreInfo { return nil }

func (a *Adapter) BundledCores(context.Context) []string { return nil }

// exportFileName turns a project name into a safe file name.
func exportFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	clean = strings.Trim(clean, ". ")
	if clean == "" {
		clean = "project"
	}
	if filepath.Ext(clean) == "" {
		clean += defaultExt
	}
	return clean
}
