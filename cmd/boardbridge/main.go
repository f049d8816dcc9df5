package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/config"
	"github.com/buckleypaul/boardbridge/internal/detect"
	"github.com/buckleypaul/boardbridge/internal/logger"
	"github.com/buckleypaul/boardbridge/internal/pages"
	"github.com/buckleypaul/boardbridge/internal/serial"
	"github.com/buckleypaul/boardbridge/internal/store"
)

// env is the setup shared by the TUI and the headless commands.
type env struct {
	root    string
	cfg     config.Config
	store   *store.Store
	log     zerolog.Logger
	closeFn func()
}

func setup(logToFile bool) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root := config.FindProjectRoot(cwd)
	cfg := config.Load(root)

	logCfg := logger.Config{Level: cfg.LogLevel}
	if logToFile {
		logCfg.File = filepath.Join(config.Dir(root), "boardbridge.log")
	}
	closer, err := logger.Init(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	return &env{
		root:    root,
		cfg:     cfg,
		store:   store.New(config.Dir(root)),
		log:     logger.Get(),
		closeFn: func() { closer.Close() },
	}, nil
}

func main() {
	var err error
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "monitor":
			err = runMonitor(os.Args[2:])
		case "upload":
			err = runHeadless(os.Args[2:], false)
		case "compile":
			err = runHeadless(os.Args[2:], true)
		case "-h", "--help", "help":
			usage(os.Stdout)
			return
		default:
			usage(os.Stderr)
			os.Exit(2)
		}
	} else {
		err = runTUI()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: boardbridge [monitor|upload|compile] [flags]")
	fmt.Fprintln(w, "  (no command)  interactive interface")
	fmt.Fprintln(w, "  monitor       print serial output from a port")
	fmt.Fprintln(w, "  upload        compile and upload a sketch")
	fmt.Fprintln(w, "  compile       compile a sketch")
}

func runTUI() error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.closeFn()

	chooser := pages.NewChooser()
	dc := detect.NewContext(detect.OptionsFromConfig(e.cfg, chooser), logger.WithComponent("detect"))
	defer dc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	adapter := dc.Adapter(ctx)
	cancel()
	e.log.Info().Str("platform", string(adapter.Platform())).Str("root", e.root).Msg("Starting")

	pageMap := map[app.PageID]app.Page{
		app.PortsPage: pages.NewPortsPage(adapter, e.cfg.SerialPort),
		app.CoresPage: pages.NewCoresPage(adapter, e.store, e.cfg.DefaultBoard, logger.WithComponent("cores")),
		app.UploadPage: pages.NewUploadPage(adapter, pages.UploadOptions{
			History:   e.store,
			Timeout:   time.Duration(e.cfg.UploadTimeout),
			Chooser:   chooser,
			ExportDir: e.cfg.ExportDir,
			Port:      e.cfg.SerialPort,
			Board:     e.cfg.DefaultBoard,
		}, logger.WithComponent("upload")),
		app.MonitorPage: pages.NewMonitorPage(serial.NewMonitor(logger.WithComponent("serial")), e.store,
			e.cfg.SerialPort, e.cfg.SerialBaudRate, logger.WithComponent("monitor")),
		app.HistoryPage:  pages.NewHistoryPage(e.store),
		app.SettingsPage: pages.NewSettingsPage(&e.cfg, e.root),
	}

	model := app.New(pageMap, dc, &e.cfg, e.root, e.log)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
