package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buckleypaul/boardbridge/internal/detect"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/logger"
	"github.com/buckleypaul/boardbridge/internal/serial"
	"github.com/buckleypaul/boardbridge/internal/standalone"
	"github.com/buckleypaul/boardbridge/internal/upload"
)

// noChooser answers every import request with a cancel; there is no picker
// outside the TUI.
type noChooser struct{}

func (noChooser) ChooseFile(context.Context) (string, bool, error) { return "", false, nil }

var _ standalone.FileChooser = noChooser{}

func runMonitor(args []string) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.closeFn()

	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	port := fs.String("port", e.cfg.SerialPort, "serial port to open")
	baud := fs.Int("baud", e.cfg.SerialBaudRate, "baud rate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port == "" {
		return errors.New("no port: pass -port or set serial_port")
	}

	mon := serial.NewMonitor(logger.WithComponent("serial"))
	if err := mon.Connect(*port, *baud); err != nil {
		return err
	}
	defer mon.Disconnect()
	fmt.Fprintf(os.Stderr, "Connected to %s at %d baud, ctrl+c to exit\n", *port, *baud)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case data := <-mon.DataChan():
			fmt.Print(data)
		case <-tick.C:
			if !mon.Connected() {
				return fmt.Errorf("%s closed", *port)
			}
		case <-sigCh:
			return nil
		}
	}
}

func runHeadless(args []string, compileOnly bool) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.closeFn()

	name := "upload"
	if compileOnly {
		name = "compile"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	board := fs.String("board", e.cfg.DefaultBoard, "fully qualified board name")
	port := fs.String("port", e.cfg.SerialPort, "serial port (upload only)")
	timeout := fs.Duration("timeout", time.Duration(e.cfg.UploadTimeout), "overall time limit, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: boardbridge %s [flags] <sketch>", name)
	}
	if *board == "" {
		return errors.New("no board: pass -board or set default_board")
	}
	if !compileOnly && *port == "" {
		return errors.New("no port: pass -port or set serial_port")
	}
	code, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dc := detect.NewContext(detect.OptionsFromConfig(e.cfg, noChooser{}), logger.WithComponent("detect"))
	defer dc.Close()
	adapter := dc.Adapter(ctx)

	pl := upload.New(adapter, e.store, *timeout, logger.WithComponent("upload"))
	report := func(u upload.Update) {
		line := fmt.Sprintf("[%3d%%] %s", u.Percent, u.State)
		if u.Message != "" {
			line += "  " + u.Message
		}
		fmt.Fprintln(os.Stderr, line)
	}

	var result device.UploadResult
	if compileOnly {
		result = pl.Compile(ctx, string(code), *board, report)
	} else {
		result = pl.Run(ctx, *port, string(code), *board, report)
	}
	if !result.Success {
		return fmt.Errorf("%s failed: %s", result.Stage, result.Error)
	}
	fmt.Println(result.Message)
	return nil
}
