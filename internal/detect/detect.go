// Package detect chooses the active device adapter: the native adapter when
// a companion answers at the configured URL, the standalone adapter
// otherwise.
package detect

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/companion"
	"github.com/buckleypaul/boardbridge/internal/config"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/native"
	"github.com/buckleypaul/boardbridge/internal/serial"
	"github.com/buckleypaul/boardbridge/internal/standalone"
)

// Options configures detection.
type Options struct {
	// CompanionURL is the marker; an empty value means no companion.
	CompanionURL string
	ProbeTimeout time.Duration

	// Used only for the standalone adapter.
	Ports     standalone.PortLister
	Chooser   standalone.FileChooser
	ExportDir string
}

// OptionsFromConfig builds detection options from loaded configuration. The
// environment variable takes precedence over the configured URL.
func OptionsFromConfig(cfg config.Config, chooser standalone.FileChooser) Options {
	opts := Options{
		CompanionURL: cfg.CompanionURL,
		ProbeTimeout: time.Duration(cfg.ProbeTimeout),
		Chooser:      chooser,
		ExportDir:    cfg.ExportDir,
	}
	if url := os.Getenv(config.CompanionURLEnv); url != "" {
		opts.CompanionURL = url
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = config.DefaultProbeTimeout
	}
	if cfg.SerialEnumerationEnabled() {
		opts.Ports = serial.NewLister()
	}
	return opts
}

// Detect builds a fresh adapter on every call.
func Detect(ctx context.Context, opts Options, log zerolog.Logger) device.Adapter {
	if opts.CompanionURL != "" {
		timeout := opts.ProbeTimeout
		if timeout <= 0 {
			timeout = config.DefaultProbeTimeout
		}
		dctx, cancel := context.WithTimeout(ctx, timeout)
		client, err := companion.Dial(dctx, opts.CompanionURL, log.With().Str("component", "companion").Logger())
		cancel()
		if err == nil {
			log.Info().Str("url", opts.CompanionURL).Msg("Using native companion")
			return native.New(client, log.With().Str("component", "native").Logger())
		}
		log.Warn().Err(err).Msg("Companion unreachable, falling back to standalone")
	}
	log.Info().Bool("ports", opts.Ports != nil).Msg("Using standalone adapter")
	return standalone.New(standalone.Options{
		Ports:     opts.Ports,
		Chooser:   opts.Chooser,
		ExportDir: opts.ExportDir,
	}, log.With().Str("component", "standalone").Logger())
}

// Context holds the process-wide adapter. The first call to Adapter
// detects and caches; the cached value changes only through Redetect.
type Context struct {
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	adapter device.Adapter
}

// NewContext returns an empty holder.
func NewContext(opts Options, log zerolog.Logger) *Context {
	return &Context{opts: opts, log: log}
}

// Adapter returns the cached adapter, detecting it on first use.
func (c *Context) Adapter(ctx context.Context) device.Adapter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.adapter == nil {
		c.adapter = Detect(ctx, c.opts, c.log)
	}
	return c.adapter
}

// Redetect replaces the cached adapter and closes the previous one.
func (c *Context) Redetect(ctx context.Context) device.Adapter {
	next := Detect(ctx, c.opts, c.log)

	c.mu.Lock()
	prev := c.adapter
	c.adapter = next
	c.mu.Unlock()

	closeAdapter(prev, c.log)
	return next
}

// Close releases the cached adapter.
func (c *Context) Close() error {
	c.mu.Lock()
	prev := c.adapter
	c.adapter = nil
	c.mu.Unlock()
	if cl, ok := prev.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func closeAdapter(a device.Adapter, log zerolog.Logger) {
	if cl, ok := a.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			log.Debug().Err(err).Msg("Closing previous adapter")
		}
	}
}
