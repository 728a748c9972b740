package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"djsync/config"
	"djsync/djlink"
	"djsync/logging"
	"djsync/midi"
	"djsync/output"
	"djsync/theme"
	"djsync/tui"
)

type options struct {
	config   string
	iface    string
	logLevel string
	logFile  string
	tui      bool
	palette  string
}

func main() {
	var opts options
	pflag.StringVarP(&opts.config, "config", "c", "", "config file, .json or .yaml (default ~/.config/djsync/config.json)")
	pflag.StringVarP(&opts.iface, "interface", "i", "", "network interface name or IPv4 address (overrides config)")
	pflag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	pflag.StringVar(&opts.logFile, "log-file", "", "also write the log to this file (overrides config)")
	pflag.BoolVar(&opts.tui, "tui", false, "show the status monitor instead of plain log output")
	pflag.StringVar(&opts.palette, "palette", "", "GIMP .gpl palette for the status monitor")
	pflag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	path := opts.config
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	store, err := config.Open(path)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	snap := store.Snapshot()

	level := firstSet(opts.logLevel, snap.Log.Level)
	logPath := firstSet(opts.logFile, snap.Log.File)

	// The status monitor owns the terminal, so logs go to the ring it
	// draws from instead of stderr.
	ring := logging.NewRing(200)
	var out io.Writer = os.Stderr
	if opts.tui {
		out = ring
	}
	if logPath != "" {
		f, err := logging.OpenFile(logPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = io.MultiWriter(out, f)
	}
	log, err := logging.New(level, out)
	if err != nil {
		return err
	}

	iface, err := djlink.FindInterface(firstSet(opts.iface, snap.DJLink.Interface))
	if err != nil {
		return err
	}
	log.Infof("using interface %s (%s)", iface.Name, iface.Address)

	identity := func() (string, uint8) {
		c := store.Snapshot()
		return c.DJLink.DeviceName, uint8(c.DJLink.PlayerNumber)
	}
	registry := djlink.NewManager(iface, djlink.DefaultOptions(), identity, log)
	if err := registry.Listen(); err != nil {
		if errors.Cause(err) == djlink.ErrBind {
			log.WithError(err).Error("another DJ Link application may be running")
		}
		return err
	}

	outputs := output.NewManager(store, registry, output.DefaultTransports(), log)
	outputs.InitOutputs()
	defer midi.CloseDriver()

	reload := func() error {
		if err := store.Reload(); err != nil {
			log.WithError(err).Error("config reload failed, keeping current outputs")
			return err
		}
		outputs.Reload()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		return outputs.Run(gctx, registry.Events())
	})
	g.Go(func() error {
		return watchHangup(gctx, reload, log)
	})
	if opts.tui {
		th, err := loadTheme(opts.palette)
		if err != nil {
			log.WithError(err).Warn("using the built-in palette")
		}
		g.Go(func() error {
			defer stop()
			m := tui.NewModel(registry, outputs, ring, th, reload)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "status monitor")
			}
			return nil
		})
	}

	log.Info("djsync running")
	err = g.Wait()

	log.Info("shutting down")
	registry.Stop()
	outputs.CloseAll()
	return err
}

// watchHangup reloads the config on SIGHUP until ctx ends
func watchHangup(ctx context.Context, reload func() error, log logrus.FieldLogger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			log.Info("SIGHUP: reloading config")
			if err := reload(); err == nil {
				log.Info("outputs reloaded")
			}
		}
	}
}

func loadTheme(path string) (*theme.Theme, error) {
	if path == "" {
		return theme.New(nil), nil
	}
	p, err := theme.LoadGPL(path)
	if err != nil {
		return theme.New(nil), err
	}
	return theme.New(p), nil
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
