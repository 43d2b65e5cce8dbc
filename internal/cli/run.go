package cli

import (
	"context"
	stderrors "errors"
	"flag"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deckwork/ipkey/internal/driver"
	"github.com/deckwork/ipkey/internal/server"
	"github.com/deckwork/ipkey/pkg/clipboard"
	"github.com/deckwork/ipkey/pkg/config"
	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
	"github.com/deckwork/ipkey/pkg/publicip"
	"github.com/deckwork/ipkey/pkg/settings"
)

// runOpts holds the parsed flags for the run command.
type runOpts struct {
	// Host registration flags, passed by the stream-deck host on launch.
	port          int
	pluginUUID    string
	registerEvent string
	info          string

	// Operator overrides on top of the config file.
	configPath string
	listen     string
	refresh    time.Duration
	provider   string
	timeout    time.Duration
	lines      int
	verbose    bool
}

// runCommand creates the run command, the entry point the host launches.
//
// The host passes -port, -pluginUUID, -registerEvent and -info as
// single-dash long flags, which pflag reads as shorthand clusters. Flag
// parsing is disabled on the cobra command and done with a stdlib FlagSet,
// which accepts both dash forms.
func (c *CLI) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "run -port PORT -pluginUUID UUID -registerEvent EVENT -info JSON",
		Short:              "Connect to the stream-deck host and drive the key",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseRunFlags(args)
			if err != nil {
				return err
			}
			if opts.port == 0 {
				printInfo("%s run is normally launched by the deck host", appName)
				printNextStep("try a local key instead", appName+" simulate")
				return errors.New(errors.ErrCodeInvalidConfig, "missing -port flag")
			}
			return c.runPlugin(cmd.Context(), opts)
		},
	}
}

func parseRunFlags(args []string) (runOpts, error) {
	var opts runOpts
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&opts.port, "port", 0, "host websocket port")
	fs.StringVar(&opts.pluginUUID, "pluginUUID", "", "plugin instance identifier")
	fs.StringVar(&opts.registerEvent, "registerEvent", "", "registration event name")
	fs.StringVar(&opts.info, "info", "", "host environment JSON")

	fs.StringVar(&opts.configPath, "config", "", "config file path")
	fs.StringVar(&opts.listen, "listen", "", "status API listen address")
	fs.DurationVar(&opts.refresh, "refresh", 0, "address refresh interval")
	fs.StringVar(&opts.provider, "provider", "", "lookup provider")
	fs.DurationVar(&opts.timeout, "timeout", 0, "lookup timeout")
	fs.IntVar(&opts.lines, "lines", 0, "default display mode (1, 2 or 4)")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&opts.verbose, "v", false, "enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing run flags")
	}
	if opts.lines != 0 {
		if err := errors.ValidateLines(opts.lines); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// runPlugin connects to the host and blocks until the session ends.
func (c *CLI) runPlugin(ctx context.Context, opts runOpts) error {
	if opts.verbose {
		c.SetLogLevel(LogDebug)
	}
	logger := c.Logger

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyRunOverrides(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !opts.verbose {
		logger.SetLevel(parseLogLevel(cfg.LogLevel, LogInfo))
	}

	logger.Infof("connecting to host on port %d", opts.port)
	prog := newProgress(logger)
	client, err := deck.Open(ctx, deck.Options{
		Port:          opts.port,
		PluginUUID:    opts.pluginUUID,
		RegisterEvent: opts.registerEvent,
		Info:          opts.info,
	})
	if err != nil {
		return err
	}
	defer client.Close()
	prog.done("registered with host")

	if host, err := deck.ParseHostInfo(opts.info); err != nil {
		logger.Warnf("host info: %v", err)
	} else if host.Application.Version != "" {
		logger.Debugf("host %s %s on %s, %d device(s)",
			host.Application.Version, host.Plugin.Version, host.Application.Platform, len(host.Devices))
	}

	clip := clipboard.New()
	logger.Debugf("clipboard backend %s", clip.Name())

	drvOpts := driver.Options{
		Refresh: cfg.Refresh.Duration,
		Logger:  logger,
	}
	if opts.lines != 0 {
		drvOpts.Defaults = settings.Settings{Lines: keyimage.ParseDisplayMode(opts.lines)}
	}
	drv := driver.New(client, publicip.New(cfg.LookupOptions()...), clip, client.Events(), drvOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return drv.Run(gctx) })
	if cfg.Listen != "" {
		srv := server.New(cfg.Listen, drv, logger)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	// The host closing the socket is how every session ends; only report
	// errors beyond that.
	if err := g.Wait(); err != nil && !stderrors.Is(err, driver.ErrHostClosed) {
		return err
	}
	logger.Info("host session ended")
	return nil
}

// applyRunOverrides layers non-zero flag values over the config file.
func applyRunOverrides(cfg *config.Config, opts runOpts) {
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	if opts.refresh > 0 {
		cfg.Refresh = config.Duration{Duration: opts.refresh}
	}
	if opts.provider != "" {
		cfg.Provider = opts.provider
	}
	if opts.timeout > 0 {
		cfg.Timeout = config.Duration{Duration: opts.timeout}
	}
}
