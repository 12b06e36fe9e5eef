package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ptsim/config"
	"github.com/sarchlab/ptsim/monitoring"
)

func newServeCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var (
		port int
		open bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve [flags] [command...]",
		Short: "Run the commands, then serve the engine for monitoring.",
		Long: `Serve runs the given commands and then keeps the engine alive ` +
			`behind an HTTP monitor until interrupted. More commands can be ` +
			`sent to the engine through the monitor.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("port") {
				port = cfg.MonitorPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return serve(ctx, cfg, opts, serveOptions{
				port: port,
				open: open,
				args: args,
			}, stdout, stderr)
		},
	}

	serveCmd.Flags().SetInterspersed(false)
	serveCmd.Flags().IntVar(&port, "port", 0,
		"port of the monitor, 0 for a random port")
	serveCmd.Flags().BoolVar(&open, "open", false,
		"open the monitor in a browser")

	return serveCmd
}

type serveOptions struct {
	port int
	open bool
	args []string
}

// serveReady is called with the monitor URL once the server is listening.
var serveReady = func(string) {}

func serve(
	ctx context.Context,
	cfg config.Config,
	opts *options,
	so serveOptions,
	stdout, stderr io.Writer,
) error {
	s, err := newSession(cfg, opts.uniqueIDs, stderr)
	if err != nil {
		return err
	}

	m := monitoring.NewMonitor(s.engine).
		WithPortNumber(so.port).
		WithLogger(s.logger)

	output, runErr := m.Exec(so.args)
	fmt.Fprint(stdout, output)

	if runErr != nil {
		return errors.Join(runErr, s.close())
	}

	url, err := m.StartServer()
	if err != nil {
		return errors.Join(err, s.close())
	}

	if so.open {
		err = browser.OpenURL(url)
		if err != nil {
			s.logger.Warn("cannot open browser", "url", url, "err", err)
		}
	}

	serveReady(url)
	<-ctx.Done()

	if opts.stats {
		s.reportStats(stderr)
	}

	return s.close()
}
