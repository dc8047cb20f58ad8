package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/teedee/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "teedee: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags maps command-line flags onto app.Options.
func parseFlags(args []string, output io.Writer) (app.Options, error) {
	fs := flag.NewFlagSet("teedee", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts app.Options
	fs.StringVar(&opts.ConfigPath, "config", "", "config file path (optional, defaults to ~/.config/teedee/config.toml)")
	fs.StringVar(&opts.BaseURL, "base-url", "", "todo backend URL (optional, overrides base_url)")
	fs.IntVar(&opts.PollEvery, "poll", 0, "auto-refresh interval in seconds (optional, negative disables)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (optional, overrides log_level)")

	if err := fs.Parse(args); err != nil {
		return app.Options{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument %q", fs.Arg(0))
		fmt.Fprintf(output, "teedee: %v\n", err)
		return app.Options{}, err
	}
	return opts, nil
}
