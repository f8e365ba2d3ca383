package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/artifact"
	"github.com/sghaida/modwire/internal/config"
	"github.com/sghaida/modwire/internal/emit"
	"github.com/sghaida/modwire/internal/logging"
	"github.com/sghaida/modwire/internal/metrics"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "modwire:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWith(ctx, args, os.Stderr, nil)
}

// runWith runs the command, printing diagnostics to out. A nil log is built from the
// configuration.
func runWith(ctx context.Context, args []string, out io.Writer, log *zap.Logger) error {
	fs := flag.NewFlagSet("modwire", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfgPath := fs.String("config", "", "path to the configuration file (default "+config.DefaultFile+")")
	roots := fs.String("roots", "", "comma separated directories to scan, overrides the configuration")
	runtime := fs.String("runtime", emit.DefaultRuntime, "import path of the di runtime package")
	check := fs.Bool("check", false, "report diagnostics without writing files")
	watch := fs.Bool("watch", false, "regenerate when declarations change")
	metricsAddr := fs.String("metrics", "", "listen address of the metrics endpoint in watch mode")
	level := fs.String("log-level", "", "log level, overrides the configuration")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *roots != "" {
		cfg.Roots = splitList(*roots)
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if log == nil {
		if log, err = logging.New(cfg); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	store, err := artifact.NewStore(cfg.ArtifactDir, cfg.ArtifactCache, log)
	if err != nil {
		return err
	}
	g := &generator{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New("modwire"),
		store:   store,
		runtime: *runtime,
		check:   *check,
		out:     out,
	}

	if *watch {
		return g.watch(ctx)
	}
	sum, err := g.pass()
	g.log.Info("pass complete",
		zap.Int("generated", sum.Generated),
		zap.Int("faulty", sum.Faulty),
		zap.Int("errors", sum.Errors),
		zap.Int("warnings", sum.Warnings),
		zap.Int("written", sum.Written))
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ErrDiagnostics is returned when a pass reported errors.
var ErrDiagnostics = errors.New("generation failed")
