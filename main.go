package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sambeau/beam/config"
	"github.com/sambeau/beam/pkg/beam"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/components"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the flags accepted before the command name.
type globals struct {
	configPath string
	profile    string
	getenv     func(string) string
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("beam", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		g           = globals{getenv: getenv}
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	flags.StringVar(&g.configPath, "config", "", "Path to config file")
	flags.StringVar(&g.profile, "profile", "", "Developer profile to apply")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "beam version %s (%s)\n", Version, Commit)
		return nil
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return errors.New("no command given")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "generate", "gen":
		return runGenerate(g, cmdArgs, stdout, stderr)
	case "render":
		return runRender(g, cmdArgs, stdout, stderr)
	case "check":
		return runCheck(g, cmdArgs, stdout, stderr)
	case "inspect":
		return runInspect(g, cmdArgs, stdout, stderr)
	case "watch":
		return runWatch(ctx, g, cmdArgs, stdout, stderr)
	case "serve":
		return runServe(ctx, g, cmdArgs, stdout, stderr)
	case "repl":
		return runRepl(cmdArgs, stdout)
	case "help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", cmd)
}

// loadConfig finds the config file, or falls back to defaults rooted at the
// working directory, and applies the developer profile.
func (g globals) loadConfig() (*config.Config, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	cfg, path, err := config.LoadOrDefault(g.configPath, wd, g.getenv)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if g.profile != "" {
		if err := config.ApplyDeveloper(cfg, g.profile); err != nil {
			return nil, "", fmt.Errorf("applying profile %q: %w", g.profile, err)
		}
	}
	return cfg, path, nil
}

// newRegistry returns the component registry templates compile against.
func newRegistry() (*beam.Registry, error) {
	r := beam.NewRegistry()
	if err := components.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// openLogOutput returns the writer logging.output names.
func openLogOutput(cfg *config.Config, stdout, stderr io.Writer) (io.Writer, func(), error) {
	switch cfg.Logging.Output {
	case "", "stderr":
		return stderr, func() {}, nil
	case "stdout":
		return stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.Output), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// printDiagnostic writes err the way a terminal user should see it.
func printDiagnostic(w io.Writer, err error) {
	var be *berrors.BeamError
	if errors.As(err, &be) {
		fmt.Fprintln(w, be.PrettyString())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `beam - HTML templates compiled to Go

Usage:
  beam [flags] <command> [arguments]

Commands:
  generate [files...]     Generate Go code for .beam files (default: files selected by config)
  render FILE             Render a template to stdout
      --data FILE           YAML, JSON or JSONC values to render with (default: config data)
      --template NAME       Template to render (default: the one named after the file)
  check [files...]        Compile templates and report diagnostics
  inspect FILE            Show the pieces and slots each template lowers to
      --vnode               Show the vnode tree as JSON instead
  watch                   Regenerate Go code whenever a template changes
  serve                   Preview templates in a browser with live reload
      --host HOST           Override serve.host
      --port PORT           Override serve.port
      --quiet               Suppress request logs
  repl                    Type markup and see it rendered

Flags:
  --config PATH    Path to config file (default: BEAM_CONFIG, ./beam.yaml)
  --profile NAME   Developer profile to apply
  --version        Show version
  --help           Show this help

Examples:
  beam generate
  beam render --data site.yaml pages/index.beam
  beam --profile alice serve --port 3000
`)
}
