package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sambeau/beam/config"
	"github.com/sambeau/beam/pkg/beam"
	"github.com/sambeau/beam/pkg/beam/codegen"
	"github.com/sambeau/beam/pkg/beam/parser"
	"github.com/sambeau/beam/pkg/beam/repl"
	"github.com/sambeau/beam/pkg/beam/vnode"
	"github.com/sambeau/beam/server"
)

// parseArgs parses flags wherever they appear among the positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("beam "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// templateFiles returns the files named on the command line, or the ones the
// config selects.
func templateFiles(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := cfg.TemplateFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates match %s under %s", strings.Join(cfg.Templates.Include, ", "), cfg.Root())
	}
	return files, nil
}

func runGenerate(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("generate", stderr)
	pkg := fs.String("package", "", "Package name for generated files (overrides generate.package)")
	suffix := fs.String("suffix", "", "Output file suffix (overrides generate.suffix)")
	paths, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	cfg, _, err := g.loadConfig()
	if err != nil {
		return err
	}
	opts := codegen.Options{Package: cfg.Generate.Package, Suffix: cfg.Generate.Suffix}
	if *pkg != "" {
		opts.Package = *pkg
	}
	if *suffix != "" {
		opts.Suffix = *suffix
	}

	files, err := templateFiles(cfg, paths)
	if err != nil {
		return err
	}
	failed := 0
	for _, file := range files {
		out, err := codegen.GenerateFile(file, opts)
		if err != nil {
			printDiagnostic(stderr, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "wrote %s\n", out)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// compileFile compiles a .beam file against the stock components.
func compileFile(file string) (*beam.Set, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry()
	if err != nil {
		return nil, err
	}
	return beam.CompileFile(file, src, beam.WithRegistry(registry))
}

// pickTemplate returns the named template, the one named after the file, or
// the only one.
func pickTemplate(set *beam.Set, file, name string) (*beam.Template, error) {
	if name != "" {
		if t := set.Lookup(name); t != nil {
			return t, nil
		}
		return nil, fmt.Errorf("no template %q in %s", name, file)
	}
	if t := set.Lookup(beam.NameFromFile(file)); t != nil {
		return t, nil
	}
	if templates := set.Templates(); len(templates) == 1 {
		return templates[0], nil
	}
	var names []string
	for _, t := range set.Templates() {
		names = append(names, t.Name())
	}
	return nil, fmt.Errorf("%s defines %s; choose one with --template", file, strings.Join(names, ", "))
}

func runRender(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("render", stderr)
	dataPath := fs.String("data", "", "YAML, JSON or JSONC file of values")
	name := fs.String("template", "", "Template to render")
	paths, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(paths) != 1 {
		return errors.New("render needs exactly one file")
	}
	file := paths[0]

	cfg, _, err := g.loadConfig()
	if err != nil {
		return err
	}
	if *dataPath == "" {
		*dataPath = cfg.Data
	}
	vars := beam.Vars{}
	if *dataPath != "" {
		data, err := config.LoadData(*dataPath)
		if err != nil {
			return err
		}
		vars = beam.Vars(data)
	}

	set, err := compileFile(file)
	if err != nil {
		printDiagnostic(stderr, err)
		return errors.New("compile failed")
	}
	tmpl, err := pickTemplate(set, file, *name)
	if err != nil {
		return err
	}
	ui, err := tmpl.Execute(vars)
	if err != nil {
		printDiagnostic(stderr, err)
		return errors.New("render failed")
	}
	ui.WriteTo(stdout)
	fmt.Fprintln(stdout)
	return nil
}

func runCheck(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", stderr)
	paths, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	cfg, _, err := g.loadConfig()
	if err != nil {
		return err
	}
	files, err := templateFiles(cfg, paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		set, err := compileFile(file)
		if err != nil {
			printDiagnostic(stderr, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "ok %s (%d templates)\n", file, len(set.Templates()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files have errors", failed, len(files))
	}
	return nil
}

func runInspect(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	asVNode := fs.Bool("vnode", false, "Show the vnode tree as JSON")
	name := fs.String("template", "", "Only show this template")
	paths, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(paths) != 1 {
		return errors.New("inspect needs exactly one file")
	}
	file := paths[0]

	if *asVNode {
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		parsed, err := parser.ParseFile(string(src), file)
		if err != nil {
			printDiagnostic(stderr, err)
			return errors.New("parse failed")
		}
		for _, def := range parsed.Definitions {
			defName := def.Name
			if defName == "" {
				defName = beam.NameFromFile(file)
			}
			if *name != "" && defName != *name {
				continue
			}
			data, err := vnode.Marshal(vnode.BuildTemplate(def.Body))
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "== %s\n%s\n", defName, data)
		}
		return nil
	}

	set, err := compileFile(file)
	if err != nil {
		printDiagnostic(stderr, err)
		return errors.New("compile failed")
	}
	for _, t := range set.Templates() {
		if *name != "" && t.Name() != *name {
			continue
		}
		fmt.Fprintf(stdout, "== %s\n", t.Name())
		for i, c := range t.Compiled() {
			if len(t.Compiled()) > 1 {
				fmt.Fprintf(stdout, "-- root %d\n", i)
			}
			io.WriteString(stdout, c.String())
		}
	}
	return nil
}

func runWatch(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("watch", stderr)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	cfg, configPath, err := g.loadConfig()
	if err != nil {
		return err
	}
	opts := codegen.Options{Package: cfg.Generate.Package, Suffix: cfg.Generate.Suffix}

	regenerate := func(file string) {
		if filepath.Ext(file) != ".beam" {
			return
		}
		if _, err := os.Stat(file); err != nil {
			return
		}
		out, err := codegen.GenerateFile(file, opts)
		if err != nil {
			printDiagnostic(stderr, err)
			return
		}
		fmt.Fprintf(stdout, "wrote %s\n", out)
	}

	files, err := cfg.TemplateFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		regenerate(file)
	}

	watcher, err := server.NewWatcher(cfg, configPath, regenerate, stdout, stderr)
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func runServe(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	host := fs.String("host", "", "Override serve.host")
	port := fs.Int("port", 0, "Override serve.port")
	quiet := fs.Bool("quiet", false, "Suppress request logs")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg, configPath, err := g.loadConfig()
	if err != nil {
		return err
	}
	if *host != "" {
		cfg.Serve.Host = *host
	}
	if *port != 0 {
		cfg.Serve.Port = *port
	}
	if *quiet {
		cfg.Logging.Quiet = true
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logOut, closeLog, err := openLogOutput(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	registry, err := newRegistry()
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, configPath, registry, logOut, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func runRepl(args []string, stdout io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("repl takes no arguments")
	}
	registry, err := newRegistry()
	if err != nil {
		return err
	}
	repl.Start(stdout, Version, registry)
	return nil
}
