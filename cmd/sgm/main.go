// sgm CLI - compiles and runs sgm programs
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
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/sgm/compiler"
	"github.com/chazu/sgm/manifest"
	"github.com/chazu/sgm/server"
	"github.com/chazu/sgm/store"
	"github.com/chazu/sgm/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("sgm.cli")

// errUsage marks command-line mistakes; they exit with status 2.
var errUsage = errors.New("usage")

type options struct {
	eval    string
	compile bool
	output  string
	image   string
	disasm  bool
	trace   bool
	cache   string
	serve   bool
	lsp     bool
	verbose bool
	debug   bool
	logPath string
	args    []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	configureLogging(opts)

	if err := dispatch(opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sgm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.eval, "e", "", "Evaluate source text")
	fs.BoolVar(&opts.compile, "c", false, "Compile only; write the image to -o")
	fs.StringVar(&opts.output, "o", "", "Output image path")
	fs.StringVar(&opts.image, "image", "", "Run a compiled image")
	fs.BoolVar(&opts.disasm, "disasm", false, "Print the disassembly instead of running")
	fs.BoolVar(&opts.trace, "trace", false, "Trace execution")
	fs.StringVar(&opts.cache, "cache", "", "SQLite program cache path")
	fs.BoolVar(&opts.serve, "serve", false, "Start Connect + gRPC evaluation servers")
	fs.BoolVar(&opts.lsp, "lsp", false, "Run the LSP server on stdio")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&opts.debug, "debug", false, "Debug logging (implies -v)")
	fs.StringVar(&opts.logPath, "log", "", "Log file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sgm [options] [file.sgm]\n\n")
		fmt.Fprintf(stderr, "Compiles and runs an sgm program. Without a file, -e or -image the\n")
		fmt.Fprintf(stderr, "entry from sgm.toml is run.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  sgm main.sgm                # Compile and run\n")
		fmt.Fprintf(stderr, "  sgm -e 'print(1 + 2);'      # Run inline source\n")
		fmt.Fprintf(stderr, "  sgm -c -o main.sgmc main.sgm  # Write a CBOR image\n")
		fmt.Fprintf(stderr, "  sgm -image main.sgmc        # Run an image\n")
		fmt.Fprintf(stderr, "  sgm -disasm main.sgm        # Show bytecode\n")
		fmt.Fprintf(stderr, "  sgm -serve                  # Start evaluation servers\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.args = fs.Args()
	return opts, nil
}

func configureLogging(opts *options) {
	verbosity := 0
	if opts.verbose {
		verbosity = 1
	}
	if opts.debug {
		verbosity = 2
	}
	var path *string
	if opts.logPath != "" {
		path = &opts.logPath
	}
	commonlog.Configure(verbosity, path)
}

func dispatch(opts *options, stdout io.Writer) error {
	if len(opts.args) > 1 {
		return fmt.Errorf("%w: at most one source file, got %d", errUsage, len(opts.args))
	}
	if opts.lsp {
		return server.NewLSP().Run()
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}
	if m != nil {
		log.Infof("using manifest %s", filepath.Join(m.Dir, manifest.FileName))
		if opts.cache == "" {
			opts.cache = m.CachePath()
		}
		opts.trace = opts.trace || m.Run.Trace
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cache *store.ContentStore
	if opts.cache != "" {
		cache, err = store.Open(opts.cache)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	if opts.serve {
		return serve(ctx, m, cache)
	}

	prog, name, err := load(ctx, opts, m, cache)
	if err != nil {
		return err
	}

	switch {
	case opts.compile:
		out, err := outputPath(opts, m)
		if err != nil {
			return err
		}
		// Recompiling an image has no source text to embed.
		var source string
		if opts.image == "" {
			if source, err = readSource(opts, m); err != nil {
				return err
			}
		}
		if err := vm.WriteImage(out, prog, source); err != nil {
			return err
		}
		log.Infof("wrote %s (%d instructions)", out, len(prog))
		if opts.disasm || (m != nil && m.Build.Disassemble) {
			fmt.Fprint(stdout, prog.DisassembleWithName(name))
		}
		return nil

	case opts.disasm:
		fmt.Fprint(stdout, prog.DisassembleWithName(name))
		return nil
	}

	interp := vm.NewInterpreter(stdout)
	interp.Trace = opts.trace
	if err := interp.Run(ctx, prog); err != nil {
		return err
	}
	log.Debugf("%s: %d steps", name, interp.Steps())
	return nil
}

// load produces the program to act on and a display name for it.
func load(ctx context.Context, opts *options, m *manifest.Manifest, cache *store.ContentStore) (vm.Program, string, error) {
	if opts.image != "" {
		if opts.eval != "" || len(opts.args) > 0 {
			return nil, "", fmt.Errorf("%w: -image cannot be combined with -e or a source file", errUsage)
		}
		img, err := vm.ReadImage(opts.image)
		if err != nil {
			return nil, "", err
		}
		return img.Program, filepath.Base(opts.image), nil
	}

	source, err := readSource(opts, m)
	if err != nil {
		return nil, "", err
	}
	name := sourceName(opts, m)

	if cache != nil {
		prog, hit, err := cache.CompileCached(ctx, source)
		if err != nil {
			return nil, "", err
		}
		log.Debugf("%s: cache hit %t", name, hit)
		return prog, name, nil
	}
	prog, err := compiler.Compile(source)
	if err != nil {
		return nil, "", err
	}
	return prog, name, nil
}

// readSource returns the program text named by -e, the file argument or
// the manifest entry, in that order.
func readSource(opts *options, m *manifest.Manifest) (string, error) {
	switch {
	case opts.eval != "":
		if len(opts.args) > 0 {
			return "", fmt.Errorf("%w: -e cannot be combined with a source file", errUsage)
		}
		return opts.eval, nil
	case len(opts.args) == 1:
		data, err := os.ReadFile(opts.args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	case m != nil:
		data, err := os.ReadFile(m.EntryPath())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: no source file given and no %s found", errUsage, manifest.FileName)
}

func sourceName(opts *options, m *manifest.Manifest) string {
	switch {
	case opts.eval != "":
		return "-e"
	case len(opts.args) == 1:
		return filepath.Base(opts.args[0])
	case m != nil:
		return filepath.Base(m.EntryPath())
	}
	return "program"
}

// outputPath picks the image path for -c.
func outputPath(opts *options, m *manifest.Manifest) (string, error) {
	switch {
	case opts.output != "":
		return opts.output, nil
	case len(opts.args) == 1:
		src := opts.args[0]
		return strings.TrimSuffix(src, filepath.Ext(src)) + ".sgmc", nil
	case opts.eval == "" && m != nil:
		return m.OutputPath(), nil
	}
	return "", fmt.Errorf("%w: -c needs -o", errUsage)
}

func serve(ctx context.Context, m *manifest.Manifest, cache *store.ContentStore) error {
	if m == nil {
		m = manifest.Default(".")
	}
	srv := server.New(server.WithCache(cache))
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	return srv.ListenAndServe(m.Server.Addr, m.Server.GRPCAddr)
}
