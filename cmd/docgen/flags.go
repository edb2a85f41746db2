package main

import (
	"time"

	"github.com/goliatone/go-docgen/cmd/docgen/config"
	flag "github.com/spf13/pflag"
)

const (
	commandServe = "serve"
	commandBatch = "batch"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	command string
	config  string
	host    string
	port    string
	driver  string
	verbose bool

	// batch only
	from        string
	out         string
	maxRequests int
	minInterval time.Duration

	set map[string]bool
}

// parseFlags parses args (including the program name). The first positional
// argument selects the command; it defaults to serve.
func parseFlags(args []string) (cliFlags, error) {
	flags := cliFlags{command: commandServe, set: map[string]bool{}}
	rest := []string{}
	if len(args) > 1 {
		rest = args[1:]
	}
	if len(rest) > 0 && (rest[0] == commandServe || rest[0] == commandBatch) {
		flags.command = rest[0]
		rest = rest[1:]
	}

	fs := flag.NewFlagSet("docgen "+flags.command, flag.ContinueOnError)
	fs.StringVarP(&flags.config, "config", "c", "", "path to YAML config file")
	fs.StringVar(&flags.host, "host", "", "listen host")
	fs.StringVarP(&flags.port, "port", "p", "", "listen port")
	fs.StringVar(&flags.driver, "driver", "", "browser driver: chromedp or rod")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	if flags.command == commandBatch {
		fs.StringVar(&flags.from, "from", "", "JSON file listing documents to convert")
		fs.StringVarP(&flags.out, "out", "o", ".", "output directory")
		fs.IntVar(&flags.maxRequests, "max", 0, "convert at most this many documents (0 = all)")
		fs.DurationVar(&flags.minInterval, "interval", 0, "pause between documents")
	}

	if err := fs.Parse(rest); err != nil {
		return flags, err
	}
	fs.Visit(func(f *flag.Flag) {
		flags.set[f.Name] = true
	})
	return flags, nil
}

// apply overrides cfg with explicitly set flags.
func (f cliFlags) apply(cfg *config.Config) {
	if f.set["host"] {
		cfg.Server.Host = f.host
	}
	if f.set["port"] {
		cfg.Server.Port = f.port
	}
	if f.set["driver"] {
		cfg.Engine.Driver = f.driver
	}
	if f.set["max"] {
		cfg.Batch.MaxRequests = f.maxRequests
	}
	if f.set["interval"] {
		cfg.Batch.MinInterval = config.Duration(f.minInterval)
	}
}
