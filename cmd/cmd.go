package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thiagokokada/git-explorer/internal/buildinfo"
	"github.com/thiagokokada/git-explorer/internal/config"
	"github.com/thiagokokada/git-explorer/internal/git"
	"github.com/thiagokokada/git-explorer/internal/rpc"
	"github.com/thiagokokada/git-explorer/internal/server"
	"github.com/thiagokokada/git-explorer/internal/watch"
)

func Run() error {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("git-explorer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	repo := fs.String("repo", "", "repository to open at startup")
	backend := fs.String("backend", "", "repository backend: native, gitcli or auto")
	listen := fs.String("listen", "", "serve over WebSocket on this address instead of stdin/stdout")
	noWatch := fs.Bool("nowatch", false, "disable repository change tracking")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	showSchema := fs.Bool("schema", false, "print the protocol JSON schemas and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		printVersion(stdout)
		return nil
	}
	if *showSchema {
		schemas, err := rpc.Schemas()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schemas)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	// Flags given explicitly win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "repo":
			cfg.Repo = *repo
		case "backend":
			cfg.Backend = *backend
		case "listen":
			cfg.Listen = *listen
		case "nowatch":
			cfg.Watch = !*noWatch
		case "verbose":
			cfg.Verbose = *verbose
		}
	})
	if remaining := fs.Args(); len(remaining) > 0 {
		cfg.Repo = remaining[len(remaining)-1]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(stderr, cfg.Verbose)

	d := rpc.NewDispatcher(dispatcherOptions(cfg))
	defer func() {
		if err := d.Close(); err != nil {
			slog.Error("close session", slog.Any("error", err))
		}
	}()
	if cfg.Repo != "" {
		if err := d.OpenRepository(cfg.Repo); err != nil {
			return err
		}
	}
	if cfg.Listen != "" {
		return server.ListenAndServe(cfg.Listen, d)
	}
	return d.Serve(stdin, rpc.NewWriterSink(stdout))
}

func dispatcherOptions(cfg config.Config) rpc.Options {
	kind := cfg.BackendKind()
	opts := rpc.Options{
		Open: func(path string) (*git.Service, error) {
			return git.Open(path, kind)
		},
	}
	if cfg.Watch {
		opts.Watch = func(repoPath string) (rpc.Tracker, error) {
			t, err := watch.New(repoPath, cfg.WatchDebounce)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	return opts
}

// setupLogging routes slog to stderr; stdout carries protocol frames.
func setupLogging(w io.Writer, verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "git-explorer",
	})
	slog.SetDefault(slog.New(logger))
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, buildinfo.VersionWithTags())
	if v, err := git.GitVersion(); err == nil {
		fmt.Fprintf(w, "%s (gitcli backend needs %s or newer)\n", strings.TrimSpace(v), git.MinGitVersion())
	}
}
