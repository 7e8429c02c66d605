package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"yotolink/internal/config"
	"yotolink/internal/logger"
	"yotolink/internal/pipeline"
	"yotolink/internal/progress"
	"yotolink/internal/shutdown"
)

// errNotFound makes the process exit non-zero without an error message.
var errNotFound = errors.New("not found")

func main() {
	inv, err := parseArgs(os.Args[1:])
	switch {
	case errors.Is(err, errShowHelp):
		printUsage()
		if len(os.Args) < 2 {
			os.Exit(1)
		}
		return
	case errors.Is(err, errInitConfig):
		if err := initConfigFile(); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			os.Exit(1)
		}
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	cfg := inv.cfg
	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose && cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(cfg.LogDir, fmt.Sprintf("yotolink_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}

	// The mapping file is replaced atomically and the kernel drops the flock
	// on exit, so an interrupt only needs to flush the log.
	sh := shutdown.New()
	sh.AddCleanup(func() {
		log.SetProgressBar(false)
		log.Warn("Interrupted, exiting")
		log.Close()
	})
	sh.Listen()
	defer sh.Stop()

	if inv.configPath != "" {
		log.Debug("Loaded configuration from: %s", inv.configPath)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Configuration error: %v", err)
		os.Exit(1)
	}

	if err := run(inv, log, os.Stdout); err != nil {
		if !errors.Is(err, errNotFound) {
			log.Error("%v", err)
		}
		sh.Stop()
		log.Close()
		os.Exit(1)
	}
}

func run(inv invocation, log *logger.Logger, out io.Writer) error {
	cfg := inv.cfg

	switch inv.command {
	case "match":
		return runMatch(inv, log, out)

	case "link":
		return pipeline.WithLock(cfg, log, func() error {
			pipeline.Store(cfg, log).Add(inv.args[0], inv.args[1])
			log.Info("Linked %s -> %s", inv.args[0], inv.args[1])
			return nil
		})

	case "get":
		path, ok := pipeline.Store(cfg, log).Get(inv.args[0])
		if !ok {
			return errNotFound
		}
		fmt.Fprintln(out, path)
		return nil

	case "unlink":
		return pipeline.WithLock(cfg, log, func() error {
			if !pipeline.Store(cfg, log).Remove(inv.args[0]) {
				return fmt.Errorf("no link for %s", inv.args[0])
			}
			log.Info("Removed link for %s", inv.args[0])
			return nil
		})

	case "list":
		m := pipeline.Store(cfg, log).Load()
		refs := make([]string, 0, len(m))
		for ref := range m {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			fmt.Fprintf(out, "%s\t%s\n", ref, m[ref])
		}
		return nil
	}

	return fmt.Errorf("unknown command: %s", inv.command)
}

func runMatch(inv invocation, log *logger.Logger, out io.Writer) error {
	cfg := inv.cfg

	var opts pipeline.Options
	if len(inv.args) > 1 {
		opts.LocalDir = config.ExpandHome(inv.args[1])
	}

	var bar *progress.Bar
	var probed, total int
	finishBar := func() {
		if bar != nil {
			bar.Finish()
			log.SetProgressBar(false)
			bar = nil
		}
	}
	if !cfg.Verbose {
		opts.Hooks = pipeline.Hooks{
			OnFilesFound: func(n int) {
				total = n
				if total > 0 {
					bar = progress.New("Reading durations", total)
					log.SetProgressBar(true)
				}
			},
			// Close the bar once probing is over so match lines reach the console.
			OnProgress: func() {
				probed++
				if bar != nil {
					bar.Increment()
				}
				if probed >= total {
					finishBar()
				}
			},
		}
	}

	res, err := pipeline.MatchFile(cfg, log, inv.args[0], opts)
	finishBar()

	if err != nil {
		return err
	}

	refs := make([]string, 0, len(res.Matches))
	for ref := range res.Matches {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		fmt.Fprintf(out, "%s\t%s\n", ref, res.Matches[ref])
	}

	switch {
	case len(res.Matches) == 0:
		log.Info("No new matches in %s", res.LocalDir)
	case cfg.DryRun:
		log.Info("=== %d new matches (dry run, nothing saved) ===", len(res.Matches))
	default:
		log.Info("=== %d new matches saved to %s ===", len(res.Matches), cfg.MappingFile)
	}
	return nil
}
