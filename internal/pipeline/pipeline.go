package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"yotolink/internal/card"
	"yotolink/internal/config"
	"yotolink/internal/logger"
	"yotolink/internal/mapping"
	"yotolink/internal/matcher"
	"yotolink/internal/metadata"
)

// Hooks mirror matcher.Hooks for callers that report progress.
type Hooks struct {
	OnFilesFound func(total int)
	OnProgress   func()
}

// Options tune a single pipeline run.
type Options struct {
	// LocalDir overrides cfg.LocalDir when set.
	LocalDir string
	// Probe overrides the TagLib duration reader.
	Probe metadata.DurationProbe
	Hooks Hooks
}

// Result summarizes a match run.
type Result struct {
	LocalDir string
	Matches  mapping.Mapping
}

// Store opens the mapping store named by the configuration.
func Store(cfg config.Config, log *logger.Logger) *mapping.Store {
	return mapping.NewStore(cfg.MappingFile, log)
}

// Match runs the auto-matcher for c while holding the mapping lock.
func Match(cfg config.Config, log *logger.Logger, c *card.Card, opts Options) (Result, error) {
	dir := opts.LocalDir
	if dir == "" {
		dir = cfg.LocalDir
	}
	if dir == "" {
		return Result{}, fmt.Errorf("no local directory given and local_dir is not configured")
	}

	var res Result
	err := WithLock(cfg, log, func() error {
		m := matcher.New(Store(cfg, log), opts.Probe, log)
		m.DryRun = cfg.DryRun
		m.Hooks = matcher.Hooks{
			OnFilesFound: opts.Hooks.OnFilesFound,
			OnProbed:     opts.Hooks.OnProgress,
		}

		res = Result{LocalDir: dir, Matches: m.AutoMatch(c, dir)}
		return nil
	})
	return res, err
}

// MatchFile loads the card at cardPath and matches it.
func MatchFile(cfg config.Config, log *logger.Logger, cardPath string, opts Options) (Result, error) {
	c, err := card.LoadFile(cardPath)
	if err != nil {
		return Result{}, err
	}
	log.Debug("Loaded card %q with %d chapters", c.Title, len(c.Chapters()))
	return Match(cfg, log, c, opts)
}

// WithLock runs fn while holding the exclusive lock on the mapping file.
// It fails immediately when another process holds the lock.
func WithLock(cfg config.Config, log *logger.Logger, fn func() error) error {
	lockPath := cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire mapping lock %s: %w", lockPath, err)
	}
	if !ok {
		return fmt.Errorf("mapping file is in use by another process (lock %s)", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("Failed to release mapping lock: %v", err)
		}
	}()

	return fn()
}
