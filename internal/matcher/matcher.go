// Package matcher links card tracks to local audio files by comparing play
// length and normalized titles.
package matcher

import (
	"math"
	"path/filepath"
	"strings"

	"yotolink/internal/card"
	"yotolink/internal/logger"
	"yotolink/internal/mapping"
	"yotolink/internal/metadata"
	"yotolink/pkg/utils"
)

// DurationTolerance is the largest accepted gap in seconds between a track's
// expected length and a local file's length.
const DurationTolerance = 1.5

// minTitleLength guards against matching on titles like "A" or "Ok".
const minTitleLength = 2

// Candidate is a local audio file eligible for matching.
type Candidate struct {
	Path      string
	Duration  float64
	CleanName string
}

// Hooks receive progress notifications during a scan.
type Hooks struct {
	OnFilesFound func(total int)
	OnProbed     func()
}

// Matcher finds local files for card tracks and records them in a Store.
type Matcher struct {
	store  *mapping.Store
	probe  metadata.DurationProbe
	logger *logger.Logger

	Hooks Hooks
	// DryRun reports matches without persisting them.
	DryRun bool
}

// New creates a Matcher. A nil probe falls back to metadata.ProbeDuration.
func New(store *mapping.Store, probe metadata.DurationProbe, log *logger.Logger) *Matcher {
	if probe == nil {
		probe = metadata.ProbeDuration
	}
	return &Matcher{store: store, probe: probe, logger: log}
}

// Candidates scans dir for audio files with a readable duration. Files
// whose duration can't be read are left out.
func (m *Matcher) Candidates(dir string) []Candidate {
	files, err := utils.FindAudioFiles(dir)
	if err != nil {
		m.logger.Debug("Audio scan of %s failed: %v", dir, err)
		return nil
	}

	m.logger.Debug("Found %d potential audio files", len(files))
	if m.Hooks.OnFilesFound != nil {
		m.Hooks.OnFilesFound(len(files))
	}

	candidates := make([]Candidate, 0, len(files))
	for _, f := range files {
		dur, ok := m.probe(f)
		if m.Hooks.OnProbed != nil {
			m.Hooks.OnProbed()
		}
		if !ok {
			m.logger.Debug("No duration for %s, skipping", f)
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		candidates = append(candidates, Candidate{
			Path:      f,
			Duration:  dur,
			CleanName: metadata.NormalizeTitle(stem),
		})
	}
	return candidates
}

// AutoMatch links every unmapped upload track of c to the first local file
// under localDir that agrees on duration and title. Existing links are never
// touched. The mapping is saved once when anything new matched. It returns
// only the links added by this call.
func (m *Matcher) AutoMatch(c *card.Card, localDir string) mapping.Mapping {
	matches := mapping.Mapping{}
	if !utils.IsDir(localDir) {
		return matches
	}

	m.logger.Info("Scanning %s for potential track matches...", localDir)
	candidates := m.Candidates(localDir)
	if len(candidates) == 0 {
		m.logger.Warn("No audio files found or duration readable in %s", localDir)
		return matches
	}

	chapters := c.Chapters()
	if len(chapters) == 0 {
		return matches
	}

	links := m.store.Load()
	for _, chapter := range chapters {
		for _, track := range chapter.Tracks {
			if !track.HasUploadRef() {
				continue
			}
			if _, ok := links[track.TrackURL]; ok {
				continue
			}

			cand, ok := firstMatch(track, candidates)
			if !ok {
				continue
			}

			path := absPath(cand.Path)
			links[track.TrackURL] = path
			matches[track.TrackURL] = path
			m.logger.Info("Matched %s -> %s", track.Title, cand.Path)
		}
	}

	if len(matches) > 0 && !m.DryRun {
		m.store.Save(links)
	}
	return matches
}

// firstMatch returns the first candidate within DurationTolerance of the
// track whose name contains the track title or is contained by it.
func firstMatch(track card.Track, candidates []Candidate) (Candidate, bool) {
	expected, ok := track.ExpectedDuration()
	if !ok {
		return Candidate{}, false
	}

	title := metadata.NormalizeTitle(track.Title)
	if len(title) <= minTitleLength {
		return Candidate{}, false
	}

	for _, cand := range candidates {
		if math.Abs(cand.Duration-expected) > DurationTolerance {
			continue
		}
		if strings.Contains(cand.CleanName, title) || strings.Contains(title, cand.CleanName) {
			return cand, true
		}
	}
	return Candidate{}, false
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
