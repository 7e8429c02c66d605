package matcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yotolink/internal/card"
	"yotolink/internal/logger"
	"yotolink/internal/mapping"
)

// fakeProbe returns fixed durations keyed by file name. Files not listed
// have no readable duration.
type fakeProbe struct {
	durations map[string]float64
	calls     int
}

func (p *fakeProbe) probe(path string) (float64, bool) {
	p.calls++
	d, ok := p.durations[filepath.Base(path)]
	return d, ok
}

type fixture struct {
	dir     string
	store   *mapping.Store
	probe   *fakeProbe
	matcher *Matcher
	out     *bytes.Buffer
}

func newFixture(t *testing.T, files map[string]float64) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0600); err != nil {
			t.Fatal(err)
		}
	}

	durations := make(map[string]float64, len(files))
	for name, d := range files {
		if d >= 0 {
			durations[filepath.Base(name)] = d
		}
	}

	var out bytes.Buffer
	log := logger.NewWithWriters(true, &out, &out)
	store := mapping.NewStore(filepath.Join(t.TempDir(), "local_tracks.json"), log)
	probe := &fakeProbe{durations: durations}

	return &fixture{
		dir:     dir,
		store:   store,
		probe:   probe,
		matcher: New(store, probe.probe, log),
		out:     &out,
	}
}

func seconds(v float64) *float64 { return &v }

func oneTrackCard(title string, duration *float64, ref string) *card.Card {
	return &card.Card{Content: &card.CardContent{Chapters: []card.Chapter{{
		Tracks: []card.Track{{Title: title, Duration: duration, TrackURL: ref}},
	}}}}
}

func storyCard() *card.Card {
	return &card.Card{
		CardID: "test_card_1",
		Title:  "Test Story",
		Content: &card.CardContent{Chapters: []card.Chapter{{
			Title: "Chapter One",
			Tracks: []card.Track{
				{Key: "k1", Title: "Intro Track", Duration: seconds(120.5), TrackURL: "yoto:#track1"},
				{Key: "k2", Title: "Main Story", Duration: seconds(600.0), TrackURL: "yoto:#track2"},
			},
		}}},
	}
}

func fileModTime(t *testing.T, path string) (int64, bool) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.ModTime().UnixNano(), true
}

func TestAutoMatchStory(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"01 Intro Track.mp3": 120.0,
		"02 Main Story.m4a":  601.5,
	})

	matched := f.matcher.AutoMatch(storyCard(), f.dir)

	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %v", matched)
	}
	if !strings.HasSuffix(matched["yoto:#track1"], "01 Intro Track.mp3") {
		t.Errorf("track1 -> %q", matched["yoto:#track1"])
	}
	if !strings.HasSuffix(matched["yoto:#track2"], "02 Main Story.m4a") {
		t.Errorf("track2 -> %q", matched["yoto:#track2"])
	}
	for ref, path := range matched {
		if !filepath.IsAbs(path) {
			t.Errorf("%s mapped to relative path %q", ref, path)
		}
	}

	saved := f.store.Load()
	if len(saved) != 2 || saved["yoto:#track1"] != matched["yoto:#track1"] {
		t.Errorf("persisted mapping = %v", saved)
	}
	if !strings.Contains(f.out.String(), "Matched Intro Track -> ") {
		t.Errorf("expected match log line, got %q", f.out.String())
	}
	if n := strings.Count(f.out.String(), "Saved "); n != 1 {
		t.Errorf("store saved %d times, want 1", n)
	}
	if !strings.Contains(f.out.String(), "Saved 2 track mappings") {
		t.Errorf("expected a single save of both matches, got %q", f.out.String())
	}
}

func TestAutoMatchIdempotent(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"01 Intro Track.mp3": 120.0,
		"02 Main Story.m4a":  601.5,
	})

	if first := f.matcher.AutoMatch(storyCard(), f.dir); len(first) != 2 {
		t.Fatalf("first run matched %d, want 2", len(first))
	}
	before, _ := fileModTime(t, f.store.Path())

	if second := f.matcher.AutoMatch(storyCard(), f.dir); len(second) != 0 {
		t.Errorf("second run should match nothing, got %v", second)
	}
	after, _ := fileModTime(t, f.store.Path())
	if before != after {
		t.Error("second run should not rewrite the mapping file")
	}
}

func TestAutoMatchNeverOverwritesExisting(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"01 Intro Track.mp3": 120.5,
	})
	f.store.Add("yoto:#track1", "/elsewhere/old intro.mp3")

	matched := f.matcher.AutoMatch(storyCard(), f.dir)

	if _, ok := matched["yoto:#track1"]; ok {
		t.Error("already mapped track must not be re-evaluated")
	}
	if got, _ := f.store.Get("yoto:#track1"); got != "/elsewhere/old intro.mp3" {
		t.Errorf("existing mapping overwritten: %q", got)
	}
}

func TestAutoMatchMissingDirectory(t *testing.T) {
	f := newFixture(t, nil)

	matched := f.matcher.AutoMatch(storyCard(), filepath.Join(f.dir, "does-not-exist"))

	if matched == nil || len(matched) != 0 {
		t.Errorf("expected empty non-nil result, got %v", matched)
	}
	if _, ok := fileModTime(t, f.store.Path()); ok {
		t.Error("no save should happen for a missing directory")
	}
	if f.probe.calls != 0 {
		t.Errorf("no files should be probed, got %d calls", f.probe.calls)
	}
}

func TestAutoMatchNoReadableDurations(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"01 Intro Track.mp3": -1,
	})

	matched := f.matcher.AutoMatch(storyCard(), f.dir)

	if len(matched) != 0 {
		t.Errorf("files without duration must not match, got %v", matched)
	}
	if !strings.Contains(f.out.String(), "No audio files found or duration readable") {
		t.Errorf("expected empty-scan warning, got %q", f.out.String())
	}
	if _, ok := fileModTime(t, f.store.Path()); ok {
		t.Error("no save should happen without matches")
	}
}

func TestAutoMatchDurationGate(t *testing.T) {
	tests := []struct {
		name      string
		fileSecs  float64
		wantMatch bool
	}{
		{"exact", 100, true},
		{"1.5 over", 101.5, true},
		{"1.5 under", 98.5, true},
		{"just over tolerance", 101.50001, false},
		{"just under tolerance", 98.49999, false},
		{"far off", 300, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]float64{"Bedtime Tale.mp3": tt.fileSecs})
			matched := f.matcher.AutoMatch(oneTrackCard("Bedtime Tale", seconds(100), "yoto:#t"), f.dir)
			if got := len(matched) == 1; got != tt.wantMatch {
				t.Errorf("match = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestAutoMatchTitleGate(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		file      string
		wantMatch bool
	}{
		{"two characters never match", "Ok", "Ok.mp3", false},
		{"three character substring", "Owl", "03 The Owl Song.mp3", true},
		{"file name inside title", "Longer Story Title", "Story.mp3", true},
		{"no containment", "Goodnight Moon", "Rise And Shine.mp3", false},
		{"normalization applied to both", "the owl_song!", "03 - THE OWL SONG.mp3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]float64{tt.file: 42})
			matched := f.matcher.AutoMatch(oneTrackCard(tt.title, seconds(42), "yoto:#t"), f.dir)
			if got := len(matched) == 1; got != tt.wantMatch {
				t.Errorf("match = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestAutoMatchRequiresExpectedDuration(t *testing.T) {
	for name, dur := range map[string]*float64{"absent": nil, "zero": seconds(0)} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, map[string]float64{"Bedtime Tale.mp3": 0})
			matched := f.matcher.AutoMatch(oneTrackCard("Bedtime Tale", dur, "yoto:#t"), f.dir)
			if len(matched) != 0 {
				t.Errorf("track without duration must not match, got %v", matched)
			}
		})
	}
}

func TestAutoMatchIgnoresOtherReferences(t *testing.T) {
	f := newFixture(t, map[string]float64{"Bedtime Tale.mp3": 60})

	for _, ref := range []string{"", "https://cdn.example.com/tale.mp3", "YOTO:#t", "yoto:t"} {
		matched := f.matcher.AutoMatch(oneTrackCard("Bedtime Tale", seconds(60), ref), f.dir)
		if len(matched) != 0 {
			t.Errorf("reference %q should be ignored, got %v", ref, matched)
		}
	}
}

func TestAutoMatchEmptyCard(t *testing.T) {
	f := newFixture(t, map[string]float64{"Bedtime Tale.mp3": 60})

	cards := map[string]*card.Card{
		"nil card":    nil,
		"no content":  {Title: "x"},
		"no chapters": {Content: &card.CardContent{}},
	}
	for name, c := range cards {
		if matched := f.matcher.AutoMatch(c, f.dir); len(matched) != 0 {
			t.Errorf("%s: expected no matches, got %v", name, matched)
		}
	}
}

func TestAutoMatchFirstCandidateWins(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"a/Lullaby.mp3": 90,
		"b/Lullaby.mp3": 90.2,
		"Lullaby.m4a":   90,
	})
	f.probe.durations = map[string]float64{"Lullaby.mp3": 90, "Lullaby.m4a": 90}

	matched := f.matcher.AutoMatch(oneTrackCard("Lullaby", seconds(90), "yoto:#l"), f.dir)

	want := filepath.Join(f.dir, "a", "Lullaby.mp3")
	if matched["yoto:#l"] != want {
		t.Errorf("matched %q, want %q", matched["yoto:#l"], want)
	}
}

func TestAutoMatchSameFileForTwoTracks(t *testing.T) {
	f := newFixture(t, map[string]float64{"Lullaby.mp3": 90})
	c := &card.Card{Content: &card.CardContent{Chapters: []card.Chapter{
		{Tracks: []card.Track{{Title: "Lullaby", Duration: seconds(90), TrackURL: "yoto:#1"}}},
		{Tracks: []card.Track{{Title: "Lullaby", Duration: seconds(91), TrackURL: "yoto:#2"}}},
	}}}

	matched := f.matcher.AutoMatch(c, f.dir)
	if len(matched) != 2 || matched["yoto:#1"] != matched["yoto:#2"] {
		t.Errorf("both tracks should claim the same file, got %v", matched)
	}
}

func TestAutoMatchDryRun(t *testing.T) {
	f := newFixture(t, map[string]float64{"01 Intro Track.mp3": 120.0})
	f.matcher.DryRun = true

	matched := f.matcher.AutoMatch(storyCard(), f.dir)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %v", matched)
	}
	if _, ok := fileModTime(t, f.store.Path()); ok {
		t.Error("dry run must not write the mapping file")
	}
	if strings.Contains(f.out.String(), "Saved ") {
		t.Errorf("dry run logged a save: %q", f.out.String())
	}
}

func TestCandidatesHooks(t *testing.T) {
	f := newFixture(t, map[string]float64{
		"one.mp3":   10,
		"two.ogg":   -1,
		"three.wav": 30,
	})

	var total, probed int
	f.matcher.Hooks = Hooks{
		OnFilesFound: func(n int) { total = n },
		OnProbed:     func() { probed++ },
	}

	cands := f.matcher.Candidates(f.dir)
	if total != 3 || probed != 3 {
		t.Errorf("hooks saw total=%d probed=%d, want 3 and 3", total, probed)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].CleanName != "One" || cands[1].CleanName != "Three" {
		t.Errorf("candidate names = %q, %q", cands[0].CleanName, cands[1].CleanName)
	}
}
