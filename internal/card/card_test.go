package card

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCard = `{
  "cardId": "test_card_1",
  "title": "Test Story",
  "content": {
    "chapters": [
      {
        "key": "01",
        "title": "Chapter One",
        "tracks": [
          {"key": "k1", "title": "Intro Track", "duration": 120.5, "trackUrl": "yoto:#track1", "format": "mp3"},
          {"key": "k2", "title": "Main Story", "duration": 600, "trackUrl": "yoto:#track2"}
        ]
      },
      {
        "key": "02",
        "title": "Chapter Two",
        "tracks": [
          {"key": "k3", "title": "Outro", "trackUrl": "https://example.com/outro.mp3"}
        ]
      }
    ]
  }
}`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCard))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if c.CardID != "test_card_1" || c.Title != "Test Story" {
		t.Errorf("card header = %q/%q", c.CardID, c.Title)
	}

	chapters := c.Chapters()
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if len(chapters[0].Tracks) != 2 {
		t.Fatalf("expected 2 tracks in chapter one, got %d", len(chapters[0].Tracks))
	}

	intro := chapters[0].Tracks[0]
	if intro.Title != "Intro Track" || intro.TrackURL != "yoto:#track1" {
		t.Errorf("intro track = %+v", intro)
	}
	if d, ok := intro.ExpectedDuration(); !ok || d != 120.5 {
		t.Errorf("intro duration = %v, %v; want 120.5, true", d, ok)
	}
	if !intro.HasUploadRef() {
		t.Error("intro track should carry an upload reference")
	}

	outro := chapters[1].Tracks[0]
	if outro.Duration != nil {
		t.Errorf("outro duration should be absent, got %v", *outro.Duration)
	}
	if outro.HasUploadRef() {
		t.Error("outro URL is not an upload reference")
	}
}

func TestParseEnvelope(t *testing.T) {
	c, err := Parse([]byte(`{"card": ` + sampleCard + `}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if c.CardID != "test_card_1" {
		t.Errorf("CardID = %q, want test_card_1", c.CardID)
	}
	if len(c.Chapters()) != 2 {
		t.Errorf("expected 2 chapters from envelope, got %d", len(c.Chapters()))
	}
}

func TestParseTolerantShapes(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		wantContent  bool
		wantChapters int
	}{
		{"no content", `{"title": "x"}`, false, 0},
		{"content not object", `{"content": "nope"}`, false, 0},
		{"chapters missing", `{"content": {}}`, true, 0},
		{"chapters not array", `{"content": {"chapters": 3}}`, true, 0},
		{"chapter not object", `{"content": {"chapters": [1, {"tracks": []}]}}`, true, 1},
		{"tracks not array", `{"content": {"chapters": [{"tracks": {}}]}}`, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if (c.Content != nil) != tt.wantContent {
				t.Errorf("content present = %v, want %v", c.Content != nil, tt.wantContent)
			}
			if got := len(c.Chapters()); got != tt.wantChapters {
				t.Errorf("chapters = %d, want %d", got, tt.wantChapters)
			}
		})
	}
}

func TestParseMistypedTrackFields(t *testing.T) {
	doc := `{"content": {"chapters": [{"tracks": [{"title": 5, "trackUrl": null, "duration": "120"}]}]}}`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	tr := c.Chapters()[0].Tracks[0]
	if tr.Title != "" || tr.TrackURL != "" {
		t.Errorf("mistyped strings should be empty, got %+v", tr)
	}
	if tr.Duration != nil {
		t.Error("string duration should be treated as absent")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, doc := range []string{"", "{", "[1, 2]", `"card"`} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%q) should fail", doc)
		}
	}
}

func TestExpectedDurationZero(t *testing.T) {
	zero := 0.0
	if _, ok := (Track{Duration: &zero}).ExpectedDuration(); ok {
		t.Error("zero duration should be reported as unknown")
	}
	if _, ok := (Track{}).ExpectedDuration(); ok {
		t.Error("nil duration should be reported as unknown")
	}
}

func TestNilCardChapters(t *testing.T) {
	var c *Card
	if c.Chapters() != nil {
		t.Error("nil card should have no chapters")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.json")
	if err := os.WriteFile(path, []byte(sampleCard), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if c.Title != "Test Story" {
		t.Errorf("Title = %q, want Test Story", c.Title)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile should fail for a missing file")
	}
}
