package card

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// TrackURLPrefix marks track references that point at uploaded card audio.
const TrackURLPrefix = "yoto:#"

// Card is the root of a card document.
type Card struct {
	CardID  string
	Title   string
	Content *CardContent
}

// CardContent holds the ordered chapters of a card.
type CardContent struct {
	Chapters []Chapter
}

// Chapter is an ordered list of tracks.
type Chapter struct {
	Key    string
	Title  string
	Tracks []Track
}

// Track is a single playable item of a chapter.
type Track struct {
	Key      string
	Title    string
	TrackURL string
	Duration *float64 // seconds, nil when the card doesn't say
}

// HasUploadRef reports whether the track URL is an uploaded-audio reference.
func (t Track) HasUploadRef() bool {
	return strings.HasPrefix(t.TrackURL, TrackURLPrefix)
}

// ExpectedDuration returns the track duration in seconds. A missing or zero
// duration is reported as unknown.
func (t Track) ExpectedDuration() (float64, bool) {
	if t.Duration == nil || *t.Duration == 0 {
		return 0, false
	}
	return *t.Duration, true
}

// Chapters returns the card chapters, or nil when the card has no content.
func (c *Card) Chapters() []Chapter {
	if c == nil || c.Content == nil {
		return nil
	}
	return c.Content.Chapters
}

// Parse reads a card document. Only malformed JSON is an error; missing or
// mistyped fields are left empty. Both a bare card and a {"card": {...}}
// envelope are accepted.
func Parse(data []byte) (*Card, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid card JSON")
	}

	root := gjson.ParseBytes(data)
	if env := root.Get("card"); env.IsObject() {
		root = env
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("card document must be a JSON object")
	}

	c := &Card{
		CardID: stringField(root, "cardId"),
		Title:  stringField(root, "title"),
	}

	content := root.Get("content")
	if !content.IsObject() {
		return c, nil
	}
	c.Content = &CardContent{}

	for _, ch := range arrayField(content, "chapters") {
		if !ch.IsObject() {
			continue
		}
		chapter := Chapter{
			Key:   stringField(ch, "key"),
			Title: stringField(ch, "title"),
		}
		for _, tr := range arrayField(ch, "tracks") {
			if !tr.IsObject() {
				continue
			}
			chapter.Tracks = append(chapter.Tracks, parseTrack(tr))
		}
		c.Content.Chapters = append(c.Content.Chapters, chapter)
	}

	return c, nil
}

// LoadFile reads and parses a card document from disk.
func LoadFile(path string) (*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse card %s: %w", path, err)
	}
	return c, nil
}

func parseTrack(tr gjson.Result) Track {
	t := Track{
		Key:      stringField(tr, "key"),
		Title:    stringField(tr, "title"),
		TrackURL: stringField(tr, "trackUrl"),
	}
	if d := tr.Get("duration"); d.Type == gjson.Number {
		secs := d.Float()
		t.Duration = &secs
	}
	return t
}

func stringField(r gjson.Result, key string) string {
	v := r.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

func arrayField(r gjson.Result, key string) []gjson.Result {
	v := r.Get(key)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}
