package metadata

import (
	"fmt"
	"time"

	"go.senan.xyz/taglib"
)

// DurationProbe reports the playback length of an audio file in seconds.
// ok is false when the length could not be determined.
type DurationProbe func(path string) (seconds float64, ok bool)

// ProbeDuration reads the audio length of path with TagLib. Read errors and
// unsupported formats are reported as unavailable.
func ProbeDuration(path string) (float64, bool) {
	d, err := ReadDuration(path)
	if err != nil {
		return 0, false
	}
	return d.Seconds(), true
}

// ReadDuration returns the audio length stored in the file properties.
func ReadDuration(path string) (time.Duration, error) {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio properties of %s: %w", path, err)
	}
	return props.Length, nil
}
