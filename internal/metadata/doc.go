// Package metadata derives the match signals of local audio files: a
// normalized title and the playback length read with TagLib.
package metadata
