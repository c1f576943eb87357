// Package sound provides the Sound domain entity.
package sound

import (
	"strings"
	"time"
)

// FrameDuration is the playback length of a single opus frame.
const FrameDuration = 20 * time.Millisecond

// Sound represents a short pre-encoded audio clip.
// A Sound is never mutated after construction; reloads replace the whole value.
type Sound struct {
	ID       string   // Catalog ID (e.g. "OSTRICH")
	File     string   // Source file path
	Keywords []string // Trigger keywords
	Frames   [][]byte // Opus frames, in playback order
}

// New creates a sound with normalized keywords.
func New(id, file string, keywords []string, frames [][]byte) *Sound {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = NormalizeKeyword(k); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &Sound{
		ID:       id,
		File:     file,
		Keywords: normalized,
		Frames:   frames,
	}
}

// Duration returns the playback length of the sound.
func (s *Sound) Duration() time.Duration {
	return time.Duration(len(s.Frames)) * FrameDuration
}

// Size returns the total size of the encoded frames in bytes.
func (s *Sound) Size() uint64 {
	var total uint64
	for _, f := range s.Frames {
		total += uint64(len(f))
	}
	return total
}

// Matches reports whether the token triggers this sound.
func (s *Sound) Matches(token string) bool {
	token = NormalizeKeyword(token)
	for _, k := range s.Keywords {
		if k == token {
			return true
		}
	}
	return false
}

// WithFrames returns a copy of the sound carrying new frames.
func (s *Sound) WithFrames(frames [][]byte) *Sound {
	return &Sound{
		ID:       s.ID,
		File:     s.File,
		Keywords: s.Keywords,
		Frames:   frames,
	}
}

// NormalizeKeyword lowercases and trims a keyword or chat token.
func NormalizeKeyword(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
