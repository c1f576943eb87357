// Package catalog provides the keyword-to-sound lookup table.
package catalog

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/domain/sound"
)

var (
	ErrDuplicateID      = errors.New("duplicate sound id")
	ErrDuplicateKeyword = errors.New("duplicate sound keyword")
	ErrUnknownFile      = errors.New("file does not belong to any sound")
)

// Entry describes one sound to load.
type Entry struct {
	ID       string
	File     string // Relative to the catalog directory unless absolute
	Keywords []string
}

// Catalog maps trigger keywords to sounds with thread-safe access.
type Catalog struct {
	mu        sync.RWMutex
	byID      map[string]*sound.Sound
	byKeyword map[string]string // keyword -> sound ID
	byFile    map[string]string // cleaned path -> sound ID
}

// Load reads every entry's frames from disk and builds a catalog.
func Load(dir string, entries []Entry) (*Catalog, error) {
	c := &Catalog{
		byID:      make(map[string]*sound.Sound, len(entries)),
		byKeyword: make(map[string]string),
		byFile:    make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		if _, exists := c.byID[e.ID]; exists {
			return nil, errors.Wrapf(ErrDuplicateID, "%s", e.ID)
		}

		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		path = filepath.Clean(path)

		frames, err := sound.LoadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load sound %s", e.ID)
		}

		s := sound.New(e.ID, path, e.Keywords, frames)
		for _, k := range s.Keywords {
			if other, exists := c.byKeyword[k]; exists {
				return nil, errors.Wrapf(ErrDuplicateKeyword, "%q used by %s and %s", k, other, e.ID)
			}
			c.byKeyword[k] = s.ID
		}
		c.byID[s.ID] = s
		c.byFile[path] = s.ID

		zlog.Debug().Msgf("catalog: loaded sound: id=%s keywords=%v frames=%d duration=%v size=%s",
			s.ID, s.Keywords, len(s.Frames), s.Duration(), humanize.Bytes(s.Size()))
	}

	zlog.Info().Msgf("catalog: %d sound(s) loaded from %s", len(c.byID), dir)
	return c, nil
}

// Lookup returns the sound triggered by the token.
func (c *Catalog) Lookup(token string) (*sound.Sound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byKeyword[sound.NormalizeKeyword(token)]
	if !ok {
		return nil, false
	}
	return c.byID[id], true
}

// Get returns a sound by ID.
func (c *Catalog) Get(id string) (*sound.Sound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Sounds returns all sounds ordered by ID.
func (c *Catalog) Sounds() []*sound.Sound {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*sound.Sound, 0, len(c.byID))
	for _, s := range c.byID {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Files returns the file paths of all sounds.
func (c *Catalog) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files := make([]string, 0, len(c.byFile))
	for f := range c.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Contains reports whether path is the file of a catalog sound.
func (c *Catalog) Contains(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byFile[filepath.Clean(path)]
	return ok
}

// Reload re-reads the frames of the sound stored at path.
// On failure the previous frames are kept.
func (c *Catalog) Reload(path string) error {
	path = filepath.Clean(path)

	c.mu.RLock()
	id, ok := c.byFile[path]
	c.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrUnknownFile, "%s", path)
	}

	// Read outside the lock; lookups keep serving the old frames meanwhile
	frames, err := sound.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to reload sound %s", id)
	}

	c.mu.Lock()
	reloaded := c.byID[id].WithFrames(frames)
	c.byID[id] = reloaded
	c.mu.Unlock()

	zlog.Info().Msgf("catalog: reloaded sound: id=%s frames=%d duration=%v size=%s",
		id, len(frames), reloaded.Duration(), humanize.Bytes(reloaded.Size()))
	return nil
}
