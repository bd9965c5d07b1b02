// Package playlist keeps the ordered list of presets and loads the selected
// one into the engine.
package playlist

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// PresetExt is the extension of preset files picked up by AddPath.
const PresetExt = ".milk"

// ErrEmpty is returned when navigating a playlist with no presets.
var ErrEmpty = errors.New("playlist is empty")

// Loader is the part of the engine the playlist drives.
type Loader interface {
	LoadPreset(name string)
}

// Playlist is not safe for concurrent use; it belongs to the render thread.
type Playlist struct {
	loader  Loader
	log     zerolog.Logger
	rng     *rand.Rand
	items   []string
	seen    map[string]struct{}
	current int
}

// New creates an empty playlist. A nil rng uses a time-seeded source.
func New(loader Loader, rng *rand.Rand, log zerolog.Logger) *Playlist {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Playlist{
		loader:  loader,
		log:     log.With().Str("component", "playlist").Logger(),
		rng:     rng,
		seen:    make(map[string]struct{}),
		current: -1,
	}
}

// Add appends presets by name, skipping ones already present. It returns
// how many were added.
func (p *Playlist) Add(names ...string) int {
	added := 0
	for _, name := range names {
		if _, dup := p.seen[name]; dup {
			continue
		}
		p.seen[name] = struct{}{}
		p.items = append(p.items, name)
		added++
	}
	return added
}

// AddPath adds every preset file under root in lexical order. Subdirectories
// are only visited when recursive is set.
func (p *Playlist) AddPath(root string, recursive bool) (int, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), PresetExt) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan presets in %s: %w", root, err)
	}
	sort.Strings(found)
	added := p.Add(found...)
	p.log.Info().Str("path", root).Int("added", added).Msg("Loaded presets")
	return added, nil
}

func (p *Playlist) Len() int {
	return len(p.items)
}

// Current returns the loaded preset, or "" before the first selection.
func (p *Playlist) Current() string {
	if p.current < 0 {
		return ""
	}
	return p.items[p.current]
}

// PlayNext loads the following preset, wrapping at the end.
func (p *Playlist) PlayNext() error {
	if len(p.items) == 0 {
		return ErrEmpty
	}
	p.play((p.current + 1) % len(p.items))
	return nil
}

// PlayPrev loads the preceding preset, wrapping at the start.
func (p *Playlist) PlayPrev() error {
	if len(p.items) == 0 {
		return ErrEmpty
	}
	i := p.current - 1
	if i < 0 {
		i = len(p.items) - 1
	}
	p.play(i)
	return nil
}

// PlayRandom loads a random preset other than the current one when the
// playlist has more than one.
func (p *Playlist) PlayRandom() error {
	n := len(p.items)
	if n == 0 {
		return ErrEmpty
	}
	i := p.rng.Intn(n)
	if n > 1 && i == p.current {
		i = (i + 1 + p.rng.Intn(n-1)) % n
	}
	p.play(i)
	return nil
}

func (p *Playlist) play(i int) {
	p.current = i
	p.log.Debug().Str("preset", p.items[i]).Int("index", i).Msg("Loading preset")
	p.loader.LoadPreset(p.items[i])
}
