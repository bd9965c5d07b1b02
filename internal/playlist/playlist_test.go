package playlist

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLoader struct {
	loaded []string
}

func (r *recordingLoader) LoadPreset(name string) {
	r.loaded = append(r.loaded, name)
}

func newTestPlaylist(t *testing.T) (*Playlist, *recordingLoader) {
	t.Helper()
	l := &recordingLoader{}
	return New(l, rand.New(rand.NewSource(1)), zerolog.Nop()), l
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[preset00]\n"), 0o644))
}

func TestAddSkipsDuplicates(t *testing.T) {
	p, _ := newTestPlaylist(t)
	assert.Equal(t, 2, p.Add("a", "b", "a"))
	assert.Equal(t, 0, p.Add("b"))
	assert.Equal(t, 2, p.Len())
}

func TestAddPath(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.milk"))
	touch(t, filepath.Join(root, "a.MILK"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.milk"))

	t.Run("flat", func(t *testing.T) {
		p, _ := newTestPlaylist(t)
		n, err := p.AddPath(root, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{filepath.Join(root, "a.MILK"), filepath.Join(root, "b.milk")}, p.items)
	})

	t.Run("recursive", func(t *testing.T) {
		p, _ := newTestPlaylist(t)
		n, err := p.AddPath(root, true)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		again, err := p.AddPath(root, true)
		require.NoError(t, err)
		assert.Zero(t, again)
		assert.Equal(t, 3, p.Len())
	})

	t.Run("missing dir", func(t *testing.T) {
		p, _ := newTestPlaylist(t)
		_, err := p.AddPath(filepath.Join(root, "nope"), true)
		assert.Error(t, err)
	})
}

func TestNextPrevWrap(t *testing.T) {
	p, l := newTestPlaylist(t)
	p.Add("a", "b", "c")
	assert.Equal(t, "", p.Current())

	require.NoError(t, p.PlayNext())
	require.NoError(t, p.PlayNext())
	require.NoError(t, p.PlayNext())
	require.NoError(t, p.PlayNext())
	assert.Equal(t, []string{"a", "b", "c", "a"}, l.loaded)

	require.NoError(t, p.PlayPrev())
	assert.Equal(t, "c", p.Current())
}

func TestPrevFromStart(t *testing.T) {
	p, _ := newTestPlaylist(t)
	p.Add("a", "b", "c")
	require.NoError(t, p.PlayPrev())
	assert.Equal(t, "c", p.Current())
}

func TestRandomNeverRepeats(t *testing.T) {
	p, _ := newTestPlaylist(t)
	p.Add("a", "b")
	require.NoError(t, p.PlayNext())
	for i := 0; i < 50; i++ {
		prev := p.Current()
		require.NoError(t, p.PlayRandom())
		assert.NotEqual(t, prev, p.Current())
	}
}

func TestRandomSingle(t *testing.T) {
	p, l := newTestPlaylist(t)
	p.Add("only")
	require.NoError(t, p.PlayRandom())
	require.NoError(t, p.PlayRandom())
	assert.Equal(t, []string{"only", "only"}, l.loaded)
}

func TestEmptyPlaylist(t *testing.T) {
	p, l := newTestPlaylist(t)
	assert.ErrorIs(t, p.PlayNext(), ErrEmpty)
	assert.ErrorIs(t, p.PlayPrev(), ErrEmpty)
	assert.ErrorIs(t, p.PlayRandom(), ErrEmpty)
	assert.Empty(t, l.loaded)
}
