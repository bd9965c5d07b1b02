package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	channels   int
	available  int
	shortReads int
	dead       bool
}

func (f *fakeSource) Channels() int  { return f.channels }
func (f *fakeSource) Available() int { return f.available }

func (f *fakeSource) Read(dst []float32) int {
	if f.dead {
		return 0
	}
	n := min(len(dst)/f.channels, f.available)
	if f.shortReads > 0 {
		n = min(n, f.shortReads)
	}
	for i := 0; i < n*f.channels; i++ {
		dst[i] = 0.25
	}
	f.available -= n
	return n
}

type fakeSink struct {
	max     int
	calls   []int
	queries int
}

func (f *fakeSink) PCMMaxSamples() int {
	f.queries++
	return f.max
}

func (f *fakeSink) PCMAddFloat(samples []float32, channels int) {
	f.calls = append(f.calls, len(samples)/channels)
}

type countRecorder struct{ frames, chunks int }

func (c *countRecorder) PCMForwarded(frames int) {
	c.frames += frames
	c.chunks++
}

func TestDrainSplitsIntoEngineSizedChunks(t *testing.T) {
	src := &fakeSource{channels: 2, available: 2500}
	sink := &fakeSink{max: 1024}
	rec := &countRecorder{}

	n := New(src, sink, rec).Drain()

	assert.Equal(t, 2500, n)
	assert.Equal(t, []int{1024, 1024, 452}, sink.calls)
	assert.Equal(t, 0, src.available)
	assert.Equal(t, 2500, rec.frames)
	assert.Equal(t, 3, rec.chunks)
	assert.GreaterOrEqual(t, sink.queries, 3, "limit is queried before every chunk")
}

func TestDrainNeverExceedsMax(t *testing.T) {
	const max = 512
	for available := 0; available <= 10*max; available += 37 {
		src := &fakeSource{channels: 2, available: available}
		sink := &fakeSink{max: max}

		n := New(src, sink, nil).Drain()

		assert.Equal(t, available, n)
		sum := 0
		for _, c := range sink.calls {
			assert.LessOrEqual(t, c, max)
			assert.Positive(t, c)
			sum += c
		}
		assert.Equal(t, available, sum)
	}
}

func TestDrainIdleSource(t *testing.T) {
	sink := &fakeSink{max: 1024}

	n := New(&fakeSource{channels: 2}, sink, nil).Drain()

	assert.Zero(t, n)
	assert.Empty(t, sink.calls)
}

func TestDrainStopsOnEmptyRead(t *testing.T) {
	src := &fakeSource{channels: 2, available: 100}
	src.dead = true
	sink := &fakeSink{max: 64}

	n := New(src, sink, nil).Drain()

	assert.Zero(t, n)
	assert.Empty(t, sink.calls)
}

func TestDrainShortReads(t *testing.T) {
	src := &fakeSource{channels: 1, available: 100, shortReads: 30}
	sink := &fakeSink{max: 64}

	n := New(src, sink, nil).Drain()

	assert.Equal(t, 100, n)
	assert.Equal(t, []int{30, 30, 30, 10}, sink.calls)
}

func TestDrainFollowsChangingLimit(t *testing.T) {
	src := &fakeSource{channels: 2, available: 300}
	sink := &limitSink{limits: []int{100, 50}}

	New(src, sink, nil).Drain()

	assert.Equal(t, []int{100, 50, 50, 50, 50}, sink.calls)
}

type limitSink struct {
	limits []int
	calls  []int
}

func (l *limitSink) PCMMaxSamples() int {
	if len(l.calls) < len(l.limits) {
		return l.limits[len(l.calls)]
	}
	return l.limits[len(l.limits)-1]
}

func (l *limitSink) PCMAddFloat(samples []float32, channels int) {
	l.calls = append(l.calls, len(samples)/channels)
}

func TestDrainForwardsSamplesUnmodified(t *testing.T) {
	src := &fakeSource{channels: 2, available: 3}
	var got []float32
	sink := &captureSink{max: 8, got: &got}

	New(src, sink, nil).Drain()

	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25, 0.25, 0.25}, got)
}

type captureSink struct {
	max int
	got *[]float32
}

func (c *captureSink) PCMMaxSamples() int { return c.max }

func (c *captureSink) PCMAddFloat(samples []float32, channels int) {
	*c.got = append(*c.got, samples...)
}
