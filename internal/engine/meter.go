package engine

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"path/filepath"
	"strings"
)

// DefaultMaxSamples matches the per-channel PCM ring size of common
// visualizer engines.
const DefaultMaxSamples = 2048

// BuiltinPresets are the styles a Meter can draw.
var BuiltinPresets = []string{"bars", "wave", "pulse"}

// Meter is a text-mode engine: it draws channel levels and a waveform into
// out, which the window presents on swap.
type Meter struct {
	out        io.Writer
	width      int
	height     int
	maxSamples int

	preset string
	style  int

	// accumulated since the previous frame
	sumSq [2]float64
	peak  [2]float32
	count int
	wave  []float32
	level [2]float64
}

// NewMeter creates a Meter drawing into out.
func NewMeter(out io.Writer, maxSamples int) *Meter {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	m := &Meter{out: out, width: 80, height: 24, maxSamples: maxSamples}
	m.LoadPreset(BuiltinPresets[0])
	return m
}

func (m *Meter) PCMMaxSamples() int {
	return m.maxSamples
}

// PCMAddFloat folds samples into the current frame's levels. Only the first
// two channels are metered.
func (m *Meter) PCMAddFloat(samples []float32, channels int) {
	if channels <= 0 {
		return
	}
	for f := 0; f+channels <= len(samples); f += channels {
		var mono float32
		for c := 0; c < channels && c < 2; c++ {
			v := samples[f+c]
			m.sumSq[c] += float64(v) * float64(v)
			if a := float32(math.Abs(float64(v))); a > m.peak[c] {
				m.peak[c] = a
			}
			mono += v
		}
		if channels == 1 {
			m.sumSq[1] = m.sumSq[0]
			m.peak[1] = m.peak[0]
		}
		m.count++
		m.wave = append(m.wave, mono/float32(min(channels, 2)))
	}
	if over := len(m.wave) - m.width; over > 0 {
		m.wave = m.wave[over:]
	}
}

func (m *Meter) SetWindowSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
}

// LoadPreset picks a style by name. Unknown names, such as preset file
// paths, map to a style deterministically.
func (m *Meter) LoadPreset(name string) {
	m.preset = name
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for i, p := range BuiltinPresets {
		if strings.EqualFold(base, p) {
			m.style = i
			return
		}
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	m.style = int(h.Sum32() % uint32(len(BuiltinPresets)))
}

// Preset returns the loaded preset name.
func (m *Meter) Preset() string {
	return m.preset
}

// Levels returns the smoothed RMS level per channel after the last render.
func (m *Meter) Levels() (left, right float64) {
	return m.level[0], m.level[1]
}

func (m *Meter) RenderFrame() {
	for c := 0; c < 2; c++ {
		rms := 0.0
		if m.count > 0 {
			rms = math.Sqrt(m.sumSq[c] / float64(m.count))
		}
		// fast attack, slow release
		if rms > m.level[c] {
			m.level[c] = rms
		} else {
			m.level[c] = m.level[c]*0.85 + rms*0.15
		}
	}

	var b strings.Builder
	b.WriteString("\x1b[H")
	fmt.Fprintf(&b, "%-*s\r\n", m.width-1, truncate(fmt.Sprintf(" preset: %s", m.preset), m.width-1))

	rows := max(m.height-2, 1)
	switch BuiltinPresets[m.style] {
	case "bars":
		m.drawBars(&b, rows)
	case "wave":
		m.drawWave(&b, rows)
	default:
		m.drawPulse(&b, rows)
	}
	_, _ = io.WriteString(m.out, b.String())

	m.sumSq = [2]float64{}
	m.peak = [2]float32{}
	m.count = 0
}

func (m *Meter) drawBars(b *strings.Builder, rows int) {
	span := max(m.width-4, 0)
	for r := 0; r < rows; r++ {
		c := 0
		if r >= rows/2 {
			c = 1
		}
		n := int(math.Min(m.level[c]*2, 1) * float64(span))
		label := "L"
		if c == 1 {
			label = "R"
		}
		fmt.Fprintf(b, " %s %s%s\r\n", label, strings.Repeat("#", n), strings.Repeat(" ", span-n))
	}
}

func (m *Meter) drawWave(b *strings.Builder, rows int) {
	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(" ", m.width))
	}
	for x, v := range m.wave {
		if x >= m.width {
			break
		}
		y := int((1 - (float64(v)+1)/2) * float64(rows-1))
		y = min(max(y, 0), rows-1)
		grid[y][x] = '*'
	}
	for _, row := range grid {
		b.Write(row)
		b.WriteString("\r\n")
	}
}

func (m *Meter) drawPulse(b *strings.Builder, rows int) {
	lvl := math.Min((m.level[0]+m.level[1])*1.5, 1)
	radius := lvl * float64(rows) / 2
	cy := float64(rows-1) / 2
	cx := float64(m.width-1) / 2
	for r := 0; r < rows; r++ {
		line := make([]byte, m.width)
		for x := range line {
			// terminal cells are about twice as tall as wide
			dx := (float64(x) - cx) / 2
			dy := float64(r) - cy
			if math.Hypot(dx, dy) <= radius {
				line[x] = 'o'
			} else {
				line[x] = ' '
			}
		}
		b.Write(line)
		b.WriteString("\r\n")
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
