package timecoder

// Monitor is a decaying oscilloscope-style display of the primary vs.
// secondary channel amplitudes, sized size x size pixels. It exists
// purely for UI consumption (cmd/xwaxmon); it is not read by the
// decode path.
type Monitor struct {
	Size  int
	grid  []byte
	scale float64

	samplesSinceDecay int
}

// NewMonitor constructs a size x size monitor grid.
func NewMonitor(size int) *Monitor {
	return &Monitor{
		Size:  size,
		grid:  make([]byte, size*size),
		scale: float64(size/2) / 32768.0,
	}
}

// decayShift is applied to every pixel each time the grid decays, so
// old traces fade rather than accumulate indefinitely.
const decayShift = 3

// decayEvery is how many Plot calls pass between grid decays: decaying
// every sample would fade a trace out almost immediately and do
// O(size^2) work per captured sample on the realtime Submit path.
const decayEvery = 512

// Plot records one (primary, secondary) sample pair as a bright pixel
// at the corresponding XY position, decaying the rest of the grid
// once every decayEvery calls.
func (m *Monitor) Plot(primary, secondary float64) {
	m.samplesSinceDecay++
	if m.samplesSinceDecay >= decayEvery {
		m.samplesSinceDecay = 0
		for i, v := range m.grid {
			m.grid[i] = v - v>>decayShift
		}
	}

	x := int(float64(m.Size/2) + primary*m.scale)
	y := int(float64(m.Size/2) + secondary*m.scale)
	if x < 0 {
		x = 0
	}
	if x >= m.Size {
		x = m.Size - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.Size {
		y = m.Size - 1
	}
	m.grid[y*m.Size+x] = 0xFF
}

// At returns the intensity at (x, y), 0-255.
func (m *Monitor) At(x, y int) byte {
	return m.grid[y*m.Size+x]
}
