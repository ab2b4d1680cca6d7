package blur

import (
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerDefaultsToCPUCount(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewScheduler(0).Workers())
	assert.Equal(t, runtime.NumCPU(), NewScheduler(-1).Workers())
	assert.Equal(t, 3, NewScheduler(3).Workers())
}

// randomImage fills a packed buffer from a fixed seed so runs are
// reproducible.
func randomImage(t *testing.T, width, height int, seed int64) []byte {
	t.Helper()
	buf := make([]byte, width*height*4)
	rng := rand.New(rand.NewSource(seed))
	_, err := rng.Read(buf)
	require.NoError(t, err)
	return buf
}

func TestBlurIsWorkerCountInvariant(t *testing.T) {
	// Band partitioning must not change numerical results: the output
	// for P>1 is byte-identical to the serial output.
	tests := []struct {
		name   string
		width  int
		height int
		radius int
	}{
		{"square", 32, 32, 4},
		{"wide", 97, 13, 8},
		{"tall", 13, 97, 8},
		{"radius beyond extent", 9, 7, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rad, err := NewRadius(tt.radius)
			require.NoError(t, err)

			src := randomImage(t, tt.width, tt.height, 42)

			reference := make([]byte, len(src))
			copy(reference, src)
			scratch := make([]byte, len(src))
			NewScheduler(1).Blur(reference, scratch, tt.width, tt.height, rad)

			for _, workers := range []int{2, 3, 4, 8} {
				parallel := make([]byte, len(src))
				copy(parallel, src)
				scratch := make([]byte, len(src))
				NewScheduler(workers).Blur(parallel, scratch, tt.width, tt.height, rad)

				require.Equal(t, reference, parallel, "workers=%d", workers)
			}
		})
	}
}

func TestBlurMoreWorkersThanColumns(t *testing.T) {
	// More bands than columns leaves some bands empty; those workers
	// must still rendezvous correctly.
	const width, height = 3, 24
	rad, err := NewRadius(2)
	require.NoError(t, err)

	src := randomImage(t, width, height, 7)

	reference := make([]byte, len(src))
	copy(reference, src)
	NewScheduler(1).Blur(reference, make([]byte, len(src)), width, height, rad)

	parallel := make([]byte, len(src))
	copy(parallel, src)
	NewScheduler(8).Blur(parallel, make([]byte, len(src)), width, height, rad)

	assert.Equal(t, reference, parallel)
}

func TestBlurSmoothsGradient(t *testing.T) {
	// A hard vertical edge must end up smoothed: the blurred column
	// adjacent to the edge takes intermediate values.
	const width, height = 64, 64
	primary := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			i := (y*width + x) * 4
			primary[i+2] = 0xFF
		}
	}
	scratch := make([]byte, len(primary))

	rad, err := NewRadius(8)
	require.NoError(t, err)
	NewScheduler(2).Blur(primary, scratch, width, height, rad)

	mid := (height/2*width + width/2) * 4
	r := primary[mid+2]
	assert.Greater(t, r, byte(0x10))
	assert.Less(t, r, byte(0xF0))
}
