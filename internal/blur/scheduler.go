package blur

import (
	"runtime"
	"sync"

	"github.com/lockveil/lockveil/internal/logger"
)

// Scheduler runs the six blur passes across the available hardware
// threads. The vertical phase partitions the image into column bands,
// the horizontal phase into row bands; bands within a phase are
// disjoint, so concurrent workers never write the same element. A
// channel rendezvous between the phases guarantees no worker reads a
// band a peer has not finished.
type Scheduler struct {
	workers int
}

// NewScheduler returns a scheduler using the given number of parallel
// workers; zero or negative selects the logical CPU count.
func NewScheduler(workers int) *Scheduler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{workers: workers}
}

// Workers returns the configured parallelism.
func (s *Scheduler) Workers() int { return s.workers }

// Blur applies the full triple box blur to the packed buffer in
// primary, using scratch as the ping-pong partner. Both must hold
// width*height*4 bytes. The finished image is left in primary.
func (s *Scheduler) Blur(primary, scratch []byte, width, height int, rad Radius) {
	p := s.workers
	if p == 1 {
		verticalPasses(primary, scratch, width, height, 0, width, rad)
		horizontalPasses(primary, scratch, width, height, 0, height, rad)
		return
	}

	logger.WithComponent("blur").Debug().
		Int("workers", p).
		Int("radius", rad.Pixels()).
		Msg("Scheduling parallel blur")

	// Spawn p-1 workers; the calling goroutine takes the last band of
	// each phase so it does its share instead of sitting idle.
	vDone := make(chan struct{}, p-1)
	rowBands := make([]chan [2]int, p-1)
	var wg sync.WaitGroup
	for i := 0; i < p-1; i++ {
		rowBands[i] = make(chan [2]int, 1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verticalPasses(primary, scratch, width, height, width*i/p, width*(i+1)/p, rad)
			vDone <- struct{}{}
			band := <-rowBands[i]
			horizontalPasses(primary, scratch, width, height, band[0], band[1], rad)
		}(i)
	}

	verticalPasses(primary, scratch, width, height, width*(p-1)/p, width, rad)

	// Rendezvous: collect every vertical-done message before any
	// worker is released into the horizontal phase.
	for i := 0; i < p-1; i++ {
		<-vDone
	}
	for i := 0; i < p-1; i++ {
		rowBands[i] <- [2]int{height * i / p, height * (i + 1) / p}
	}

	horizontalPasses(primary, scratch, width, height, height*(p-1)/p, height, rad)

	wg.Wait()
}
