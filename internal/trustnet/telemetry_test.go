package trustnet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectionAccuracy(t *testing.T) {
	t.Parallel()

	t.Run("zero while no fakes seen", func(t *testing.T) {
		t.Parallel()
		stats := &Stats{}
		stats.AddReport()
		assert.Equal(t, 0.0, stats.Totals().DetectionAccuracy())
	})

	t.Run("ratio of detected to ground-truth fakes", func(t *testing.T) {
		t.Parallel()
		stats := &Stats{}
		for i := 0; i < 4; i++ {
			stats.AddFakeReport()
		}
		stats.AddDetectedFake()
		stats.AddDetectedFake()
		stats.AddDetectedFake()
		assert.InDelta(t, 0.75, stats.Totals().DetectionAccuracy(), 1e-9)
	})
}

func TestStatsCountersConcurrent(t *testing.T) {
	t.Parallel()

	stats := &Stats{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.AddReport()
			stats.AddDropped()
			stats.AddDispatch()
		}()
	}
	wg.Wait()

	totals := stats.Totals()
	assert.Equal(t, 100, totals.TotalReports)
	assert.Equal(t, 100, totals.DroppedReports)
	assert.Equal(t, 100, totals.Dispatches)
}
