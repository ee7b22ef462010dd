// Package aggregator computes fixed-window, per-sensor averages. One
// worker goroutine wakes at each window boundary, buckets the
// measurements that arrived during the window just elapsed, and
// atomically publishes their per-sensor means for GetAverages to read.
package aggregator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/telemetry"
)

// Average is one sensor's mean over the most recently closed window.
type Average struct {
	SensorID           int
	ReferenceTime      time.Time
	AverageTemperature float64
}

type measurement struct {
	sensorID  int
	value     float64
	arrivedAt time.Time
}

// Option configures an Aggregator at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger for worker lifecycle diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Aggregator buckets measurements into fixed, consecutive windows and
// publishes per-sensor averages at each window boundary.
type Aggregator struct {
	mu           sync.Mutex
	cond         *sync.Cond
	running      bool
	period       time.Duration
	windowEnd    time.Time
	measurements []measurement
	recent       []Average
	wg           sync.WaitGroup
	log          *zap.Logger
}

// New constructs an Aggregator with the given window period and starts
// its worker goroutine.
func New(period time.Duration, opts ...Option) *Aggregator {
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	a := &Aggregator{
		running:   true,
		period:    period,
		windowEnd: time.Now().Add(period),
		log:       o.logger,
	}
	a.cond = sync.NewCond(&a.mu)
	a.wg.Add(1)
	go a.run()
	return a
}

// AddMeasure records value for sensorID, timestamped at the moment of this
// call. It never blocks.
func (a *Aggregator) AddMeasure(sensorID int, value float64) {
	a.mu.Lock()
	a.measurements = append(a.measurements, measurement{
		sensorID:  sensorID,
		value:     value,
		arrivedAt: time.Now(),
	})
	a.mu.Unlock()
}

// GetAverages returns the per-sensor averages for the most recently
// closed window, for every sensor that contributed at least one
// measurement during it. It is empty before the first window closes.
func (a *Aggregator) GetAverages() []Average {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Average, len(a.recent))
	copy(out, a.recent)
	return out
}

// Close stops the worker goroutine and waits for it to exit.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()
	a.cond.Broadcast()
	a.wg.Wait()
}

func (a *Aggregator) run() {
	defer a.wg.Done()
	a.log.Debug("aggregator: worker started", zap.Duration("period", a.period))
	defer a.log.Debug("aggregator: worker stopped")
	a.mu.Lock()
	defer a.mu.Unlock()

	for a.running {
		sleep := time.Until(a.windowEnd)
		if sleep > 0 {
			timer := time.AfterFunc(sleep, func() {
				a.mu.Lock()
				a.cond.Broadcast()
				a.mu.Unlock()
			})
			a.cond.Wait()
			timer.Stop()
			if time.Now().Before(a.windowEnd) {
				// Woken early (e.g. by Close); re-check the outer loop
				// condition rather than closing a window prematurely.
				continue
			}
		}
		if !a.running {
			return
		}

		windowEnd := a.windowEnd
		a.windowEnd = windowEnd.Add(a.period)

		var inWindow []measurement
		var rest []measurement
		for _, m := range a.measurements {
			if m.arrivedAt.Before(windowEnd) {
				inWindow = append(inWindow, m)
			} else {
				rest = append(rest, m)
			}
		}
		a.measurements = rest

		a.mu.Unlock()
		sums := make(map[int]float64)
		counts := make(map[int]int)
		for _, m := range inWindow {
			sums[m.sensorID] += m.value
			counts[m.sensorID]++
		}
		newAverages := make([]Average, 0, len(sums))
		for id, sum := range sums {
			newAverages = append(newAverages, Average{
				SensorID:           id,
				ReferenceTime:      windowEnd,
				AverageTemperature: sum / float64(counts[id]),
			})
		}
		a.mu.Lock()
		a.recent = newAverages
	}
}
