package receiver

import (
	"fmt"
	"log"
	"math"
	"time"
)

type Observation struct {
	MetricFingerprint uint64
	MetricName        string
	Value             float64
	Timestamp         time.Time
}

// A ProfileRequest is one complete per-series window, ready for a
// matrix profile computation.
type ProfileRequest struct {
	MetricFingerprint uint64
	MetricName        string
	Values            []float64
	WindowStart       time.Time
	WindowEnd         time.Time
}

type seriesBuffer struct {
	metricName    string
	values        []float64
	windowStartTs time.Time
	windowMaxTs   time.Time
}

// A SeriesAccumulator keeps track of timeseries data as it arrives.
// Each series gets its own tumbling window of windowSize observations,
// keyed by the metric fingerprint. When a window is full, the
// accumulator sends it to a channel and starts the next one. Windows
// tumble independently per series because scrape targets come and go
// at different times.
type SeriesAccumulator struct {
	// This is the number of observations in a window.
	windowSize int

	sampleTime     int
	windowDuration time.Duration

	buffers map[uint64]*seriesBuffer

	requestChannel chan<- *ProfileRequest
}

func maxTime(startTime time.Time, windowDuration time.Duration) time.Time {
	t1 := startTime.Add(windowDuration)

	// This uses Add not Sub because Sub returns a Duration.
	return t1.Add(-1 * time.Second)
}

func NewSeriesAccumulator(windowSize int, sampleInterval int,
	rc chan<- *ProfileRequest) *SeriesAccumulator {
	windowDuration, _ := time.ParseDuration(fmt.Sprintf("%ds", windowSize*sampleInterval))
	return &SeriesAccumulator{
		windowSize:     windowSize,
		sampleTime:     sampleInterval,
		windowDuration: windowDuration,
		buffers:        make(map[uint64]*seriesBuffer),
		requestChannel: rc,
	}
}

// SeriesCount reports how many distinct series the accumulator has seen.
func (a *SeriesAccumulator) SeriesCount() int {
	return len(a.buffers)
}

func (a *SeriesAccumulator) computeSlotIndex(b *seriesBuffer, timestamp time.Time) (int, error) {
	if timestamp.After(b.windowMaxTs) {
		return -1, nil
	}
	if timestamp.Before(b.windowStartTs) {
		return -2, fmt.Errorf("backfill timestamp, ignore")
	}
	diff := timestamp.Sub(b.windowStartTs).Seconds()
	return int(diff / float64(a.sampleTime)), nil
}

func (a *SeriesAccumulator) publishWindow(fingerprint uint64, b *seriesBuffer) {
	// Top up a short window with the last observed value so the
	// profile sees windowSize samples.
	if len(b.values) < cap(b.values) {
		interpolatedValue := float64(0)
		if len(b.values) > 0 {
			interpolatedValue = b.values[len(b.values)-1]
		}
		for i := len(b.values); i < cap(b.values); i++ {
			b.values = append(b.values, interpolatedValue)
		}
	}
	a.requestChannel <- &ProfileRequest{
		MetricFingerprint: fingerprint,
		MetricName:        b.metricName,
		Values:            b.values,
		WindowStart:       b.windowStartTs,
		WindowEnd:         b.windowMaxTs,
	}
	b.values = make([]float64, 0, a.windowSize)
}

func (a *SeriesAccumulator) AddObservation(observation *Observation) {
	b, ok := a.buffers[observation.MetricFingerprint]
	if !ok {
		b = &seriesBuffer{
			metricName:    observation.MetricName,
			values:        make([]float64, 0, a.windowSize),
			windowStartTs: observation.Timestamp,
			windowMaxTs:   maxTime(observation.Timestamp, a.windowDuration),
		}
		a.buffers[observation.MetricFingerprint] = b
	}

	slot, err := a.computeSlotIndex(b, observation.Timestamp)
	if err != nil {
		// This is a backfill, it is safe to ignore.
		return
	}
	if slot < 0 {
		a.publishWindow(observation.MetricFingerprint, b)

		// Now prepare for the next window.
		b.windowStartTs = observation.Timestamp
		b.windowMaxTs = maxTime(observation.Timestamp, a.windowDuration)
		slot, err = a.computeSlotIndex(b, observation.Timestamp)
		if err != nil || slot < 0 {
			log.Printf("failed to compute slot index after resetting buffer: %v\n", err)
			panic("got bad slot after resetting buffer")
		}
	}

	if math.IsNaN(observation.Value) {
		observation.Value = float64(0)
	}

	if slot < len(b.values) {
		// Sometimes there is a double message for the same slot, just ignore it.
		// Could verify that the values are the same here.
		return
	}

	lastSlot := len(b.values) - 1
	// If we have skipped a timeslot, fill the gap with an interpolated value.
	if lastSlot < slot-1 {
		interpolatedValue := float64(0)
		if len(b.values) > 0 {
			interpolatedValue = (b.values[lastSlot] + observation.Value) / float64(2)
		}
		for i := lastSlot + 1; i < slot; i++ {
			b.values = append(b.values, interpolatedValue)
		}
	}
	b.values = append(b.values, observation.Value)
}
