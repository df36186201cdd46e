// Package receiver turns a prometheus remote-write stream into matrix
// profile computations.
package receiver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/kpaschen/quickmp/lib"
	"github.com/kpaschen/quickmp/lib/datatypes"
	"github.com/kpaschen/quickmp/lib/reporter"
	"github.com/kpaschen/quickmp/lib/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/prompb"
	"github.com/prometheus/prometheus/storage/remote"
)

var (
	receivedSamples = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quickmp_received_samples_total",
			Help: "Total number of received samples.",
		},
	)
	requestedProfiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quickmp_requested_profiles_total",
			Help: "Total number of times a profile computation has been requested.",
		},
	)
	numberOfTimeseries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quickmp_number_of_timeseries",
			Help: "number of timeseries",
		},
	)
	profileDurationHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:                            "quickmp_profile_duration_milliseconds_histogram",
			Help:                            "Duration of profile computation calls.",
			Buckets:                         prometheus.DefBuckets,
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  10,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
	)
	profileDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quickmp_profile_duration_milliseconds",
			Help: "Duration of profile computation calls.",
		},
	)
	profileErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quickmp_profile_errors_total",
			Help: "Number of profile computations that returned an error.",
		},
	)
)

func init() {
	prometheus.MustRegister(receivedSamples)
	prometheus.MustRegister(requestedProfiles)
	prometheus.MustRegister(numberOfTimeseries)
	prometheus.MustRegister(profileDurationHist)
	prometheus.MustRegister(profileDuration)
	prometheus.MustRegister(profileErrors)
}

type ProfileProcessor struct {
	accumulator      *SeriesAccumulator
	settings         *settings.QuickmpSettings
	engine           lib.Engine
	observationQueue chan (*Observation)
	requestChannel   chan (*ProfileRequest)
	profileChannel   chan (*datatypes.Profile)
	reporter         reporter.Reporter
}

func (t *ProfileProcessor) observeTs(req *prompb.WriteRequest) error {
	for _, ts := range req.Timeseries {
		metric := make(model.Metric, len(ts.Labels))
		for _, l := range ts.Labels {
			metric[model.LabelName(l.Name)] = model.LabelValue(l.Value)
		}
		mjson, err := json.Marshal(metric)
		if err != nil {
			return err
		}
		metricName := string(mjson)
		sampleCounter := 0
		for _, s := range ts.Samples {
			t.observationQueue <- &Observation{
				MetricFingerprint: (uint64)(metric.Fingerprint()),
				MetricName:        metricName,
				Value:             s.Value,
				Timestamp:         time.Unix(s.Timestamp/1000, 0).UTC(),
			}
			sampleCounter++
		}
		receivedSamples.Add(float64(sampleCounter))
	}
	return nil
}

func (t *ProfileProcessor) ReceivePrometheusData(w http.ResponseWriter, r *http.Request) {
	req, err := remote.DecodeWriteRequest(r.Body)
	if err != nil {
		log.Printf("failed to decode write request: %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// TODO: either this or the accumulator need to evaluate the stale marker.
	// That is a special NaN value 0x7ff0000000000002

	err = t.observeTs(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (t *ProfileProcessor) Shutdown() error {
	if t.reporter != nil {
		return t.reporter.Flush()
	}
	return nil
}

func (t *ProfileProcessor) computeProfile(request *ProfileRequest, stream int) {
	requestedProfiles.Inc()
	requestStart := time.Now()
	distances, err := t.engine.SelfJoin(request.Values,
		t.settings.SubsequenceLength, stream, !t.settings.RawDistance)
	if err != nil {
		profileErrors.Inc()
		log.Printf("profile computation for %s failed: %v\n", request.MetricName, err)
		return
	}
	elapsed := time.Since(requestStart)
	profileDurationHist.Observe(float64(elapsed.Milliseconds()))
	profileDuration.Set(float64(elapsed.Milliseconds()))

	t.profileChannel <- &datatypes.Profile{
		MetricFingerprint: request.MetricFingerprint,
		MetricName:        request.MetricName,
		SubsequenceLength: t.settings.SubsequenceLength,
		ComputedAt:        time.Now().UTC(),
		Distances:         distances,
	}
}

func NewProfileProcessor(quickmpConfig settings.QuickmpSettings,
	engine lib.Engine, rep reporter.Reporter) *ProfileProcessor {

	// The observation queue is how we hand timeseries data to the accumulator.
	observationQueue := make(chan *Observation, 1)

	// The request channel is how the accumulator lets us know a series
	// window is full.
	requestChannel := make(chan *ProfileRequest, 1)

	// The profile channel is where we hear about finished profiles.
	profileChannel := make(chan *datatypes.Profile, 1)

	processor := &ProfileProcessor{
		accumulator: NewSeriesAccumulator(quickmpConfig.WindowSize,
			quickmpConfig.SampleInterval, requestChannel),
		settings:         &quickmpConfig,
		engine:           engine,
		observationQueue: observationQueue,
		requestChannel:   requestChannel,
		profileChannel:   profileChannel,
		reporter:         rep,
	}

	go func() {
		log.Println("watching observation queue")
		for observation := range observationQueue {
			processor.accumulator.AddObservation(observation)
			numberOfTimeseries.Set(float64(processor.accumulator.SeriesCount()))
		}
	}()

	// One worker per stream; independent windows overlap on the engine's
	// streams.
	streamCount, err := engine.StreamCount()
	if err != nil || streamCount < 1 {
		streamCount = 1
	}
	for stream := 0; stream < streamCount; stream++ {
		go func(stream int) {
			for request := range requestChannel {
				processor.computeProfile(request, stream)
			}
		}(stream)
	}

	// All writing to the reporter happens from this goroutine.
	go func() {
		log.Println("waiting for profiles")
		for profile := range profileChannel {
			if err := processor.reporter.AddProfile(profile); err != nil {
				log.Printf("failed to log results: %v\n", err)
			}
		}
	}()

	return processor
}
