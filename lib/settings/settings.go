// Package settings contains all the parameters for the quickmp engines
// and the remote-write receiver.
package settings

import (
	"os"
)

const (
	BACKEND_CPU   = "cpu"
	BACKEND_ACCEL = "accel"
	BACKEND_SIM   = "sim" // in-process simulator, for development and tests
)

// KernelPathEnvVar names the environment variable consulted when no
// kernel path is configured explicitly.
const KernelPathEnvVar = "QUICKMP_KERNEL_PATH"

type QuickmpSettings struct {
	// Which engine to build: cpu, accel or sim.
	Backend string

	// Path to the prebuilt device kernel artifact. Only the accelerator
	// backend reads it. Falls back to QUICKMP_KERNEL_PATH.
	KernelPath string

	// The device selection handed to Initialize. A DeviceCount of zero
	// selects all devices from DeviceStart on.
	DeviceStart int
	DeviceCount int

	// The number of samples collected per series before the receiver
	// computes a profile.
	WindowSize int

	// The subsequence length (m) used for profiles.
	SubsequenceLength int

	// How often we expect new samples, in seconds.
	SampleInterval int

	// Report raw euclidean distances instead of z-normalized ones.
	RawDistance bool

	// Where reporters write their output files.
	ResultsDirectory string

	// Number of rows per row group in Parquet. Bigger numbers mean more
	// memory usage but better compression.
	MaxRowsPerRowGroup int64
}

func (s QuickmpSettings) ComputeSettingsFields() QuickmpSettings {
	if s.Backend == "" {
		s.Backend = BACKEND_CPU
	}
	if s.KernelPath == "" {
		s.KernelPath = os.Getenv(KernelPathEnvVar)
	}
	if s.WindowSize == 0 {
		s.WindowSize = 1024
	}
	if s.SubsequenceLength == 0 {
		s.SubsequenceLength = s.WindowSize / 8
	}
	if s.SampleInterval == 0 {
		s.SampleInterval = 20
	}
	if s.ResultsDirectory == "" {
		s.ResultsDirectory = "."
	}
	if s.MaxRowsPerRowGroup == 0 {
		s.MaxRowsPerRowGroup = 100000
	}
	return s
}
