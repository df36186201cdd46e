package settings

import (
	"testing"
)

func TestComputeSettingsFields(t *testing.T) {
	s := QuickmpSettings{}.ComputeSettingsFields()

	if s.Backend != BACKEND_CPU {
		t.Errorf("expected default backend %q but got %q", BACKEND_CPU, s.Backend)
	}
	if s.WindowSize != 1024 {
		t.Errorf("expected default window size 1024 but got %d", s.WindowSize)
	}
	if s.SubsequenceLength != 128 {
		t.Errorf("expected default subsequence length 128 but got %d", s.SubsequenceLength)
	}
	if s.SampleInterval != 20 {
		t.Errorf("expected default sample interval 20 but got %d", s.SampleInterval)
	}
	if s.MaxRowsPerRowGroup != 100000 {
		t.Errorf("expected default row group cap 100000 but got %d", s.MaxRowsPerRowGroup)
	}
}

func TestSubsequenceLengthFollowsWindowSize(t *testing.T) {
	s := QuickmpSettings{WindowSize: 800}.ComputeSettingsFields()
	if s.SubsequenceLength != 100 {
		t.Errorf("expected subsequence length 100 but got %d", s.SubsequenceLength)
	}
}

func TestKernelPathFromEnvironment(t *testing.T) {
	t.Setenv(KernelPathEnvVar, "/tmp/libquickmp-device.vso")

	s := QuickmpSettings{}.ComputeSettingsFields()
	if s.KernelPath != "/tmp/libquickmp-device.vso" {
		t.Errorf("expected kernel path from environment but got %q", s.KernelPath)
	}

	s = QuickmpSettings{KernelPath: "/opt/elsewhere.vso"}.ComputeSettingsFields()
	if s.KernelPath != "/opt/elsewhere.vso" {
		t.Errorf("explicit kernel path should win over the environment, got %q", s.KernelPath)
	}
}
