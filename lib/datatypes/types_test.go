package datatypes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProfileJsonRoundtrip(t *testing.T) {
	p := Profile{
		MetricFingerprint: 12345,
		MetricName:        "node_cpu_seconds_total",
		SubsequenceLength: 8,
		ComputedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Distances:         []float64{1.5, 0.25, 3.0},
	}
	encoded, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("failed to marshal profile: %v", err)
	}
	var decoded Profile
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("failed to unmarshal profile: %v", err)
	}
	if decoded.MetricFingerprint != p.MetricFingerprint ||
		decoded.MetricName != p.MetricName ||
		decoded.SubsequenceLength != p.SubsequenceLength {
		t.Errorf("metadata changed in roundtrip: %+v", decoded)
	}
	if !decoded.ComputedAt.Equal(p.ComputedAt) {
		t.Errorf("timestamp changed in roundtrip: %v", decoded.ComputedAt)
	}
	if len(decoded.Distances) != len(p.Distances) {
		t.Fatalf("expected %d distances but got %d", len(p.Distances), len(decoded.Distances))
	}
	for i, d := range p.Distances {
		if decoded.Distances[i] != d {
			t.Errorf("distance %d changed in roundtrip: %f vs %f", i, decoded.Distances[i], d)
		}
	}
}

func TestMinMaxIndex(t *testing.T) {
	p := Profile{Distances: []float64{2.0, 0.5, 4.0, 1.0}}
	if got := p.MinIndex(); got != 1 {
		t.Errorf("expected motif at 1 but got %d", got)
	}
	if got := p.MaxIndex(); got != 2 {
		t.Errorf("expected discord at 2 but got %d", got)
	}
	empty := Profile{}
	if got := empty.MinIndex(); got != -1 {
		t.Errorf("expected -1 for empty profile but got %d", got)
	}
	if got := empty.MaxIndex(); got != -1 {
		t.Errorf("expected -1 for empty profile but got %d", got)
	}
}
