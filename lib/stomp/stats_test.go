package stomp

import (
	"math"
	"testing"
)

func directMeanStd(window []float64) (float64, float64) {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))
	sq := 0.0
	for _, v := range window {
		diff := v - mean
		sq += diff * diff
	}
	return mean, math.Sqrt(sq / float64(len(window)))
}

func TestMeanStd(t *testing.T) {
	series := randomSeries(500, 7)
	m := 20

	mu, sigma, err := MeanStd(series, m)
	if err != nil {
		t.Fatalf("MeanStd failed: %v", err)
	}
	if len(mu) != 481 || len(sigma) != 481 {
		t.Fatalf("expected 481 windows but got %d mu and %d sigma", len(mu), len(sigma))
	}
	for i := range mu {
		expectedMu, expectedSigma := directMeanStd(series[i : i+m])
		if relativeDiff(mu[i], expectedMu) > 1e-9 {
			t.Errorf("window %d: expected mean %f but got %f", i, expectedMu, mu[i])
		}
		if math.Abs(sigma[i]-expectedSigma) > 1e-9 {
			t.Errorf("window %d: expected std %f but got %f", i, expectedSigma, sigma[i])
		}
	}
}

func TestMeanStdConstantWindow(t *testing.T) {
	series := []float64{3.0, 3.0, 3.0, 3.0, 3.0}

	mu, sigma, err := MeanStd(series, 3)
	if err != nil {
		t.Fatalf("MeanStd failed: %v", err)
	}
	for i := range mu {
		if math.Abs(mu[i]-3.0) > 1e-12 {
			t.Errorf("window %d: expected mean 3 but got %f", i, mu[i])
		}
		if sigma[i] > stddevFloor {
			t.Errorf("window %d: expected degenerate std but got %g", i, sigma[i])
		}
	}
}

func TestSquaredSums(t *testing.T) {
	series := randomSeries(300, 8)
	m := 15

	s, err := SquaredSums(series, m)
	if err != nil {
		t.Fatalf("SquaredSums failed: %v", err)
	}
	if len(s) != 286 {
		t.Fatalf("expected 286 windows but got %d", len(s))
	}
	for i := range s {
		expected := 0.0
		for _, v := range series[i : i+m] {
			expected += v * v
		}
		if relativeDiff(s[i], expected) > 1e-9 {
			t.Errorf("window %d: expected %f but got %f", i, expected, s[i])
		}
	}
}
