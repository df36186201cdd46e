package stomp

import (
	"math"
	"testing"
)

func zNormalize(window []float64) []float64 {
	mean, sigma := directMeanStd(window)
	z := make([]float64, len(window))
	if sigma <= stddevFloor {
		return z
	}
	for i, v := range window {
		z[i] = (v - mean) / sigma
	}
	return z
}

func windowDistance(a []float64, b []float64, normalize bool) float64 {
	if normalize {
		a = zNormalize(a)
		b = zNormalize(b)
	}
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func bruteForceSelfJoin(t []float64, m int, normalize bool) []float64 {
	rows := len(t) - m + 1
	excl := ExclusionZone(m)
	p := make([]float64, rows)
	for i := range p {
		p[i] = math.Inf(1)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			if j-i <= excl && i-j <= excl {
				continue
			}
			d := windowDistance(t[i:i+m], t[j:j+m], normalize)
			if d < p[i] {
				p[i] = d
			}
		}
	}
	return p
}

func bruteForceABJoin(t1 []float64, t2 []float64, m int, normalize bool) []float64 {
	cols := len(t1) - m + 1
	rows := len(t2) - m + 1
	p := make([]float64, cols)
	for j := range p {
		p[j] = math.Inf(1)
	}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			d := windowDistance(t1[j:j+m], t2[i:i+m], normalize)
			if d < p[j] {
				p[j] = d
			}
		}
	}
	return p
}

func TestSelfJoinShapeAndDeterminism(t *testing.T) {
	series := randomSeries(200, 11)
	for _, m := range []int{1, 2, 5, 50, 200} {
		p, err := SelfJoin(series, m, true)
		if err != nil {
			t.Fatalf("selfjoin failed for m=%d: %v", m, err)
		}
		if len(p) != len(series)-m+1 {
			t.Errorf("m=%d: expected profile length %d but got %d", m, len(series)-m+1, len(p))
		}
		p2, err := SelfJoin(series, m, true)
		if err != nil {
			t.Fatalf("repeated selfjoin failed for m=%d: %v", m, err)
		}
		for i := range p {
			if p[i] != p2[i] {
				t.Errorf("m=%d index %d: repeated call gave %f then %f", m, i, p[i], p2[i])
			}
		}
	}
}

func TestSelfJoinMatchesBruteForce(t *testing.T) {
	series := randomSeries(120, 12)
	m := 8

	p, err := SelfJoin(series, m, true)
	if err != nil {
		t.Fatalf("selfjoin failed: %v", err)
	}
	expected := bruteForceSelfJoin(series, m, true)
	for i := range p {
		if math.Abs(p[i]-expected[i]) > 1e-8 {
			t.Errorf("index %d: expected %.12f but got %.12f", i, expected[i], p[i])
		}
	}
}

func TestSelfJoinEuclideanMatchesBruteForce(t *testing.T) {
	series := randomSeries(120, 13)
	m := 8

	p, err := SelfJoin(series, m, false)
	if err != nil {
		t.Fatalf("euclidean selfjoin failed: %v", err)
	}
	expected := bruteForceSelfJoin(series, m, false)
	for i := range p {
		if math.Abs(p[i]-expected[i]) > 1e-8 {
			t.Errorf("index %d: expected %.12f but got %.12f", i, expected[i], p[i])
		}
	}
}

// The exclusion zone keeps a window from matching its own neighborhood:
// the brute force above skips |i-j| <= ceil(m/4), so agreement with it
// also pins down the zone. This test additionally checks that overlapping
// near-identical windows do not produce a spurious zero.
func TestSelfJoinHonorsExclusionZone(t *testing.T) {
	// A slow ramp: adjacent windows are nearly identical, so without the
	// exclusion zone every distance would be almost zero.
	n := 100
	m := 10
	series := make([]float64, n)
	for i := range series {
		series[i] = float64(i) + 0.5*math.Sin(float64(i))
	}

	p, err := SelfJoin(series, m, false)
	if err != nil {
		t.Fatalf("selfjoin failed: %v", err)
	}
	expected := bruteForceSelfJoin(series, m, false)
	for i := range p {
		if math.Abs(p[i]-expected[i]) > 1e-8 {
			t.Errorf("index %d: expected %.12f but got %.12f", i, expected[i], p[i])
		}
	}
}

func TestSelfJoinFindsPlantedPattern(t *testing.T) {
	n := 1000
	m := 50
	series := make([]float64, n)
	for i := range series {
		series[i] = math.Sin(2.0 * math.Pi * float64(i) / 130.0)
	}
	pattern := randomSeries(m, 14)
	copy(series[100:], pattern)
	copy(series[700:], pattern)

	p, err := SelfJoin(series, m, true)
	if err != nil {
		t.Fatalf("selfjoin failed: %v", err)
	}
	if p[100] > 1e-4 {
		t.Errorf("expected near-zero distance at first planted location but got %g", p[100])
	}
	if p[700] > 1e-4 {
		t.Errorf("expected near-zero distance at second planted location but got %g", p[700])
	}
}

func TestABJoinMatchesBruteForce(t *testing.T) {
	t1 := randomSeries(50, 15)
	t2 := randomSeries(60, 16)
	m := 5

	p, err := ABJoin(t1, t2, m, true)
	if err != nil {
		t.Fatalf("abjoin failed: %v", err)
	}
	if len(p) != len(t1)-m+1 {
		t.Fatalf("expected profile length %d but got %d", len(t1)-m+1, len(p))
	}
	expected := bruteForceABJoin(t1, t2, m, true)
	for i := range p {
		if math.Abs(p[i]-expected[i]) > 1e-8 {
			t.Errorf("index %d: expected %.12f but got %.12f", i, expected[i], p[i])
		}
	}
}

func TestABJoinEuclideanMatchesBruteForce(t *testing.T) {
	t1 := randomSeries(40, 17)
	t2 := randomSeries(55, 18)
	m := 6

	p, err := ABJoin(t1, t2, m, false)
	if err != nil {
		t.Fatalf("euclidean abjoin failed: %v", err)
	}
	expected := bruteForceABJoin(t1, t2, m, false)
	for i := range p {
		if math.Abs(p[i]-expected[i]) > 1e-8 {
			t.Errorf("index %d: expected %.12f but got %.12f", i, expected[i], p[i])
		}
	}
}

// abjoin of a series with itself has no exclusion zone, so every window
// finds itself at distance zero.
func TestABJoinWithSelfIsZero(t *testing.T) {
	series := randomSeries(50, 19)
	m := 5

	p, err := ABJoin(series, series, m, true)
	if err != nil {
		t.Fatalf("abjoin failed: %v", err)
	}
	for i := range p {
		if p[i] > 1e-6 {
			t.Errorf("index %d: expected zero distance to itself but got %g", i, p[i])
		}
	}
}

func TestMetricsDivergeOnRawInput(t *testing.T) {
	series := make([]float64, 150)
	for i := range series {
		// Growing amplitude, so windows differ in scale.
		series[i] = float64(i) * math.Sin(float64(i))
	}
	m := 10

	normalized, err := SelfJoin(series, m, true)
	if err != nil {
		t.Fatalf("normalized selfjoin failed: %v", err)
	}
	raw, err := SelfJoin(series, m, false)
	if err != nil {
		t.Fatalf("raw selfjoin failed: %v", err)
	}
	maxDiff := 0.0
	for i := range normalized {
		diff := math.Abs(normalized[i] - raw[i])
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	if maxDiff < 1e-3 {
		t.Errorf("expected metrics to diverge on non-normalized input, max difference was %g", maxDiff)
	}
}

// On input whose every window already has mean 0 and std 1, both metrics
// must coincide.
func TestMetricsCoincideOnNormalizedInput(t *testing.T) {
	series := make([]float64, 64)
	for i := range series {
		if i%2 == 0 {
			series[i] = 1.0
		} else {
			series[i] = -1.0
		}
	}
	m := 2

	normalized, err := SelfJoin(series, m, true)
	if err != nil {
		t.Fatalf("normalized selfjoin failed: %v", err)
	}
	raw, err := SelfJoin(series, m, false)
	if err != nil {
		t.Fatalf("raw selfjoin failed: %v", err)
	}
	for i := range normalized {
		if math.Abs(normalized[i]-raw[i]) > 1e-9 {
			t.Errorf("index %d: normalized %f, raw %f", i, normalized[i], raw[i])
		}
	}
}

func TestConstantWindowsGetMaximalDistance(t *testing.T) {
	series := randomSeries(60, 20)
	m := 6
	for i := 20; i < 30; i++ {
		series[i] = 2.5
	}

	p, err := SelfJoin(series, m, true)
	if err != nil {
		t.Fatalf("selfjoin failed: %v", err)
	}
	// Window 22 lies entirely in the constant run.
	expected := math.Sqrt(2.0 * float64(m))
	if math.Abs(p[22]-expected) > 1e-9 {
		t.Errorf("expected constant window distance %f but got %f", expected, p[22])
	}
}
