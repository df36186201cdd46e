package stomp

import (
	"math"
)

// Windows whose standard deviation falls below this are treated as
// constant: their inverse sigma is zero, so their Pearson contribution is
// zero and their normalized distance comes out as sqrt(2m).
const stddevFloor = 1e-13

// MeanStd computes the mean and standard deviation of every length-m
// window of t in one pass over the series, using a running sum and a
// running sum of squares.
func MeanStd(t []float64, m int) ([]float64, []float64, error) {
	n := len(t)
	if err := checkWindow(n, m); err != nil {
		return nil, nil, err
	}
	mu := make([]float64, n-m+1)
	sigma := make([]float64, n-m+1)

	var sum, sqsum float64
	for i := 0; i < m; i++ {
		sum += t[i]
		sqsum += t[i] * t[i]
	}
	fm := float64(m)
	for i := 0; ; i++ {
		mean := sum / fm
		variance := sqsum/fm - mean*mean
		// The running sums can push the variance marginally below zero.
		if variance < 0 {
			variance = 0
		}
		mu[i] = mean
		sigma[i] = math.Sqrt(variance)
		if i+m == n {
			break
		}
		sum += t[i+m] - t[i]
		sqsum += t[i+m]*t[i+m] - t[i]*t[i]
	}
	return mu, sigma, nil
}

// SquaredSums computes sum(window^2) for every length-m window of t in
// one pass. This is the statistics variant for the raw euclidean metric.
func SquaredSums(t []float64, m int) ([]float64, error) {
	n := len(t)
	if err := checkWindow(n, m); err != nil {
		return nil, err
	}
	s := make([]float64, n-m+1)

	var sqsum float64
	for i := 0; i < m; i++ {
		sqsum += t[i] * t[i]
	}
	for i := 0; ; i++ {
		s[i] = sqsum
		if i+m == n {
			break
		}
		sqsum += t[i+m]*t[i+m] - t[i]*t[i]
	}
	return s, nil
}

func inverseSigma(sigma []float64) []float64 {
	inv := make([]float64, len(sigma))
	for i, s := range sigma {
		if s > stddevFloor {
			inv[i] = 1.0 / s
		}
	}
	return inv
}
