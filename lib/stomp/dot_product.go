// Package stomp computes matrix profiles with the STOMP recurrence:
// an incremental sliding-dot-product update that produces the full
// profile in O(n^2) time and O(n) auxiliary memory.
//
// The running-sum statistics and the incremental dot product carry no
// compensated-summation step. For series up to a few million samples the
// drift stays well inside the 1e-9 relative tolerance the tests hold the
// dot products to; callers with longer series should window their input.
package stomp

import (
	"fmt"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Window sizes at or above this use the frequency-domain path.
const fftMinWindowSize = 128

func checkWindow(n int, m int) error {
	if n < 1 {
		return fmt.Errorf("time series must not be empty")
	}
	if m < 1 {
		return fmt.Errorf("window size %d is below 1", m)
	}
	if m > n {
		return fmt.Errorf("window size %d exceeds series length %d", m, n)
	}
	return nil
}

// SlidingDotProductNaive computes QT[i] = sum_{j<m} Q[j]*T[i+j] for every
// subsequence of T, directly in O(nm).
func SlidingDotProductNaive(t []float64, q []float64) ([]float64, error) {
	n := len(t)
	m := len(q)
	if err := checkWindow(n, m); err != nil {
		return nil, err
	}
	qt := make([]float64, n-m+1)
	for j := 0; j < m; j++ {
		qj := q[j]
		for i := 0; i < n-m+1; i++ {
			qt[i] += qj * t[i+j]
		}
	}
	return qt, nil
}

// SlidingDotProductFFT computes the same output as SlidingDotProductNaive
// in O(n log n) via frequency-domain convolution: both inputs are
// zero-padded to length 2n, the query reversed, the spectra multiplied
// pointwise, and the valid range extracted from the inverse transform.
func SlidingDotProductFFT(t []float64, q []float64) ([]float64, error) {
	n := len(t)
	m := len(q)
	if err := checkWindow(n, m); err != nil {
		return nil, err
	}
	padded := 2 * n
	fft := fourier.NewFFT(padded)

	ta := make([]float64, padded)
	copy(ta, t)
	qra := make([]float64, padded)
	for i := 0; i < m; i++ {
		qra[i] = q[m-i-1]
	}

	taf := fft.Coefficients(nil, ta)
	qraf := fft.Coefficients(nil, qra)
	for i := range qraf {
		qraf[i] *= taf[i]
	}
	conv := fft.Sequence(nil, qraf)

	// fft.Sequence is unnormalized.
	scale := 1.0 / float64(padded)
	qt := make([]float64, n-m+1)
	for i := m - 1; i < n; i++ {
		qt[i-m+1] = conv[i] * scale
	}
	return qt, nil
}

// SlidingDotProduct picks the direct loop for small windows and the
// frequency-domain path for large ones.
func SlidingDotProduct(t []float64, q []float64) ([]float64, error) {
	if len(q) >= fftMinWindowSize {
		return SlidingDotProductFFT(t, q)
	}
	return SlidingDotProductNaive(t, q)
}
