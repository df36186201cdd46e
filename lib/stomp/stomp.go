package stomp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ExclusionZone is the trivial-match radius for self-joins: any pair of
// windows closer than this is excluded from the profile.
func ExclusionZone(m int) int {
	return (m + 3) / 4 // ceil(m/4)
}

// SelfJoin computes the matrix profile of t against itself: for every
// length-m window, the distance to its nearest neighbor outside the
// exclusion zone. With normalize the distance is z-normalized euclidean
// (via Pearson correlation), otherwise raw euclidean.
func SelfJoin(t []float64, m int, normalize bool) ([]float64, error) {
	if err := checkWindow(len(t), m); err != nil {
		return nil, err
	}
	if normalize {
		return selfJoinPearson(t, m)
	}
	return selfJoinEuclidean(t, m)
}

// ABJoin computes, for every length-m window of t1, the distance to its
// nearest neighbor window in t2. There is no exclusion zone.
func ABJoin(t1 []float64, t2 []float64, m int, normalize bool) ([]float64, error) {
	if err := checkWindow(len(t1), m); err != nil {
		return nil, err
	}
	if err := checkWindow(len(t2), m); err != nil {
		return nil, err
	}
	if normalize {
		return abJoinPearson(t1, t2, m)
	}
	return abJoinEuclidean(t1, t2, m)
}

// The profile accumulates Pearson correlations (maximization) and converts
// to z-normalized euclidean distance in a final pass. Each unordered pair
// {i,j} is visited once: the row sweep covers j > i+excl and updates both
// P[i] and P[j].
func selfJoinPearson(t []float64, m int) ([]float64, error) {
	n := len(t)
	rows := n - m + 1
	excl := ExclusionZone(m)
	fm := float64(m)

	mu, sigma, err := MeanStd(t, m)
	if err != nil {
		return nil, err
	}
	sigmaInv := inverseSigma(sigma)

	qt, err := SlidingDotProduct(t, t[:m])
	if err != nil {
		return nil, err
	}
	qt2 := make([]float64, rows)

	p := make([]float64, rows)
	for j := 0; j < rows; j++ {
		p[j] = (qt[j] - fm*mu[0]*mu[j]) * sigmaInv[0] * sigmaInv[j]
	}
	for j := 0; j <= excl && j < rows; j++ {
		p[j] = 0.0
	}
	for j := excl + 1; j < rows; j++ {
		if p[j] > p[0] {
			p[0] = p[j]
		}
	}

	for i := 1; i < rows; i++ {
		maxPi := p[i]
		for j := i + excl + 1; j < rows; j++ {
			qt2[j] = qt[j-1] - t[j-1]*t[i-1] + t[j+m-1]*t[i+m-1]
			corr := (qt2[j] - fm*mu[i]*mu[j]) * sigmaInv[i] * sigmaInv[j]
			if corr > p[j] {
				p[j] = corr
			}
			if corr > maxPi {
				maxPi = corr
			}
		}
		p[i] = maxPi
		qt, qt2 = qt2, qt
	}

	pearsonToDistance(p, fm)
	return p, nil
}

// Same recurrence on squared-sum statistics, accumulating the minimum
// squared distance.
func selfJoinEuclidean(t []float64, m int) ([]float64, error) {
	n := len(t)
	rows := n - m + 1
	excl := ExclusionZone(m)

	s, err := SquaredSums(t, m)
	if err != nil {
		return nil, err
	}
	qt, err := SlidingDotProduct(t, t[:m])
	if err != nil {
		return nil, err
	}
	qt2 := make([]float64, rows)

	p := make([]float64, rows)
	for j := 0; j < rows; j++ {
		p[j] = s[0] + s[j] - 2.0*qt[j]
	}
	for j := 0; j <= excl && j < rows; j++ {
		p[j] = math.Inf(1)
	}
	for j := excl + 1; j < rows; j++ {
		if p[j] < p[0] {
			p[0] = p[j]
		}
	}

	for i := 1; i < rows; i++ {
		minPi := p[i]
		for j := i + excl + 1; j < rows; j++ {
			qt2[j] = qt[j-1] - t[j-1]*t[i-1] + t[j+m-1]*t[i+m-1]
			distSq := s[i] + s[j] - 2.0*qt2[j]
			if distSq < p[j] {
				p[j] = distSq
			}
			if distSq < minPi {
				minPi = distSq
			}
		}
		p[i] = minPi
		qt, qt2 = qt2, qt
	}

	squaredToDistance(p)
	return p, nil
}

// Rows iterate the windows of t2, columns the windows of t1. The leftmost
// column of each row has no recurrence predecessor and needs one direct
// dot product.
func abJoinPearson(t1 []float64, t2 []float64, m int) ([]float64, error) {
	cols := len(t1) - m + 1
	rows := len(t2) - m + 1
	fm := float64(m)

	mu1, sigma1, err := MeanStd(t1, m)
	if err != nil {
		return nil, err
	}
	mu2, sigma2, err := MeanStd(t2, m)
	if err != nil {
		return nil, err
	}
	sigmaInv1 := inverseSigma(sigma1)
	sigmaInv2 := inverseSigma(sigma2)

	qt, err := SlidingDotProduct(t1, t2[:m])
	if err != nil {
		return nil, err
	}
	qt2 := make([]float64, cols)

	p := make([]float64, cols)
	for j := 0; j < cols; j++ {
		p[j] = (qt[j] - fm*mu1[j]*mu2[0]) * sigmaInv1[j] * sigmaInv2[0]
	}

	for i := 1; i < rows; i++ {
		qt2[0] = floats.Dot(t1[:m], t2[i:i+m])
		corr := (qt2[0] - fm*mu1[0]*mu2[i]) * sigmaInv1[0] * sigmaInv2[i]
		if corr > p[0] {
			p[0] = corr
		}
		for j := 1; j < cols; j++ {
			qt2[j] = qt[j-1] - t1[j-1]*t2[i-1] + t1[j+m-1]*t2[i+m-1]
			corr = (qt2[j] - fm*mu1[j]*mu2[i]) * sigmaInv1[j] * sigmaInv2[i]
			if corr > p[j] {
				p[j] = corr
			}
		}
		qt, qt2 = qt2, qt
	}

	pearsonToDistance(p, fm)
	return p, nil
}

func abJoinEuclidean(t1 []float64, t2 []float64, m int) ([]float64, error) {
	cols := len(t1) - m + 1
	rows := len(t2) - m + 1

	s1, err := SquaredSums(t1, m)
	if err != nil {
		return nil, err
	}
	s2, err := SquaredSums(t2, m)
	if err != nil {
		return nil, err
	}

	qt, err := SlidingDotProduct(t1, t2[:m])
	if err != nil {
		return nil, err
	}
	qt2 := make([]float64, cols)

	p := make([]float64, cols)
	for j := 0; j < cols; j++ {
		p[j] = s1[j] + s2[0] - 2.0*qt[j]
	}

	for i := 1; i < rows; i++ {
		qt2[0] = floats.Dot(t1[:m], t2[i:i+m])
		distSq := s1[0] + s2[i] - 2.0*qt2[0]
		if distSq < p[0] {
			p[0] = distSq
		}
		for j := 1; j < cols; j++ {
			qt2[j] = qt[j-1] - t1[j-1]*t2[i-1] + t1[j+m-1]*t2[i+m-1]
			distSq = s1[j] + s2[i] - 2.0*qt2[j]
			if distSq < p[j] {
				p[j] = distSq
			}
		}
		qt, qt2 = qt2, qt
	}

	squaredToDistance(p)
	return p, nil
}

// pearsonToDistance converts accumulated correlations to z-normalized
// euclidean distances in place. Correlations can exceed m by a few ulps,
// which would put a tiny negative value under the square root.
func pearsonToDistance(p []float64, fm float64) {
	for i := range p {
		d := 2.0 * fm * (1.0 - p[i]/fm)
		if d < 0 {
			d = 0
		}
		p[i] = math.Sqrt(d)
	}
}

func squaredToDistance(p []float64) {
	for i := range p {
		if p[i] < 0 {
			p[i] = 0
		}
		p[i] = math.Sqrt(p[i])
	}
}
