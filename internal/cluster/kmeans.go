// Package cluster implements cosine-distance K-means with multi-restart,
// convergence checking, and empty-cluster handling.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/vectorize"
)

// Result holds the winning restart of a K-means fit: per-document labels in
// input order, converged centroids densified over the shared vocabulary,
// and the achieved inertia.
type Result struct {
	Labels     []int
	Centroids  [][]float64
	Vocabulary []string
	Inertia    float64
}

// KMeans is a cosine-distance K-means fitter.
type KMeans struct {
	nInit   int
	maxIter int
	tol     float64
	rng     *rand.Rand
}

// Option configures a KMeans fitter.
type Option func(*KMeans)

// WithRestarts sets the number of independent restarts.
func WithRestarts(n int) Option {
	return func(k *KMeans) { k.nInit = n }
}

// WithMaxIter sets the iteration cap per restart.
func WithMaxIter(n int) Option {
	return func(k *KMeans) { k.maxIter = n }
}

// WithRand sets the random source used for centroid initialization. Fixing
// the source makes fits reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(k *KMeans) { k.rng = rng }
}

// New creates a fitter with nInit=5, maxIter=50, tolerance=1e-4.
func New(opts ...Option) *KMeans {
	k := &KMeans{
		nInit:   5,
		maxIter: 50,
		tol:     1e-4,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// CosineDistance returns 1 - cos(a, b). Either zero-norm vector forces the
// maximum distance of 1, never NaN.
func CosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// SharedVocabulary builds the union of all per-vector token sets, ordered
// first-seen across vectors in input order (tokens within one vector are
// taken in sorted order so the axis layout is reproducible).
func SharedVocabulary(vectors []vectorize.Vector) []string {
	seen := make(map[string]struct{})
	var vocab []string
	for _, vec := range vectors {
		keys := make([]string, 0, len(vec))
		for tok := range vec {
			keys = append(keys, tok)
		}
		sort.Strings(keys)
		for _, tok := range keys {
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				vocab = append(vocab, tok)
			}
		}
	}
	return vocab
}

// Densify projects a sparse vector onto the shared vocabulary axes.
func Densify(vec vectorize.Vector, vocab []string) []float64 {
	dense := make([]float64, len(vocab))
	for i, tok := range vocab {
		dense[i] = vec[tok]
	}
	return dense
}

// Fit clusters the vectors into k groups. Preconditions: the corpus is
// non-empty and 1 <= k <= len(vectors). Across all restarts the one with
// the lowest converged inertia wins.
func (km *KMeans) Fit(vectors []vectorize.Vector, k int) (*Result, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cluster: empty corpus: %w", apperr.ErrInvalidArgument)
	}
	if k < 1 || k > len(vectors) {
		return nil, fmt.Errorf("cluster: k=%d out of range [1, %d]: %w",
			k, len(vectors), apperr.ErrInvalidArgument)
	}

	vocab := SharedVocabulary(vectors)
	dense := make([][]float64, len(vectors))
	for i, v := range vectors {
		dense[i] = Densify(v, vocab)
	}

	var best *Result
	for init := 0; init < km.nInit; init++ {
		labels, centroids, inertia := km.run(dense, k)
		if best == nil || inertia < best.Inertia {
			best = &Result{
				Labels:     labels,
				Centroids:  centroids,
				Vocabulary: vocab,
				Inertia:    inertia,
			}
		}
	}
	return best, nil
}

// run performs one restart: random distinct seeds, then assign/update until
// the inertia moves by less than the tolerance or the iteration cap hits.
func (km *KMeans) run(dense [][]float64, k int) ([]int, [][]float64, float64) {
	centroids := km.seedCentroids(dense, k)
	labels := assign(dense, centroids)

	prevInertia := math.Inf(1)
	inertia := prevInertia
	for iter := 0; iter < km.maxIter; iter++ {
		centroids = updateCentroids(dense, labels, k)
		labels = assign(dense, centroids)
		inertia = computeInertia(dense, labels, centroids)
		if math.Abs(prevInertia-inertia) < km.tol {
			break
		}
		prevInertia = inertia
	}
	if math.IsInf(inertia, 1) {
		inertia = computeInertia(dense, labels, centroids)
	}
	return labels, centroids, inertia
}

// seedCentroids samples k distinct document indices uniformly.
func (km *KMeans) seedCentroids(dense [][]float64, k int) [][]float64 {
	used := make(map[int]struct{}, k)
	centroids := make([][]float64, 0, k)
	for len(centroids) < k {
		idx := km.rng.Intn(len(dense))
		if _, ok := used[idx]; ok {
			continue
		}
		used[idx] = struct{}{}
		c := make([]float64, len(dense[idx]))
		copy(c, dense[idx])
		centroids = append(centroids, c)
	}
	return centroids
}

// assign labels each point with its nearest centroid, ties to the lowest
// cluster index.
func assign(dense, centroids [][]float64) []int {
	labels := make([]int, len(dense))
	for i, point := range dense {
		bestDist := math.Inf(1)
		best := 0
		for j, c := range centroids {
			if d := CosineDistance(point, c); d < bestDist {
				bestDist = d
				best = j
			}
		}
		labels[i] = best
	}
	return labels
}

// updateCentroids recomputes each centroid as the mean of its members. An
// empty cluster's centroid is frozen at the all-zero vector.
func updateCentroids(dense [][]float64, labels []int, k int) [][]float64 {
	dim := len(dense[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)
	for j := range centroids {
		centroids[j] = make([]float64, dim)
	}
	for i, point := range dense {
		j := labels[i]
		counts[j]++
		for d, v := range point {
			centroids[j][d] += v
		}
	}
	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		for d := range centroids[j] {
			centroids[j][d] /= float64(counts[j])
		}
	}
	return centroids
}

// computeInertia sums squared nearest-centroid distances.
func computeInertia(dense [][]float64, labels []int, centroids [][]float64) float64 {
	var inertia float64
	for i, point := range dense {
		d := CosineDistance(point, centroids[labels[i]])
		inertia += d * d
	}
	return inertia
}
