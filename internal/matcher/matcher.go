// Package matcher implements open-set nearest-neighbor matching of query
// embeddings against a gallery index: the closest known student wins only if
// it is close enough, otherwise the query matches nobody.
package matcher

import (
	"fmt"
	"math"

	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// DefaultThreshold is the maximum Euclidean distance for a match. Callers
// tune it per use; enrollment checks typically run stricter than live
// recognition.
const DefaultThreshold = 0.50

// Result is the outcome of matching one query vector.
type Result struct {
	Matched   bool
	StudentID string
	Distance  float64
}

// EuclideanDistance computes the Euclidean distance between two vectors of
// equal length.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match compares the query against every gallery entry and returns the
// nearest one if its distance is strictly below threshold. On exact distance
// ties the earliest gallery entry wins. An empty gallery is a valid no-match,
// never an error; a query whose length disagrees with the gallery's is.
func Match(query []float32, ix *gallery.Index, threshold float64) (Result, error) {
	if ix.Empty() {
		return Result{}, nil
	}
	if len(query) != ix.Dim() {
		return Result{}, fmt.Errorf("%w: query dim %d, gallery dim %d",
			gallery.ErrDimensionMismatch, len(query), ix.Dim())
	}

	best := -1
	bestDist := math.Inf(1)
	for i, e := range ix.Entries() {
		if d := EuclideanDistance(query, e.Vector); d < bestDist {
			best = i
			bestDist = d
		}
	}

	if bestDist >= threshold {
		return Result{Distance: bestDist}, nil
	}
	return Result{
		Matched:   true,
		StudentID: ix.At(best).StudentID,
		Distance:  bestDist,
	}, nil
}
