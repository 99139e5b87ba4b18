package gallery

import (
	"math"

	"github.com/coder/hnsw"
)

// HNSW parameters for the enrollment audit index. The gallery is small
// (one node per reference image), so defaults tuned for recall are cheap.
const (
	hnswMaxNeighbors = 16

	// isolatedFactor scales the match threshold to decide when a reference
	// image sits suspiciously far from every other gallery entry.
	isolatedFactor = 2.0
)

// OutlierReason classifies why a gallery entry was flagged.
type OutlierReason string

const (
	// ReasonConfusable means the entry's nearest neighbor belongs to a
	// different student at a distance below the match threshold, so live
	// recognition could confuse the two.
	ReasonConfusable OutlierReason = "confusable"

	// ReasonIsolated means the entry has no neighbor within twice the match
	// threshold, which usually indicates a bad reference image (wrong crop,
	// extreme lighting, or not a face at all).
	ReasonIsolated OutlierReason = "isolated"
)

// Outlier describes a gallery entry flagged by the enrollment audit.
type Outlier struct {
	StudentID        string        `json:"student_id"`
	EntryIndex       int           `json:"entry_index"`
	NearestStudentID string        `json:"nearest_student_id"`
	NearestDistance  float64       `json:"nearest_distance"`
	Reason           OutlierReason `json:"reason"`
}

// Outliers audits enrollment quality: it builds an in-memory HNSW index over
// the gallery and checks every entry's nearest neighbor. Entries confusable
// with another student, or isolated from everything, are reported for review.
// Threshold is the live match threshold; an index with fewer than two entries
// has nothing to compare and yields no findings.
func Outliers(ix *Index, threshold float64) []Outlier {
	if ix.Len() < 2 {
		return nil
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	entries := ix.Entries()
	for i := range entries {
		g.Add(hnsw.MakeNode(i, entries[i].Vector))
	}

	var findings []Outlier
	for i := range entries {
		nearest, dist, ok := nearestOther(g, i, entries)
		if !ok {
			continue
		}

		switch {
		case nearest.StudentID != entries[i].StudentID && dist < threshold:
			findings = append(findings, Outlier{
				StudentID:        entries[i].StudentID,
				EntryIndex:       i,
				NearestStudentID: nearest.StudentID,
				NearestDistance:  dist,
				Reason:           ReasonConfusable,
			})
		case dist > threshold*isolatedFactor:
			findings = append(findings, Outlier{
				StudentID:        entries[i].StudentID,
				EntryIndex:       i,
				NearestStudentID: nearest.StudentID,
				NearestDistance:  dist,
				Reason:           ReasonIsolated,
			})
		}
	}
	return findings
}

// nearestOther finds the closest gallery entry that is not the entry itself.
func nearestOther(g *hnsw.Graph[int], self int, entries []Entry) (Entry, float64, bool) {
	// Ask for a few candidates because the first hit is usually the node itself.
	neighbors := g.Search(entries[self].Vector, 3)
	for _, n := range neighbors {
		if n.Key == self {
			continue
		}
		return entries[n.Key], euclidean(entries[self].Vector, n.Value), true
	}
	return Entry{}, 0, false
}

// euclidean computes the exact Euclidean distance between two vectors of
// equal length.
func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
