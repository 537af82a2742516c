package recognition

import (
	"math"

	"github.com/camden-git/siteguard/detection"
)

// DefaultTolerance is the largest distance accepted as the same person.
const DefaultTolerance = 0.6

// GalleryEntry is one enrolled user's active embedding.
type GalleryEntry struct {
	UserID string
	Vector detection.Embedding
}

// Distance is the Euclidean distance between two embeddings of equal length.
func Distance(a, b detection.Embedding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match compares query with every gallery entry and returns the closest one
// within tolerance (inclusive). On an exact distance tie the entry that comes
// first in the gallery wins. Entries whose dimension differs from the query
// are skipped and counted.
func Match(query detection.Embedding, gallery []GalleryEntry, tolerance float64) detection.FaceMatchResult {
	if len(gallery) == 0 {
		return detection.FaceMatchResult{Reason: detection.MatchReasonNoGallery}
	}

	res := detection.FaceMatchResult{Reason: detection.MatchReasonNoMatch}
	best := -1
	bestDist := math.Inf(1)
	for i, entry := range gallery {
		if len(entry.Vector) != len(query) || len(query) == 0 {
			res.Skipped++
			continue
		}
		res.Compared++
		if d := Distance(query, entry.Vector); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return res
	}

	res.Distance = bestDist
	if bestDist <= tolerance {
		res.Matched = true
		res.UserID = gallery[best].UserID
		res.Reason = detection.MatchReasonMatched
	}
	return res
}
