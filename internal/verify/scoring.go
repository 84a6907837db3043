package verify

import "math"

// Fixed aggregation weights. The suspicion term dominates, database
// corroboration comes second, metadata agreement last.
const (
	suspicionWeight = 0.5
	metadataWeight  = 0.2
	databaseWeight  = 0.3

	// Base contributions per source; the primary catalog is always counted.
	primaryBase     = 0.3
	recognitionBase = 0.4
	openDBBase      = 0.3

	// Each corroborating source past the first scales the whole base.
	corroborationBonus = 0.2
)

// DatabaseConfidence combines per-source presence into one score. Multiple
// sources corroborating the track are rewarded super-linearly: the summed
// base is scaled by 1 + 0.2×(sourcesFound−1).
func DatabaseConfidence(recognitionFound, openDBFound bool) float64 {
	base := primaryBase
	sources := 1
	if recognitionFound {
		base += recognitionBase
		sources++
	}
	if openDBFound {
		base += openDBBase
		sources++
	}
	multiplier := 1 + corroborationBonus*float64(sources-1)
	return round2(clamp01(base * multiplier))
}

// OverallConfidence blends the suspicion, metadata-match, and database
// scores into the headline confidence.
func OverallConfidence(suspicion, metadataScore, databaseConfidence float64) float64 {
	c := suspicionWeight*(1-clamp01(suspicion)) +
		metadataWeight*clamp01(metadataScore) +
		databaseWeight*clamp01(databaseConfidence)
	return round2(clamp01(c))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
