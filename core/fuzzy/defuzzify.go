package fuzzy

// Anchors holds the representative score of each output category
type Anchors struct {
	VeryUnsuitable float64
	Unsuitable     float64
	Adequate       float64
	Suitable       float64
	VerySuitable   float64
}

// Of returns the anchor score of a category
func (a Anchors) Of(s Suitability) (float64, bool) {
	switch s {
	case VeryUnsuitable:
		return a.VeryUnsuitable, true
	case Unsuitable:
		return a.Unsuitable, true
	case Adequate:
		return a.Adequate, true
	case Suitable:
		return a.Suitable, true
	case VerySuitable:
		return a.VerySuitable, true
	}
	return 0, false
}

// Defuzzify collapses an aggregate into a crisp score with the weighted
// centroid Σ(alpha·anchor) / Σ(alpha). An empty aggregate scores 0.
func (a Anchors) Defuzzify(agg Aggregate) float64 {
	total := 0.0
	for _, s := range Suitabilities() {
		if alpha, ok := agg[s]; ok && alpha > 0 {
			total += alpha
		}
	}
	if total == 0 {
		return 0
	}

	// Normalizing the weights first keeps a single-category aggregate
	// exactly on its anchor.
	score := 0.0
	for _, s := range Suitabilities() {
		alpha, ok := agg[s]
		if !ok || alpha <= 0 {
			continue
		}
		anchor, _ := a.Of(s)
		score += (alpha / total) * anchor
	}
	return score
}
