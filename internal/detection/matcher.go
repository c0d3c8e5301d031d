package detection

import "math"

// Match pairs a reference template with its similarity to a window.
type Match struct {
	Pattern    *ReferencePattern
	Similarity float64
}

// Classification is the outcome of matching a window against the whole
// catalog.
type Classification struct {
	Category   Category
	Confidence float64 // similarity weighted by category reliability
	Similarity float64 // raw similarity of the winning template
	Pattern    string  // winning template name, empty if nothing matched
	IsApnea    bool
	Severity   Severity
}

// noMatchConfidence is reported when no template clears the similarity
// floor; deterministic so downstream consumers can rely on it.
const noMatchConfidence = 0.1

// Matcher scores windows of breathing samples against a reference library.
type Matcher struct {
	library    *Library
	matchFloor float64
}

// NewMatcher creates a matcher over the given library. matchFloor is the
// minimum similarity for a template match to count; it guards against
// false matches on barely-correlated noise.
func NewMatcher(library *Library, matchFloor float64) *Matcher {
	return &Matcher{library: library, matchFloor: matchFloor}
}

// ResizePattern linearly interpolates a template's amplitude envelope to
// targetLength samples. The first and last values are preserved exactly;
// interior positions map through position = i/(targetLength-1)*(len-1) and
// interpolate between the floor and ceil samples by fractional weight.
func ResizePattern(template []float64, targetLength int) []float64 {
	if targetLength <= 0 || len(template) == 0 {
		return nil
	}
	if targetLength == 1 {
		return []float64{template[0]}
	}

	out := make([]float64, targetLength)
	scale := float64(len(template)-1) / float64(targetLength-1)
	for i := range targetLength {
		pos := float64(i) * scale
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(template) {
			hi = len(template) - 1
		}
		frac := pos - float64(lo)
		out[i] = template[lo] + (template[hi]-template[lo])*frac
	}
	return out
}

// Similarity scores how closely a window of breathing samples resembles a
// template, in [0, 1]. The window is normalized by its own maximum, the
// template resized to the window's length; the score blends amplitude
// shape (mean squared error) at 0.8 with variability agreement at 0.2.
func Similarity(window []float64, template *ReferencePattern) float64 {
	if len(window) == 0 || len(template.Amplitude) == 0 {
		return 0
	}

	peak := 0.0
	for _, v := range window {
		if v > peak {
			peak = v
		}
	}
	// A degenerate all-zero window matches nothing.
	if peak <= 0 {
		return 0
	}

	normalized := make([]float64, len(window))
	for i, v := range window {
		normalized[i] = v / peak
	}

	resized := ResizePattern(template.Amplitude, len(window))

	mse := 0.0
	for i := range normalized {
		d := normalized[i] - resized[i]
		mse += d * d
	}
	mse /= float64(len(normalized))
	amplitudeSimilarity := math.Max(0, 1-mse)

	windowCV := coefficientOfVariation(normalized)
	variabilitySimilarity := 1 - math.Min(1, math.Abs(windowCV-template.Variability))

	return 0.8*amplitudeSimilarity + 0.2*variabilitySimilarity
}

// BestMatch evaluates every template in a category and returns the one
// with maximum similarity. The second return is false when no template
// clears the similarity floor.
func (m *Matcher) BestMatch(window []float64, category Category) (Match, bool) {
	var best Match
	patterns := m.library.Patterns(category)
	for i := range patterns {
		p := &patterns[i]
		sim := Similarity(window, p)
		if best.Pattern == nil || sim > best.Similarity {
			best = Match{Pattern: p, Similarity: sim}
		}
	}
	if best.Pattern == nil || best.Similarity <= m.matchFloor {
		return Match{}, false
	}
	return best, true
}

// Classify matches a window independently against each category, weights
// each category's best similarity by its reliability, and picks the
// largest. With no match anywhere it returns a deterministic low-confidence
// non-apnea result.
func (m *Matcher) Classify(window []float64) Classification {
	var (
		winner    Match
		winnerCat Category
		bestScore = -1.0
		found     bool
	)

	for _, category := range categoryOrder {
		match, ok := m.BestMatch(window, category)
		if !ok {
			continue
		}
		score := match.Similarity * categoryWeights[category]
		if score > bestScore {
			bestScore = score
			winner = match
			winnerCat = category
			found = true
		}
	}

	if !found {
		return Classification{
			Confidence: noMatchConfidence,
			IsApnea:    false,
			Severity:   SeverityNone,
		}
	}

	c := Classification{
		Category:   winnerCat,
		Confidence: bestScore,
		Similarity: winner.Similarity,
		Pattern:    winner.Pattern.Name,
	}

	switch winnerCat {
	case CategoryCentral:
		c.IsApnea = c.Confidence > 0.70
	case CategoryObstructive:
		c.IsApnea = c.Confidence > 0.75
	case CategoryHypopnea:
		c.IsApnea = c.Confidence > 0.80
	}

	c.Severity = classifySeverity(&c)
	return c
}

// classifySeverity derives the severity tier from category and confidence.
func classifySeverity(c *Classification) Severity {
	switch {
	case c.Category == CategoryCentral && c.Confidence > 0.85:
		return SeveritySevere
	case c.IsApnea && (c.Category == CategoryCentral || c.Confidence > 0.85):
		return SeverityModerate
	case c.IsApnea:
		return SeverityMild
	case c.Category == CategoryHypopnea && c.Confidence > 0.70:
		return SeverityMild
	default:
		return SeverityNone
	}
}
