// Package classifier wraps the optional TensorFlow Lite sound classifier.
//
// The detection engine never depends on the classifier for correctness; it
// is consulted opportunistically and a load failure degrades the engine to
// heuristic-only operation. The Null implementation supplies that fallback.
package classifier

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Prediction is one scored label from the sound classifier.
type Prediction struct {
	Label string
	Score float64
}

// Classifier scores a window of time-domain samples against known sound
// classes (breathing, snoring, gasping, ambient noise).
type Classifier interface {
	// Classify returns per-class scores for the given samples, sorted by
	// descending score. Sample values are normalized to [-1, 1].
	Classify(samples []float64) ([]Prediction, error)

	// Close releases model resources. Safe to call more than once.
	Close()
}

// Null is the fallback classifier used when no model is configured or the
// model failed to load. It never returns predictions.
type Null struct{}

// Classify always returns no predictions.
func (Null) Classify(_ []float64) ([]Prediction, error) { return nil, nil }

// Close is a no-op.
func (Null) Close() {}

// loadLabels reads one label per line from the label file accompanying the
// model (same path, .txt extension).
func loadLabels(modelPath string) ([]string, error) {
	labelPath := strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".txt"
	f, err := os.Open(labelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}
