package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullClassifier(t *testing.T) {
	t.Parallel()

	var c Classifier = Null{}
	predictions, err := c.Classify(make([]float64, 128))
	assert.NoError(t, err)
	assert.Empty(t, predictions)

	// Close is a no-op and safe to repeat.
	c.Close()
	c.Close()
}

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "sounds.tflite")
	labelPath := filepath.Join(dir, "sounds.txt")
	require.NoError(t, os.WriteFile(labelPath, []byte("Breathing\nSnoring\n\n  Gasping  \n"), 0o644))

	labels, err := loadLabels(modelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Breathing", "Snoring", "Gasping"}, labels)
}

func TestLoadLabelsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadLabels(filepath.Join(t.TempDir(), "missing.tflite"))
	assert.Error(t, err)
}

func TestNewTFLiteMissingModel(t *testing.T) {
	t.Parallel()

	_, err := NewTFLite(filepath.Join(t.TempDir(), "missing.tflite"))
	assert.Error(t, err)
}
