package classifier

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/somnetics/apnea-go/internal/errors"
	"github.com/somnetics/apnea-go/internal/logging"
	tflite "github.com/tphakala/go-tflite"
)

// TFLite runs a TensorFlow Lite sound classification model.
type TFLite struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	labels      []string
	inputSize   int
}

// NewTFLite loads a TFLite model and its label file. Any failure is
// returned to the caller, who is expected to fall back to Null and keep
// going; classifier availability is never required.
func NewTFLite(modelPath string) (*TFLite, error) {
	start := time.Now()

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read classifier model: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			ModelContext(modelPath).
			Build()
	}

	labels, err := loadLabels(modelPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to load classifier labels: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			ModelContext(modelPath).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(modelPath).
			Context("model_size_kb", len(modelData)/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)
	options.SetErrorReporter(func(msg string, userData any) {
		logging.ForService("classifier").Error("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(modelPath).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed").
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(modelPath).
			Build()
	}

	input := interpreter.GetInputTensor(0)
	if input == nil {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("cannot get classifier input tensor").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Build()
	}

	c := &TFLite{
		model:       model,
		interpreter: interpreter,
		labels:      labels,
		inputSize:   input.Dim(input.NumDims() - 1),
	}

	logging.ForService("classifier").Info("sound classifier loaded",
		"labels", len(labels),
		"input_size", c.inputSize,
		"load_ms", time.Since(start).Milliseconds())
	return c, nil
}

// Classify runs inference on the given samples and pairs output scores with
// labels, sorted by descending score. The sample window is truncated or
// zero-padded to the model's input size.
func (c *TFLite) Classify(samples []float64) ([]Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, errors.Newf("classifier is closed").
			Component("classifier").
			Category(errors.CategoryState).
			Build()
	}

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("cannot get classifier input tensor").
			Component("classifier").
			Category(errors.CategoryAudioAnalysis).
			Build()
	}

	in := input.Float32s()
	for i := range in {
		if i < len(samples) {
			in[i] = float32(samples[i])
		} else {
			in[i] = 0
		}
	}

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("classifier invoke failed: %v", status).
			Component("classifier").
			Category(errors.CategoryAudioAnalysis).
			Build()
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, errors.Newf("cannot get classifier output tensor").
			Component("classifier").
			Category(errors.CategoryAudioAnalysis).
			Build()
	}
	scores := output.Float32s()

	predictions := make([]Prediction, 0, len(scores))
	for i, score := range scores {
		label := fmt.Sprintf("class-%d", i)
		if i < len(c.labels) {
			label = c.labels[i]
		}
		predictions = append(predictions, Prediction{Label: label, Score: float64(score)})
	}
	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})
	return predictions, nil
}

// Close releases the interpreter and model. Safe to call more than once.
func (c *TFLite) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
}
