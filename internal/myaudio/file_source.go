package myaudio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/errors"
)

// FileSource replays a WAV recording through the detection pipeline.
// Each Frame call consumes the next FFTSize samples of the file, so an
// offline analysis run sweeps the whole night at tick speed without real
// time passing. Frame returns io.EOF once the recording is exhausted.
type FileSource struct {
	path string

	mu      sync.Mutex
	samples []float64
	rate    int
	pos     int
	active  bool
	level   AudioLevelData
}

// NewFileSource opens and decodes a mono WAV file for offline analysis.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open audio file: %w", err)).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close() //nolint:errcheck

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.Newf("%s is not a valid WAV file", path).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to decode audio file: %w", err)).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	if buf.Format == nil || buf.Format.NumChannels != 1 {
		return nil, errors.Newf("only mono recordings are supported, %s has %d channels",
			path, buf.Format.NumChannels).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	// Normalize integer PCM to [-1, 1] at the decoded bit depth.
	fullScale := float64(int64(1) << (decoder.BitDepth - 1))
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / fullScale
	}

	return &FileSource{
		path:    path,
		samples: samples,
		rate:    buf.Format.SampleRate,
	}, nil
}

// Start marks the source active and rewinds to the beginning of the file.
func (fs *FileSource) Start(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.pos = 0
	fs.active = true
	return nil
}

// Stop marks the source inactive.
func (fs *FileSource) Stop() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.active = false
	return nil
}

// Active reports whether the source has been started and not exhausted.
func (fs *FileSource) Active() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.active
}

// Frame returns the spectral frame for the next window of the recording,
// or io.EOF when the file has been fully consumed.
func (fs *FileSource) Frame() (*SpectralFrame, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.active {
		return nil, ErrNoData
	}
	if fs.pos+conf.FFTSize > len(fs.samples) {
		fs.active = false
		return nil, io.EOF
	}

	chunk := fs.samples[fs.pos : fs.pos+conf.FFTSize]
	fs.pos += conf.FFTSize

	frame, err := FrameFromSamples(chunk, fs.rate)
	if err != nil {
		return nil, err
	}
	fs.level = CalculateSampleLevel(chunk, "file", fs.path)
	return frame, nil
}

// Level returns the audio level of the most recently replayed window.
func (fs *FileSource) Level() AudioLevelData {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.level
}

// Duration returns the total length of the recording.
func (fs *FileSource) Duration() time.Duration {
	return time.Duration(float64(len(fs.samples)) / float64(fs.rate) * float64(time.Second))
}

// Progress returns how much of the recording has been consumed, in [0, 1].
func (fs *FileSource) Progress() float64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.samples) == 0 {
		return 1
	}
	return float64(fs.pos) / float64(len(fs.samples))
}
