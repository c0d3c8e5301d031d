package myaudio

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/errors"
	"github.com/somnetics/apnea-go/internal/logging"
)

// pcmRingSeconds is how much captured PCM the device source retains between
// analysis reads. One second at 16 kHz mono S16 is 32 KiB; frames only need
// the newest FFTSize samples, older data is discarded on read.
const pcmRingSeconds = 1

// AudioDeviceInfo holds information about an audio device.
type AudioDeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// captureSource holds the resolved capture device selection.
type captureSource struct {
	Name    string
	ID      string
	Pointer unsafe.Pointer
}

// DeviceSource captures audio from a system input device via malgo. The
// device callback writes PCM into a ring buffer; Frame drains the buffer
// and computes a spectral frame from the newest full analysis window.
type DeviceSource struct {
	settings *conf.Settings
	log      *slog.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	ring    *ringbuffer.RingBuffer
	level   AudioLevelData
	started bool
}

// NewDeviceSource creates a device source for the configured capture device.
// No resources are acquired until Start.
func NewDeviceSource(settings *conf.Settings) *DeviceSource {
	return &DeviceSource{
		settings: settings,
		log:      logging.ForService("myaudio"),
		ring:     ringbuffer.New(conf.SampleRate * conf.NumChannels * (conf.BitDepth / 8) * pcmRingSeconds),
	}
}

// Start initializes the audio context and begins capturing. Calling Start
// on a running source is a no-op.
func (ds *DeviceSource) Start(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	backend := preferredBackend()
	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		if ds.settings.Debug {
			ds.log.Debug("malgo", "message", strings.TrimSpace(message))
		}
	})
	if err != nil {
		return errors.New(fmt.Errorf("failed to initialize audio context: %w", err)).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		_ = malgoCtx.Uninit()
		return errors.New(fmt.Errorf("failed to enumerate capture devices: %w", err)).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	source, err := selectCaptureSource(ds.settings.Audio.Source, infos)
	if err != nil {
		_ = malgoCtx.Uninit()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	deviceConfig.Capture.DeviceID = source.Pointer

	onReceiveFrames := func(_, pSamples []byte, framecount uint32) {
		ds.writePCM(pSamples)
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
	})
	if err != nil {
		_ = malgoCtx.Uninit()
		return errors.New(fmt.Errorf("failed to initialize capture device %q: %w", source.Name, err)).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("device", source.Name).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		return errors.New(fmt.Errorf("failed to start capture device %q: %w", source.Name, err)).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("device", source.Name).
			Build()
	}

	ds.ctx = malgoCtx
	ds.device = device
	ds.ring.Reset()
	ds.started = true

	ds.log.Info("audio capture started",
		"device", source.Name,
		"sample_rate", conf.SampleRate,
		"channels", conf.NumChannels)
	return nil
}

// Stop halts capture and releases the device and context. Idempotent; the
// source can be started again afterwards.
func (ds *DeviceSource) Stop() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.started {
		return nil
	}

	ds.device.Uninit()
	if err := ds.ctx.Uninit(); err != nil {
		ds.log.Warn("audio context uninit failed", "error", err)
	}
	ds.device = nil
	ds.ctx = nil
	ds.ring.Reset()
	ds.started = false

	ds.log.Info("audio capture stopped")
	return nil
}

// Active reports whether the device is capturing.
func (ds *DeviceSource) Active() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.started
}

// Frame drains buffered PCM and returns a spectral frame computed from the
// newest conf.FFTSize samples. Returns ErrNoData until a full window has
// been captured.
func (ds *DeviceSource) Frame() (*SpectralFrame, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.started {
		return nil, ErrNoData
	}

	const want = conf.FFTSize * 2
	if ds.ring.Length() < want {
		return nil, ErrNoData
	}

	// Drain everything buffered and keep only the newest window, so a slow
	// caller analyzes current audio rather than a backlog.
	buf := make([]byte, ds.ring.Length())
	n, err := ds.ring.Read(buf)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read captured audio: %w", err)).
			Component("myaudio").
			Category(errors.CategoryAudioCapture).
			Build()
	}
	chunk := buf[n-want : n]

	ds.level = CalculateAudioLevel(chunk, "malgo", ds.settings.Audio.Source)
	return FrameFromPCM(chunk, conf.SampleRate)
}

// Level returns the most recent audio level computed during Frame.
func (ds *DeviceSource) Level() AudioLevelData {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.level
}

// writePCM appends captured PCM to the ring buffer. When the buffer is full
// the oldest audio is dropped; live analysis always prefers fresh samples.
func (ds *DeviceSource) writePCM(data []byte) {
	_, err := ds.ring.TryWrite(data)
	if err != nil {
		// Drop the backlog rather than block the device callback.
		ds.ring.Reset()
		_, _ = ds.ring.TryWrite(data)
	}
}

// preferredBackend picks the native audio backend for the current OS.
func preferredBackend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}

// ListAudioSources returns a list of available audio capture devices.
func ListAudioSources() ([]AudioDeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context: %w", err)
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	devices := make([]AudioDeviceInfo, 0, len(infos))
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		devices = append(devices, AudioDeviceInfo{
			Index: i,
			Name:  info.Name(),
			ID:    decodedID,
		})
	}
	return devices, nil
}

// selectCaptureSource selects a capture device matching the configured
// source name or ID.
func selectCaptureSource(audioSource string, infos []malgo.DeviceInfo) (captureSource, error) {
	for _, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		if matchesDeviceSettings(decodedID, info, audioSource) {
			return captureSource{
				Name:    info.Name(),
				ID:      decodedID,
				Pointer: info.ID.Pointer(),
			}, nil
		}
	}
	return captureSource{}, errors.Newf("no suitable capture source found for device setting %q", audioSource).
		Component("myaudio").
		Category(errors.CategoryAudioDevice).
		Context("source", audioSource).
		Build()
}

// matchesDeviceSettings checks if the device matches the configured source.
func matchesDeviceSettings(decodedID string, info malgo.DeviceInfo, audioSource string) bool {
	if runtime.GOOS == "windows" && audioSource == "sysdefault" {
		// Windows has no "sysdefault" device, use miniaudio's default.
		return info.IsDefault == 1
	}
	return decodedID == audioSource || strings.Contains(info.Name(), audioSource)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
