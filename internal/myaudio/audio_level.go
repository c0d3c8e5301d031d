package myaudio

import (
	"encoding/binary"
	"math"
)

// AudioLevelData holds audio level data for live visualization.
type AudioLevelData struct {
	Level    int    `json:"level"`    // 0-100
	Clipping bool   `json:"clipping"` // true if clipping is detected
	Source   string `json:"source"`   // source identifier ("malgo", file path)
	Name     string `json:"name"`     // human-readable name of the source
}

// CalculateAudioLevel calculates the RMS (Root Mean Square) of the audio
// samples and returns an AudioLevelData struct with the level and clipping
// status.
func CalculateAudioLevel(samples []byte, source, name string) AudioLevelData {
	if len(samples) == 0 {
		return AudioLevelData{Level: 0, Clipping: false, Source: source, Name: name}
	}

	// Ensure we have an even number of bytes (16-bit samples)
	if len(samples)%2 != 0 {
		samples = samples[:len(samples)-1]
	}

	var sum float64
	sampleCount := len(samples) / 2
	isClipping := false

	for i := 0; i+1 < len(samples); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(samples[i : i+2]))
		sampleAbs := math.Abs(float64(sample))
		sum += sampleAbs * sampleAbs

		// Maximum positive or negative 16-bit value means clipping
		if sample == 32767 || sample == -32768 {
			isClipping = true
		}
	}

	if sampleCount == 0 {
		return AudioLevelData{Level: 0, Clipping: false, Source: source, Name: name}
	}

	rms := math.Sqrt(sum / float64(sampleCount))

	// Convert RMS to decibels relative to 16-bit full scale, then map the
	// most useful 50 dB of range onto 0-100.
	db := 20 * math.Log10(rms/32768.0)
	scaledLevel := (db + 60) * (100.0 / 50.0)

	if isClipping {
		scaledLevel = 100
	}
	level := int(math.Round(scaledLevel))
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	return AudioLevelData{Level: level, Clipping: isClipping, Source: source, Name: name}
}

// CalculateSampleLevel is CalculateAudioLevel for samples already normalized
// to [-1, 1], as decoded file sources produce them.
func CalculateSampleLevel(samples []float64, source, name string) AudioLevelData {
	if len(samples) == 0 {
		return AudioLevelData{Level: 0, Clipping: false, Source: source, Name: name}
	}

	var sum float64
	isClipping := false
	for _, s := range samples {
		sum += s * s
		if s >= 1.0 || s <= -1.0 {
			isClipping = true
		}
	}

	rms := math.Sqrt(sum / float64(len(samples)))

	// Same mapping as the PCM variant: the most useful 50 dB onto 0-100.
	db := 20 * math.Log10(rms)
	scaledLevel := (db + 60) * (100.0 / 50.0)

	if isClipping {
		scaledLevel = 100
	}
	level := int(math.Round(scaledLevel))
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	return AudioLevelData{Level: level, Clipping: isClipping, Source: source, Name: name}
}
