// conf/consts.go hard coded constants
package conf

const (
	SampleRate  = 16000 // Sample rate of the audio fed to the detection engine
	BitDepth    = 16    // Bit depth of the audio fed to the detection engine
	NumChannels = 1     // Number of channels of the audio fed to the detection engine

	// FFTSize is the number of time-domain samples folded into one spectral
	// frame. At 16 kHz this gives a bin resolution of 16000/2048 = 7.8125 Hz,
	// fine enough to separate the breathing band from the ambient reference band.
	FFTSize = 2048

	// SpectrumScale is the fixed-point ceiling of spectral magnitudes.
	// Frames carry bin magnitudes in 0..255.
	SpectrumScale = 255
)
