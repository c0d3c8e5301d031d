// config.go: settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for the application log file.
type LogConfig struct {
	Enabled bool   // true to enable log file output
	Path    string // path to log file
	MaxSize int    // maximum log file size in megabytes before rotation
}

// AudioSettings contains settings for the audio capture source.
type AudioSettings struct {
	Source string // audio capture source ("sysdefault", device name, or device ID)
	Gain   float64
}

// Band describes a frequency band of interest in Hz.
type Band struct {
	MinHz float64
	MaxHz float64
}

// SoundBand describes a detection band for a non-breathing sound category
// such as snoring or gasping. Mean is the detection threshold on the
// band-average history, PeakRatio the multiplier applied to Mean for the
// single-sample peak test.
type SoundBand struct {
	MinHz     float64
	MaxHz     float64
	Threshold float64
	PeakRatio float64
}

// BandSettings groups the frequency bands used by the feature extractor.
type BandSettings struct {
	Breathing Band      // breathing energy band
	Reference Band      // non-breathing reference band above the breathing band
	Snoring   SoundBand // snoring detection band
	Gasping   SoundBand // gasping detection band
}

// ThresholdSettings exposes every numeric threshold and weight of the
// confidence scorer as named configuration. These are the canonical
// constants of the engine; the sensitivity multiplier scales the ones
// marked as sensitivity-relative.
type ThresholdSettings struct {
	Silence            float64 // breathing-band silence threshold (sensitivity-relative)
	TimeDomainFraction float64 // fraction of Silence the time-domain amplitude must stay under
	VeryLowFraction    float64 // fraction of Silence considered "very low" amplitude
	VeryLowFloor       float64 // confidence floor for very low time-domain amplitude
	Irregularity       float64 // full-buffer stddev threshold (sensitivity-relative)
	IrregularityFloor  float64 // confidence floor when irregularity trips
	FlatStdDev         float64 // recent-window stddev below which the signal counts as flat
	FlatMean           float64 // recent-window mean below which flat counts as quiet
	FlatFloor          float64 // confidence floor for flat-and-quiet
	ExtremeFlatMean    float64 // recent-window mean for the escalated flat floor
	ExtremeFlatFloor   float64 // escalated confidence floor
	MatchGate          float64 // minimum classify confidence before the match signal applies
	MatchBoost         float64 // multiplier applied to match confidence
	ApneaMatchFloor    float64 // confidence floor when the match itself flags apnea
	SoundFloor         float64 // confidence floor when a sound band trips
	AnomalyBase        float64 // hysteresis anomaly threshold (sensitivity-relative)
	HysteresisBoost    float64 // confidence boost once anomalies persist
	Low                float64 // upper bound of the "normal" classification band
	High               float64 // lower bound of the "missing" classification band
	AmbientNoise       float64 // reference-band average above which a tick is contaminated
	MatchFloor         float64 // minimum similarity for a template match to count
}

// DetectionSettings contains settings for the apnea detection engine.
type DetectionSettings struct {
	Sensitivity       int           // detection sensitivity, 1 (least) to 10 (most)
	TickInterval      time.Duration // nominal interval between analysis ticks
	MinTickInterval   time.Duration // throttle floor for Tick calls
	MinSubscribeEvery time.Duration // clamp floor for Subscribe intervals
	PatternBufferSize int           // breathing sample history capacity
	SoundBufferSize   int           // per-category sound band history capacity
	RecentEventsSize  int           // retained detection event history
	MinWindow         int           // samples required before non-trivial classification
	MatchWindow       int           // samples fed to the pattern matcher
	Bands             BandSettings
	Thresholds        ThresholdSettings
	CatalogPath       string // optional YAML reference catalog override
}

// ClassifierSettings contains settings for the optional TFLite sound classifier.
type ClassifierSettings struct {
	ModelPath string // path to TFLite model, empty disables the classifier
	Threshold float64
}

// RealtimeSettings contains settings specific to live monitoring.
type RealtimeSettings struct {
	MetricsAddr string // listen address for the Prometheus endpoint, empty disables it
}

// OutputSettings contains settings for session and event persistence.
type OutputSettings struct {
	SQLite struct {
		Enabled bool
		Path    string
	}
}

// Settings is the root configuration of the application.
type Settings struct {
	Debug bool

	Main struct {
		Name string
		Log  LogConfig
	}

	Audio      AudioSettings
	Detection  DetectionSettings
	Classifier ClassifierSettings
	Realtime   RealtimeSettings
	Output     OutputSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("APNEA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults.
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration to the primary config
// path so a first run leaves the user a file to edit.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the default configuration file search paths.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "apnea-go"),
	}, nil
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes the given settings to configPath as YAML. The write
// goes through a temporary file so the config is replaced atomically.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
