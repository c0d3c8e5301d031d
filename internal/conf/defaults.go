// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "apnea-go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "apnea.log")
	viper.SetDefault("main.log.maxsize", 10)

	viper.SetDefault("audio.source", "sysdefault")
	viper.SetDefault("audio.gain", 1.0)

	viper.SetDefault("detection.sensitivity", 5)
	viper.SetDefault("detection.tickinterval", 200*time.Millisecond)
	viper.SetDefault("detection.mintickinterval", 60*time.Millisecond)
	viper.SetDefault("detection.minsubscribeevery", 200*time.Millisecond)
	viper.SetDefault("detection.patternbuffersize", 100)
	viper.SetDefault("detection.soundbuffersize", 10)
	viper.SetDefault("detection.recenteventssize", 10)
	viper.SetDefault("detection.minwindow", 5)
	viper.SetDefault("detection.matchwindow", 10)
	viper.SetDefault("detection.catalogpath", "")

	viper.SetDefault("detection.bands.breathing.minhz", 20.0)
	viper.SetDefault("detection.bands.breathing.maxhz", 600.0)
	viper.SetDefault("detection.bands.reference.minhz", 1000.0)
	viper.SetDefault("detection.bands.reference.maxhz", 3000.0)
	viper.SetDefault("detection.bands.snoring.minhz", 30.0)
	viper.SetDefault("detection.bands.snoring.maxhz", 500.0)
	viper.SetDefault("detection.bands.snoring.threshold", 0.45)
	viper.SetDefault("detection.bands.snoring.peakratio", 1.2)
	viper.SetDefault("detection.bands.gasping.minhz", 200.0)
	viper.SetDefault("detection.bands.gasping.maxhz", 2500.0)
	viper.SetDefault("detection.bands.gasping.threshold", 0.50)
	viper.SetDefault("detection.bands.gasping.peakratio", 1.2)

	viper.SetDefault("detection.thresholds.silence", 0.15)
	viper.SetDefault("detection.thresholds.timedomainfraction", 0.5)
	viper.SetDefault("detection.thresholds.verylowfraction", 0.2)
	viper.SetDefault("detection.thresholds.verylowfloor", 0.60)
	viper.SetDefault("detection.thresholds.irregularity", 0.25)
	viper.SetDefault("detection.thresholds.irregularityfloor", 0.65)
	viper.SetDefault("detection.thresholds.flatstddev", 0.05)
	viper.SetDefault("detection.thresholds.flatmean", 0.20)
	viper.SetDefault("detection.thresholds.flatfloor", 0.65)
	viper.SetDefault("detection.thresholds.extremeflatmean", 0.08)
	viper.SetDefault("detection.thresholds.extremeflatfloor", 0.85)
	viper.SetDefault("detection.thresholds.matchgate", 0.4)
	viper.SetDefault("detection.thresholds.matchboost", 1.3)
	viper.SetDefault("detection.thresholds.apneamatchfloor", 0.80)
	viper.SetDefault("detection.thresholds.soundfloor", 0.70)
	viper.SetDefault("detection.thresholds.anomalybase", 0.13)
	viper.SetDefault("detection.thresholds.hysteresisboost", 0.35)
	viper.SetDefault("detection.thresholds.low", 0.10)
	viper.SetDefault("detection.thresholds.high", 0.30)
	viper.SetDefault("detection.thresholds.ambientnoise", 0.55)
	viper.SetDefault("detection.thresholds.matchfloor", 0.5)

	viper.SetDefault("classifier.modelpath", "")
	viper.SetDefault("classifier.threshold", 0.5)

	viper.SetDefault("realtime.metricsaddr", "")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "apnea.db")
}
