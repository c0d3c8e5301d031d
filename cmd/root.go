// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnetics/apnea-go/cmd/benchmark"
	"github.com/somnetics/apnea-go/cmd/file"
	"github.com/somnetics/apnea-go/cmd/patterns"
	"github.com/somnetics/apnea-go/cmd/realtime"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/logging"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// RootCommand creates and returns the root command with all subcommands
// attached.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "apnea",
		Version: Version,
		Short:   "Sleep apnea detection from breathing audio",
		Long: `apnea analyzes breathing audio in real time, classifying each analysis
tick as normal, interrupted or missing breathing and matching the recent
history against a catalog of reference breathing patterns.`,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		patterns.Command(settings),
		benchmark.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		if settings.Main.Log.Enabled {
			// The rotating writer lives for the whole process; no close needed.
			if _, err := logging.EnableFileLogging(settings.Main.Log.Path, settings.Main.Log.MaxSize); err != nil {
				return fmt.Errorf("error enabling log file output: %w", err)
			}
		}
		return nil
	}

	return rootCmd
}

// setupFlags binds the global flags shared by every subcommand.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVarP(&settings.Detection.Sensitivity, "sensitivity", "s", viper.GetInt("detection.sensitivity"), "Detection sensitivity between 1 (least) and 10 (most)")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.ModelPath, "model", viper.GetString("classifier.modelpath"), "Path to optional TFLite sound classifier model")
	rootCmd.PersistentFlags().StringVar(&settings.Detection.CatalogPath, "catalog", viper.GetString("detection.catalogpath"), "Path to YAML reference pattern catalog, empty for built-in")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("error binding flags: %w", err))
	}
}
