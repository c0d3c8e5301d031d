// Package file implements the offline WAV analysis subcommand.
package file

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnetics/apnea-go/internal/analysis"
	"github.com/somnetics/apnea-go/internal/conf"
)

// Command returns the offline file analysis command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Analyze a WAV recording for apnea events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := analysis.FileAnalysis(cmd.Context(), settings, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Analyzed %s of audio in %d ticks\n", summary.Duration, summary.Ticks)
			fmt.Printf("  anomalies:      %d\n", summary.Anomalies)
			fmt.Printf("  apnea events:   %d\n", summary.ApneaEvents)
			fmt.Printf("  max confidence: %.2f\n", summary.MaxConfidence)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&settings.Output.SQLite.Enabled, "save", viper.GetBool("output.sqlite.enabled"), "Persist the session and events to the SQLite store")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("error binding flags: %w", err))
	}

	return cmd
}
