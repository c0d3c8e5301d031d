// Package realtime implements the live monitoring subcommand.
package realtime

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somnetics/apnea-go/internal/analysis"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/myaudio"
)

// Command returns the realtime monitoring command.
func Command(settings *conf.Settings) *cobra.Command {
	var listSources bool

	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Monitor breathing from the capture device in real time",
		Long:  "Captures audio from the configured device and analyzes breathing continuously until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listSources {
				return printAudioSources(cmd)
			}
			return analysis.RealtimeAnalysis(settings)
		},
	}

	cmd.Flags().BoolVar(&listSources, "list-sources", false, "List available capture devices and exit")

	cmd.PersistentFlags().StringVar(&settings.Audio.Source, "source", viper.GetString("audio.source"), "Audio capture source (device name, ID, or \"sysdefault\")")
	cmd.PersistentFlags().StringVar(&settings.Realtime.MetricsAddr, "metrics-addr", viper.GetString("realtime.metricsaddr"), "Listen address for the Prometheus endpoint, empty disables it")
	cmd.PersistentFlags().BoolVar(&settings.Output.SQLite.Enabled, "save", viper.GetBool("output.sqlite.enabled"), "Persist sessions and events to the SQLite store")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("error binding flags: %w", err))
	}

	return cmd
}

// printAudioSources enumerates the system capture devices.
func printAudioSources(cmd *cobra.Command) error {
	devices, err := myaudio.ListAudioSources()
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s)\n", d.Index, d.Name, d.ID)
	}
	return nil
}
