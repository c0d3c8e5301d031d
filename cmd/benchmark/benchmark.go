// Package benchmark implements the matcher throughput subcommand.
package benchmark

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/somnetics/apnea-go/internal/analysis"
	"github.com/somnetics/apnea-go/internal/conf"
)

// Command returns the matcher benchmark command.
func Command(settings *conf.Settings) *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure pattern matcher throughput on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := analysis.MatcherBenchmark(settings, iterations)
			if err != nil {
				return err
			}

			fmt.Printf("Classified %d windows in %s\n", result.Iterations, result.Total)
			fmt.Printf("  mean latency:   %s\n", result.MeanLatency)
			fmt.Printf("  stddev:         %s\n", result.StdDevLatency)
			fmt.Printf("  p95 latency:    %s\n", result.P95Latency)
			fmt.Printf("  ticks/second:   %.0f\n", result.TicksPerSecond)
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 10000, "Number of windows to classify")
	return cmd
}
