package cmd

import (
	"os"

	"github.com/pipebench/pipebench/internal/stats"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "summarize a collection written by pipebench collect",
	Long: `this groups the results in FILE by preamble, benchmark and worker config,
drops failed trials and trials without data, and reports the mean, median,
variance, standard deviation and tail percentiles of the working time and the
whole trial time.

usage:
pipebench analyze collector_data_1700000000.json
pipebench analyze collector_data_1700000000.json -o json
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		coll, err := result.ReadCollectionFile(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read collection")
		}
		if !coll.Summary.Balanced() {
			log.Warn().
				Int("successes", coll.Summary.Successes).
				Int("failures", coll.Summary.Failures).
				Int("skips", coll.Summary.Skips).
				Int("no_data", coll.Summary.NoData).
				Int("total", coll.Summary.TotalConfigs).
				Msg("collection summary does not add up")
		}
		log.Info().
			Str("id", coll.ID).
			Str("go_version", coll.GoVersion).
			Int("results", len(coll.Results)).
			Msg("loaded collection")

		stats.Render(os.Stdout, stats.Analyze(coll))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
