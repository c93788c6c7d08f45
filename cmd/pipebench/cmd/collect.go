package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/pipebench/pipebench/internal/collect"
	"github.com/pipebench/pipebench/internal/stats"
	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/context"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	trials         = collect.DefaultTrials
	outTemplate    = collect.DefaultOutput
	preambles      = []int{}
	variants       = []string{}
	workerConfigs  = []string{}
	collectTimeout = collect.DefaultTimeout
	collectPoller  = ""
	skipPreflight  = false
	assumeYes      = false
	progressBar    = true
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect [--trials N] [--out collector_data_{ts}.json]",
	Short: "repeat benchmarks across variants and configs and store the results",
	Long: `this runs every combination of GOMAXPROCS preamble, benchmark variant and
worker config --trials times in a shuffled order and stores all results in a
single json file for pipebench analyze.

Worker configs are given as WORKERS,REQUESTS and default to 10,1000 100,100 1000,10.
The output file name is a template, {ts} expands to the start time and {id} to the
collection id.

usage:
pipebench collect --trials 5
pipebench collect --variant reactor --variant goroutine --preamble 1 --preamble 4
pipebench collect --config 10,10000 --config 10000,10 --out results/{id}.json
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configs, err := parseWorkerConfigs(workerConfigs)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid worker config")
		}

		opts := []collect.Option{
			collect.Trials(viper.GetInt("collect.trials")),
			collect.Output(viper.GetString("collect.out")),
			collect.Timeout(viper.GetDuration("collect.timeout")),
			collect.Poller(collectPoller),
			collect.ShowProgress(progressBar && !quiet()),
		}
		if len(configs) > 0 {
			opts = append(opts, collect.Configs(configs...))
		}
		if len(variants) > 0 {
			opts = append(opts, collect.Benchmarks(variants...))
		}
		if len(preambles) > 0 {
			opts = append(opts, collect.Preambles(preambles...))
		}
		if skipPreflight {
			opts = append(opts, collect.Preflight(collect.RunAll))
		}

		c, err := collect.New(opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure collector")
		}

		out := c.OutputFilename()
		if _, err := os.Stat(out); err == nil && !assumeYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("%s exists. Overwrite? [y/n]", out),
				IsConfirm: true,
				Stdout:    os.Stderr,
			}
			v, err := prompt.Run()
			if err != nil || strings.ToLower(v) != "y" {
				log.Info().Str("file", out).Msg("not overwriting")
				return
			}
		}

		start := time.Now()
		coll, err := c.Run(context.Context())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to collect")
		}
		if err := result.WriteFile(out, coll); err != nil {
			log.Fatal().Err(err).Msg("failed to write collection")
		}
		log.Info().
			Str("file", out).
			Str("id", coll.ID).
			Dur("duration", time.Since(start)).
			Msg("wrote collection")

		if !quiet() {
			fmt.Fprintf(os.Stderr, "\n")
			stats.Render(os.Stderr, stats.Analyze(coll))
		}
	},
}

// parseWorkerConfigs parses WORKERS,REQUESTS pairs
func parseWorkerConfigs(in []string) ([]result.Config, error) {
	ret := make([]result.Config, 0, len(in))
	for _, v := range in {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config %q, expected WORKERS,REQUESTS", v)
		}
		w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid workers in %q: %w", v, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid requests in %q: %w", v, err)
		}
		ret = append(ret, result.Config{Workers: w, Messages: n})
	}
	return ret, nil
}

func init() {
	rootCmd.AddCommand(collectCmd)

	names := make([]string, 0, len(bench.Variants))
	for _, v := range bench.Variants {
		names = append(names, string(v))
	}

	collectCmd.Flags().IntVarP(&trials, "trials", "n", trials, "how many times every combination is run")
	collectCmd.Flags().StringVar(&outTemplate, "out", outTemplate, "output file template")
	collectCmd.Flags().IntSliceVar(&preambles, "preamble", preambles, "GOMAXPROCS values to run under. 0 keeps the default. defaults to 1 and the number of cpus")
	collectCmd.Flags().StringSliceVar(&variants, "variant", variants, "variants to run. defaults to "+strings.Join(names, ","))
	collectCmd.Flags().StringSliceVar(&workerConfigs, "config", workerConfigs, "worker configs as WORKERS,REQUESTS")
	collectCmd.Flags().DurationVarP(&collectTimeout, "timeout", "t", collectTimeout, "deadline of every trial")
	collectCmd.Flags().StringVar(&collectPoller, "poller", collectPoller, "readiness backend of the reactor. can be poll,epoll")
	collectCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", skipPreflight, "run trials even when they exceed the open file limit")
	collectCmd.Flags().BoolVarP(&assumeYes, "yes", "y", assumeYes, "overwrite the output file without asking")
	collectCmd.Flags().BoolVar(&progressBar, "progress", progressBar, "a progress bar while collecting. by default enabled only on Stderr")

	viper.BindPFlag("collect.trials", collectCmd.Flags().Lookup("trials"))
	viper.BindPFlag("collect.out", collectCmd.Flags().Lookup("out"))
	viper.BindPFlag("collect.timeout", collectCmd.Flags().Lookup("timeout"))
}
