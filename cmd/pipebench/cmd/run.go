package cmd

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/context"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/reactor"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	variant     = string(bench.VariantReactor)
	poller      = reactor.PollerPoll
	runTimeout  = 0 * time.Second
	faults      = []string{}
	profileName = ""
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run WORKERS REQUESTS [OUTFILE]",
	Short: "run a single benchmark and report its result",
	Long: `this spawns WORKERS workers and as many masters, connected by two pipes each.
Every master sends REQUESTS queries to its worker and reads back the responses.
The result is written to stdout and, when OUTFILE is given, stored there as json.

The process exits with status 1 when the run did not complete.

usage:
pipebench run 10 1000
pipebench run 100 100 result.json --variant goroutine
pipebench run 1000 10 --poller epoll --timeout 30s
pipebench run 4 10 --fault 1:3:stall-worker --timeout 1s
`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		workers, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("workers", args[0]).Msg("invalid worker count")
		}
		requests, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal().Err(err).Str("requests", args[1]).Msg("invalid request count")
		}
		v, err := bench.ParseVariant(viper.GetString("run.variant"))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid variant")
		}

		opts := []bench.ConfigOption{
			bench.Workers(workers),
			bench.Requests(requests),
			bench.WithVariant(v),
			bench.UsePoller(viper.GetString("run.poller")),
			bench.Timeout(viper.GetDuration("run.timeout")),
		}
		for _, f := range faults {
			fault, err := bench.ParseFault(f)
			if err != nil {
				log.Fatal().Err(err).Str("fault", f).Msg("invalid fault")
			}
			opts = append(opts, bench.InjectFault(fault.Worker, fault.Cycle, fault.Kind))
		}

		outfile := ""
		if len(args) == 3 {
			outfile = args[2]
		}
		rec, err := runBenchmark(v, outfile, profileName, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to run benchmark")
		}
		if !rec.Success {
			os.Exit(1)
		}
	},
}

// runBenchmark performs one run, prints its record and stores it in outfile when one is given.
// The record is stored even when the run could not be set up, the error is returned afterwards
func runBenchmark(v bench.Variant, outfile, profile string, opts []bench.ConfigOption) (*result.Record, error) {
	if profile != "" {
		f, err := os.Create(profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, fmt.Errorf("failed to start profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	rec, runErr := bench.Run(context.Context(), opts...)
	bench.LogRecord(v, rec)

	if outfile != "" {
		if err := result.WriteFile(outfile, rec); err != nil {
			merr := multierror.Append(nil, fmt.Errorf("failed to write result: %w", err))
			if runErr != nil {
				merr = multierror.Append(merr, runErr)
			}
			return rec, merr
		}
		log.Debug().Str("file", outfile).Msg("wrote result")
	}
	return rec, runErr
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&variant, "variant", variant, "concurrency variant. can be reactor,reactor-select,goroutine,goroutine-select")
	runCmd.Flags().StringVar(&poller, "poller", poller, "readiness backend of the reactor. can be poll,epoll")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", runTimeout, "abort the run after this long. 0 waits forever")
	runCmd.Flags().StringSliceVar(&faults, "fault", faults, "inject a fault as worker:cycle:kind. kind can be corrupt-response,corrupt-query,stall-worker")
	runCmd.Flags().StringVar(&profileName, "profile-name", profileName, "name for cpu profile output file")

	viper.BindPFlag("run.variant", runCmd.Flags().Lookup("variant"))
	viper.BindPFlag("run.poller", runCmd.Flags().Lookup("poller"))
	viper.BindPFlag("run.timeout", runCmd.Flags().Lookup("timeout"))
}
