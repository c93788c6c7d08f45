package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/context"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/reactor"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/pipebench/pipebench/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	servePoller = reactor.PollerPoll
	loadTimeout = 0 * time.Second
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve ADDR",
	Short: "answer STATUS with OK over tcp from a single reactor",
	Long: `this listens on ADDR and answers every STATUS query of every connection with OK.
The listener and all connections are tasks of one reactor, so a single goroutine
serves every client. The server stops on SIGINT or SIGTERM.

usage:
pipebench serve localhost:9090
pipebench serve :9090 --poller epoll
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := server.Listen(args[0], server.UsePoller(viper.GetString("serve.poller")))
		if err != nil {
			log.Fatal().Err(err).Str("addr", args[0]).Msg("failed to listen")
		}
		if err := s.Serve(context.Context()); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	},
}

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load ADDR CLIENTS REQUESTS [OUTFILE]",
	Short: "drive a pipebench server with concurrent clients",
	Long: `this opens CLIENTS connections to the server at ADDR and runs REQUESTS STATUS/OK
cycles on each. The result has the same shape as the one of pipebench run, with
one pending count per client, and is stored in OUTFILE as json when given.

The process exits with status 1 when the load did not complete.

usage:
pipebench load localhost:9090 100 1000
pipebench load localhost:9090 10 100 load.json --timeout 10s
`,
	Args: cobra.RangeArgs(3, 4),
	Run: func(cmd *cobra.Command, args []string) {
		clients, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal().Err(err).Str("clients", args[1]).Msg("invalid client count")
		}
		requests, err := strconv.Atoi(args[2])
		if err != nil {
			log.Fatal().Err(err).Str("requests", args[2]).Msg("invalid request count")
		}

		ctx, cancel := context.WithOptionalTimeout(context.Context(), viper.GetDuration("load.timeout"))
		defer cancel()
		rec, loadErr := server.Load(ctx, args[0], clients, requests)
		bench.LogRecord("load", rec)

		if len(args) == 4 {
			if err := result.WriteFile(args[3], rec); err != nil {
				log.Fatal().Err(err).Msg("failed to write result")
			}
		}
		if loadErr != nil {
			log.Fatal().Err(loadErr).Msg("failed to load server")
		}
		if !rec.Success {
			cancel()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCmd)

	serveCmd.Flags().StringVar(&servePoller, "poller", servePoller, "readiness backend of the reactor. can be poll,epoll")
	loadCmd.Flags().DurationVarP(&loadTimeout, "timeout", "t", loadTimeout, "abort the load after this long. 0 waits forever")

	viper.BindPFlag("serve.poller", serveCmd.Flags().Lookup("poller"))
	viper.BindPFlag("load.timeout", loadCmd.Flags().Lookup("timeout"))
}
