package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/reactor"
	"github.com/spf13/cobra"
)

// These global variables are injected at build time to provide the
// version command
var (
	Version = "v0.0.0"
	Commit  = "commit"
	Date    = "today"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version of the binary and the benchmarks it supports",
	Long: `this shows the version of the binary that is running, the concurrency variants it can
benchmark and the reactor pollers available on this platform`,
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(os.Stdout)
	},
}

func writeVersion(w io.Writer) {
	fmt.Fprintf(w, "%s - %s\n", Version, Commit)
	fmt.Fprintf(w, "Built on %s with %s for %s/%s\n", Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	variants := make([]string, 0, len(bench.Variants))
	for _, v := range bench.Variants {
		variants = append(variants, string(v))
	}
	fmt.Fprintf(w, "Variants: %s (default %s)\n", strings.Join(variants, ", "), bench.NewDefaultConfig().Variant)
	fmt.Fprintf(w, "Pollers: %s (default %s)\n", strings.Join(availablePollers(), ", "), bench.NewDefaultConfig().Poller)
}

// availablePollers lists the poller backends that can be created on this platform
func availablePollers() []string {
	var ret []string
	for _, name := range []string{reactor.PollerPoll, reactor.PollerEpoll} {
		p, err := reactor.NewPoller(name)
		if err != nil {
			continue
		}
		p.Close()
		ret = append(ret, name)
	}
	return ret
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
