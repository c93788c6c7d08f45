/*
Package cmd provides all the commands for the pipebench binary.

The commands are separated by file, one per subcommand. A few global CLI flags configure logging
for every command; they are defined by the globally exposed variables in root.go and can also be
set in $HOME/.pipebench.yaml or through PIPEBENCH_ prefixed environment variables.

Usage

	pipebench run 10 1000 --variant reactor
	pipebench collect --trials 5 --out results/collector_data_{ts}.json
	pipebench analyze results/collector_data_1700000000.json
	pipebench serve localhost:9090
	pipebench load localhost:9090 100 1000

*/
package cmd
