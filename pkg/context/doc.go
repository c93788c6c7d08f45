/*
Package context provides utilities wrapping the native go/context package
for catching and handling multiple interrupts.

The main use-case is to attach an interrupt signal handler to the context so a long
collection sweep can be stopped between trials, and a stuck benchmark can be aborted.

	import "github.com/pipebench/pipebench/pkg/context"

	...

	rec, err := bench.Run(context.Context(), bench.Workers(10), bench.Requests(1000))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run benchmark")
	}
*/
package context
