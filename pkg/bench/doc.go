/*
Package bench wires worker/master pairs over pipes, runs them with one of the scheduling variants
and produces a result.Record.

	rec, err := bench.Run(context.Background(),
		bench.Workers(3),
		bench.Requests(5),
		bench.WithVariant(bench.VariantReactor),
		bench.Timeout(10*time.Second),
	)
	if err != nil {
		// the run could not be set up
	}
	bench.LogRecord(bench.VariantReactor, rec)

Time only covers the working phase: channels and the scheduler are built before the clock starts.
A run that stops early still yields a record with the pending counts at that point, so a failure
can be diagnosed from the record alone.
*/
package bench
