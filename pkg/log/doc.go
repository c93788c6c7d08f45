/*
Package log wraps zerolog with a process wide diagnostics logger on stderr and a
results logger on stdout.

The level helpers are package level function values, so the usual zerolog chaining works

	log.Info().Int("workers", 10).Dur("elapsed", d).Msg("run complete")

SetFormat switches between machine readable json and the human console formats.
*/
package log
