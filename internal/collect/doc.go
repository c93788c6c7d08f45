/*
Package collect repeats benchmark runs across variants, worker configs and GOMAXPROCS settings and
gathers their records into a single collection for the analyzer.

Every trial's record is written to a scratch file and read back before it is stored, so a trial
that finishes without leaving data is reported as such rather than silently dropped.
*/
package collect
