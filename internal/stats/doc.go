// Package stats turns a result.Collection into per configuration statistics: mean, median,
// variance and standard deviation of the working and whole process times, plus p90/p99 from an
// HDR histogram.
package stats
