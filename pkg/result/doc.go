/*
Package result holds the records produced by benchmark runs and the collector, and their JSON
encoding.

A Record is the outcome of one run:

	{
	  "workers": 3,
	  "requests_per_batch": 5,
	  "time": 0.000412,
	  "success": true,
	  "pending_write": [0, 0, 0],
	  "pending_read": [0, 0, 0]
	}

A Collection groups many trials together with the collector's bookkeeping, and is what the analyzer
reads back.
*/
package result
