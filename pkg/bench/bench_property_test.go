package bench

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// without faults every variant delivers every message, whatever the shape of the run
func TestPropertyAllDelivered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.SampledFrom(Variants).Draw(t, "variant")
		workers := rapid.IntRange(1, 24).Draw(t, "workers")
		requests := rapid.IntRange(1, 40).Draw(t, "requests")

		rec, err := Run(context.Background(),
			WithVariant(v),
			Workers(workers),
			Requests(requests),
			Timeout(30*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}
		if !rec.Success {
			t.Fatalf("%s %dx%d did not complete: %s", v, workers, requests, rec.Error)
		}
		if len(rec.PendingWrite) != workers || len(rec.PendingRead) != workers {
			t.Fatalf("pending counts sized %d/%d, want %d", len(rec.PendingWrite), len(rec.PendingRead), workers)
		}
		if rec.Pending() != 0 {
			t.Fatalf("%d messages pending", rec.Pending())
		}
	})
}
