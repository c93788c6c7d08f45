package protocol

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func TestPropertyCorruptDiffers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 16).Draw(t, "payload")
		got, err := Corrupt(payload)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(payload) {
			t.Fatalf("length %d, want %d", len(got), len(payload))
		}
		if bytes.Equal(got, payload) {
			t.Fatalf("corrupt payload %q equals the original", got)
		}
	})
}
