package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/reactor"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkerConfigs(t *testing.T) {
	got, err := parseWorkerConfigs([]string{"10,1000", " 100 , 100"})
	require.NoError(t, err)
	assert.Equal(t, []result.Config{{Workers: 10, Messages: 1000}, {Workers: 100, Messages: 100}}, got)

	for _, bad := range []string{"10", "10,", "a,1", "1,b", "1,2,3"} {
		_, err := parseWorkerConfigs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"run": false, "collect": false, "analyze": false, "version": false, "serve": false, "load": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for k, v := range want {
		assert.True(t, v, k)
	}
}

func TestRunBenchmarkWritesRecord(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "result.json")
	profile := filepath.Join(dir, "cpu.prof")

	rec, err := runBenchmark(bench.VariantReactor, out, profile, []bench.ConfigOption{
		bench.Workers(2),
		bench.Requests(3),
		bench.Timeout(30 * time.Second),
	})
	require.NoError(t, err)
	assert.True(t, rec.Success)

	stored, err := result.ReadRecordFile(out)
	require.NoError(t, err)
	assert.Equal(t, rec.Workers, stored.Workers)
	assert.True(t, stored.Success)

	_, err = os.Stat(profile)
	assert.NoError(t, err)
}

func TestRunBenchmarkWritesRecordOnSetupFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "result.json")

	rec, err := runBenchmark("fork", out, "", []bench.ConfigOption{
		bench.Workers(2),
		bench.Requests(3),
		bench.WithVariant("fork"),
	})
	require.Error(t, err)
	require.NotNil(t, rec)

	stored, err := result.ReadRecordFile(out)
	require.NoError(t, err, "the record is stored before the failure is reported")
	assert.False(t, stored.Success)
	assert.NotEmpty(t, stored.Error)
	assert.Equal(t, result.Counts{3, 3}, stored.PendingWrite)
}

func TestRunBenchmarkBadProfile(t *testing.T) {
	_, err := runBenchmark(bench.VariantReactor, "", filepath.Join(t.TempDir(), "missing", "cpu.prof"), nil)
	assert.Error(t, err)
}

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf)

	out := buf.String()
	assert.Contains(t, out, Version)
	for _, v := range bench.Variants {
		assert.Contains(t, out, string(v))
	}
	assert.Contains(t, out, "Pollers: "+reactor.PollerPoll)
	assert.Contains(t, out, "(default "+string(bench.VariantReactor)+")")
}
