package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pipebench/pipebench/pkg/log"
)

func seconds(v float64) string {
	return humanize.SI(v, "s")
}

func optSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return seconds(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}

func summaryRow(g *Group, phase string, s Summary) []string {
	return []string{
		g.Preamble,
		g.Benchmark,
		humanize.Comma(int64(g.Workers)),
		humanize.Comma(int64(g.Messages)),
		phase,
		fmt.Sprintf("%d/%d", s.N, g.Trials),
		seconds(s.Mean),
		seconds(s.Median),
		optFloat(s.Variance),
		optSeconds(s.StdDev),
		seconds(s.P90),
		seconds(s.P99),
	}
}

// Render writes groups to w as a table. In json format every group is logged to stdout instead,
// one event per phase
func Render(w io.Writer, groups []*Group) {
	if log.GetLogFormat() == log.JSON {
		for _, g := range groups {
			logGroup(g)
		}
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"preamble", "benchmark", "workers", "messages", "phase", "n", "mean", "median", "variance", "std dev", "p90", "p99"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, g := range groups {
		if !g.HasData() {
			table.Append([]string{g.Preamble, g.Benchmark, humanize.Comma(int64(g.Workers)), humanize.Comma(int64(g.Messages)),
				"no data", fmt.Sprintf("0/%d", g.Trials), "-", "-", "-", "-", "-", "-"})
			continue
		}
		table.Append(summaryRow(g, "messages", g.Working))
		table.Append(summaryRow(g, "process", g.WholeProcess))
	}
	table.Render()
}

func logGroup(g *Group) {
	if !g.HasData() {
		log.Stdout.Log().
			Str("preamble", g.Preamble).
			Str("benchmark", g.Benchmark).
			Int("workers", g.Workers).
			Int("messages", g.Messages).
			Int("trials", g.Trials).
			Msg("no data for configuration")
		return
	}
	for _, p := range []struct {
		phase string
		s     Summary
	}{{"messages", g.Working}, {"process", g.WholeProcess}} {
		e := log.Stdout.Log().
			Str("preamble", g.Preamble).
			Str("benchmark", g.Benchmark).
			Int("workers", g.Workers).
			Int("messages", g.Messages).
			Str("phase", p.phase).
			Int("n", p.s.N).
			Int("trials", g.Trials).
			Float64("mean", p.s.Mean).
			Float64("median", p.s.Median).
			Float64("p90", p.s.P90).
			Float64("p99", p.s.P99)
		if p.s.Variance != nil {
			e = e.Float64("variance", *p.s.Variance).Float64("std_dev", *p.s.StdDev)
		}
		e.Msg("")
	}
}
