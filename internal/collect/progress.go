package collect

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v6"
	"github.com/vbauerster/mpb/v6/decor"
)

type ProgressBar interface {
	Incr(benchmark string, n int64)
	Finish()
}

type NullProgressBar struct {
	done int64
}

func (n *NullProgressBar) Incr(_ string, v int64) {
	atomic.AddInt64(&n.done, v)
}

func (n *NullProgressBar) Finish() {}

var _ ProgressBar = &NullProgressBar{}

// Progress shows one bar per benchmark variant and a spinner with the overall trial count
type Progress struct {
	Pb     *mpb.Progress
	Bars   map[string]*mpb.Bar
	Trials *progressbar.ProgressBar
}

// NewProgress creates the bars. totals maps each benchmark to its number of trials
func NewProgress(order []string, totals map[string]int64) *Progress {
	pb := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	var sum int64
	bars := make(map[string]*mpb.Bar, len(totals))
	for _, name := range order {
		total := totals[name]
		sum += total
		bars[name] = pb.AddBar(total,
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(decor.Percentage(decor.WC{W: 5})),
		)
	}
	trials := progressbar.NewOptions64(sum,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(5),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetVisibility(true),
		progressbar.OptionSpinnerType(14),
	)
	return &Progress{
		Pb:     pb,
		Bars:   bars,
		Trials: trials,
	}
}

func (p *Progress) Incr(benchmark string, n int64) {
	if b, ok := p.Bars[benchmark]; ok {
		b.IncrInt64(n)
	}
	p.Trials.Add64(n)
}

// Finish aborts bars that did not complete, e.g. after an interrupt, so waiting cannot hang
func (p *Progress) Finish() {
	for _, b := range p.Bars {
		if !b.Completed() {
			b.Abort(false)
		}
	}
	p.Pb.Wait()
	p.Trials.Finish()
}
