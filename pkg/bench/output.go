package bench

import (
	"io"
	"os"
	"strconv"

	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/valyala/bytebufferpool"
)

const (
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorGrey  = "\x1b[90m"
	colorReset = "\x1b[0m"
)

func appendCounts(b []byte, c result.Counts) []byte {
	b = append(b, '[')
	for i, v := range c {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return append(b, ']')
}

// AppendRecord appends the one line text form of rec
// <variant> workers=<W> requests=<N> time=<seconds>s success=<bool> pending_write=[..] pending_read=[..]
func AppendRecord(b []byte, variant Variant, rec *result.Record) []byte {
	b = append(b, variant...)
	b = append(b, " workers="...)
	b = strconv.AppendInt(b, int64(rec.Workers), 10)
	b = append(b, " requests="...)
	b = strconv.AppendInt(b, int64(rec.RequestsPerBatch), 10)
	b = append(b, " time="...)
	b = strconv.AppendFloat(b, rec.Time, 'f', 6, 64)
	b = append(b, "s success="...)
	b = strconv.AppendBool(b, rec.Success)
	b = append(b, " pending_write="...)
	b = appendCounts(b, rec.PendingWrite)
	b = append(b, " pending_read="...)
	b = appendCounts(b, rec.PendingRead)
	if rec.Timeout {
		b = append(b, " timeout"...)
	}
	return b
}

// AppendPrettyRecord prefixes AppendRecord with a coloured outcome and appends the failure reason
func AppendPrettyRecord(b []byte, variant Variant, rec *result.Record) []byte {
	if rec.Success {
		b = append(b, colorGreen...)
		b = append(b, "OK   "...)
	} else {
		b = append(b, colorRed...)
		b = append(b, "FAIL "...)
	}
	b = append(b, colorReset...)

	b = AppendRecord(b, variant, rec)
	if rec.Error != "" {
		b = append(b, colorGrey...)
		b = append(b, " "...)
		b = append(b, rec.Error...)
		b = append(b, colorReset...)
	}
	return b
}

// LogRecord writes rec to stdout in the configured log format
func LogRecord(variant Variant, rec *result.Record) {
	writeRecord(os.Stdout, variant, rec)
}

func writeRecord(w io.Writer, variant Variant, rec *result.Record) {
	switch log.GetLogFormat() {
	case log.Text:
		msg := bytebufferpool.Get()
		msg.B = AppendRecord(msg.B, variant, rec)
		msg.B = append(msg.B, "\n"...)
		w.Write(msg.B)
		bytebufferpool.Put(msg)
	case log.Pretty:
		msg := bytebufferpool.Get()
		msg.B = append(msg.B, "\r"...)
		msg.B = AppendPrettyRecord(msg.B, variant, rec)
		msg.B = append(msg.B, "\n"...)
		w.Write(msg.B)
		bytebufferpool.Put(msg)
	case log.JSON:
		e := log.Stdout.Log().
			Str("variant", string(variant)).
			Int("workers", rec.Workers).
			Int("requests_per_batch", rec.RequestsPerBatch).
			Float64("time", rec.Time).
			Bool("success", rec.Success).
			Ints("pending_write", rec.PendingWrite).
			Ints("pending_read", rec.PendingRead)
		if rec.Timeout {
			e = e.Bool("timeout", true)
		}
		if rec.Error != "" {
			e = e.Str("error", rec.Error)
		}
		e.Msg("")
	}
}
