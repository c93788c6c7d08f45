package log

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type LogFormat string

var (
	Pretty LogFormat = "pretty"
	JSON   LogFormat = "json"
	Text   LogFormat = "text"
)

const consoleTimeFormat = "15:04:05.000"

var (
	stderr = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Stdout is used for benchmark results so they can be piped separately from the diagnostics on stderr
	Stdout = zerolog.New(os.Stdout).With().Timestamp().Logger()

	globalFormat = JSON
)

// the level functions are rebound whenever the underlying logger changes, so callers
// should always go through these rather than caching the logger themselves
var (
	Print  = stderr.Print
	Printf = stderr.Printf

	Fatal = stderr.Fatal
	Panic = stderr.Panic
	Error = stderr.Error
	Warn  = stderr.Warn
	Info  = stderr.Info
	Debug = stderr.Debug
	Trace = stderr.Trace
	Log   = stderr.Log

	Err       = stderr.Err
	With      = stderr.With
	WithLevel = stderr.WithLevel

	GetLevel = stderr.GetLevel
)

const (
	FatalLevel = zerolog.FatalLevel
	PanicLevel = zerolog.PanicLevel
	ErrorLevel = zerolog.ErrorLevel
	WarnLevel  = zerolog.WarnLevel
	InfoLevel  = zerolog.InfoLevel
	DebugLevel = zerolog.DebugLevel
	TraceLevel = zerolog.TraceLevel
)

var (
	ErrUnsupportedFormat = fmt.Errorf("unsupported format. supported 'json', 'pretty', 'text'")
)

func rebind() {
	Print = stderr.Print
	Printf = stderr.Printf
	Fatal = stderr.Fatal
	Panic = stderr.Panic
	Error = stderr.Error
	Warn = stderr.Warn
	Info = stderr.Info
	Debug = stderr.Debug
	Trace = stderr.Trace
	Log = stderr.Log
	Err = stderr.Err
	With = stderr.With
	WithLevel = stderr.WithLevel
	GetLevel = stderr.GetLevel
}

// Logger returns a copy of the diagnostics logger tagged with the component name
func Logger(component string) zerolog.Logger {
	return stderr.With().Str("component", component).Logger()
}

func SetLevelString(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	stderr = stderr.Level(l)
	Stdout = Stdout.Level(l)
	rebind()
	return nil
}

// SetOutput redirects the diagnostics logger. Tests use this to silence or capture the reactor
func SetOutput(w io.Writer) {
	stderr = stderr.Output(w)
	rebind()
}

func GetLogFormat() LogFormat {
	return globalFormat
}

func SetFormat(format string) error {
	switch format {
	case "json", "":
		stderr = stderr.Output(os.Stderr)
		Stdout = Stdout.Output(os.Stdout)
		globalFormat = JSON
	case "pretty":
		stderr = stderr.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false, TimeFormat: consoleTimeFormat})
		Stdout = Stdout.Output(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false, TimeFormat: consoleTimeFormat})
		globalFormat = Pretty
	case "text":
		stderr = stderr.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: consoleTimeFormat})
		Stdout = Stdout.Output(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: consoleTimeFormat})
		globalFormat = Text
	default:
		return ErrUnsupportedFormat
	}
	rebind()
	return nil
}
