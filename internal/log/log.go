// Package log holds the wallet's zerolog loggers: one global logger and a
// child per component, tagged with a "component" field.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Ledger    zerolog.Logger
	Reconcile zerolog.Logger
	Network   zerolog.Logger
	TxBuilder zerolog.Logger
	Token     zerolog.Logger
	Wallet    zerolog.Logger
	RPC       zerolog.Logger
	Storage   zerolog.Logger
)

var (
	fileMu sync.Mutex
	file   *os.File
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	initComponentLoggers()
}

// Init replaces the global logger. Console output is colored text, or
// JSON when jsonOutput is set. A non-empty path also appends JSON lines
// to that file; a file opened by an earlier Init is closed.
func Init(level string, jsonOutput bool, path string) error {
	var out io.Writer = os.Stdout
	if !jsonOutput {
		out = consoleWriter(os.Stdout)
	}

	var f *os.File
	if path != "" {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		// ConsoleWriter reformats the JSON line; the file gets it as is.
		out = zerolog.MultiLevelWriter(out, f)
	}

	Logger = zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
	initComponentLoggers()
	swapFile(f)
	return nil
}

// Close releases the log file, if any. Console logging continues.
func Close() error {
	fileMu.Lock()
	defer fileMu.Unlock()
	if file == nil {
		return nil
	}
	Logger = NewConsoleLogger(os.Stdout, Logger.GetLevel().String())
	initComponentLoggers()
	err := file.Close()
	file = nil
	return err
}

func swapFile(f *os.File) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// parseLevel maps a level name to a zerolog level. Empty and unknown
// names log at info.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func initComponentLoggers() {
	for _, c := range []struct {
		l    *zerolog.Logger
		name string
	}{
		{&Ledger, "ledger"},
		{&Reconcile, "reconcile"},
		{&Network, "bchd"},
		{&TxBuilder, "txbuilder"},
		{&Token, "token"},
		{&Wallet, "wallet"},
		{&RPC, "rpc"},
		{&Storage, "storage"},
	} {
		*c.l = WithComponent(c.name)
	}
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
