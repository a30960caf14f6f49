// Package cfg contains common configuration variables shared by every
// vprinter subcommand.
package cfg

import (
	"flag"
	"log/slog"
	"os"
)

var (
	TraceFile   string = os.Getenv("TRACE_FILE")
	LogFile     string = os.Getenv("LOG_FILE")
	JSONHandler bool   = os.Getenv("JSON_LOG") != ""
	Verbose     bool   = os.Getenv("DEBUG") != ""

	// ConfigFile is the optional YAML service configuration consumed by
	// the start command.
	ConfigFile string = os.Getenv("VPRINTER_CONFIG")

	// AdminAddr is the base URL the administrative subcommands (stop,
	// set-printer-name, load-plugin, ...) talk to.
	AdminAddr string = envOr("VPRINTER_ADMIN_ADDR", "http://localhost:631")

	Log *slog.Logger = slog.Default()
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type FlagMask uint16

const (
	DefaultFlags FlagMask = 0
	// OmitAdminFlags is used by the start command, which talks to no
	// running instance and so has no use for -admin-addr.
	OmitAdminFlags FlagMask = 1 << (iota - 1)
)

// SetBaseFlags sets the flags common to every subcommand.
func SetBaseFlags(fs *flag.FlagSet, mask FlagMask) {
	fs.StringVar(&TraceFile, "trace", TraceFile, "trace `filename`")
	fs.StringVar(&LogFile, "log", LogFile, "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&JSONHandler, "log-json", JSONHandler, "log in JSON format")
	fs.BoolVar(&Verbose, "v", Verbose, "verbose messages")

	if mask&OmitAdminFlags == 0 {
		fs.StringVar(&AdminAddr, "admin-addr", AdminAddr, "base URL of the running printer's admin endpoint")
	}
}

// SetDebugLevel raises the default slog level to Debug, used when -v is set.
func SetDebugLevel() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}
