package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyUnit       = "unit"
	KeyOperation  = "operation"
	KeyAddress    = "address"
	KeyPath       = "path"
	KeySource     = "source"
	KeyTarget     = "target"
	KeyGroup      = "group"
	KeyVersion    = "version"
	KeyCount      = "count"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyName       = "name"
	KeyURL        = "url"
	KeyError      = "error"
	KeyOutput     = "output"
	KeyOutcome    = "outcome"
	KeyAttempt    = "attempt"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Unit(path string) slog.Attr      { return slog.String(KeyUnit, path) }
func Operation(op string) slog.Attr   { return slog.String(KeyOperation, op) }
func Address(a string) slog.Attr      { return slog.String(KeyAddress, a) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Group(g string) slog.Attr        { return slog.String(KeyGroup, g) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Output(o string) slog.Attr       { return slog.String(KeyOutput, o) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
