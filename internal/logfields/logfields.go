package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDemo       = "demo"
	KeyPath       = "path"
	KeySource     = "source"
	KeyDest       = "dest"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyMode       = "mode"
	KeySession    = "session"
	KeyPort       = "port"
	KeyURL        = "url"
	KeyOp         = "op"
	KeyFiles      = "files"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Demo(name string) slog.Attr        { return slog.String(KeyDemo, name) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr         { return slog.String(KeySource, p) }
func Dest(p string) slog.Attr           { return slog.String(KeyDest, p) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func State(s string) slog.Attr          { return slog.String(KeyState, s) }
func Mode(m string) slog.Attr           { return slog.String(KeyMode, m) }
func Session(id string) slog.Attr       { return slog.String(KeySession, id) }
func Port(p int) slog.Attr              { return slog.Int(KeyPort, p) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Op(op string) slog.Attr            { return slog.String(KeyOp, op) }
func Files(n int) slog.Attr             { return slog.Int(KeyFiles, n) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr     { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr  { return slog.String(KeyRemoteAddr, addr) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
