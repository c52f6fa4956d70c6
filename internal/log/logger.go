/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log wires the process-wide slog logger. Console output is either a
// compact human readable line or JSON; an optional rotating file always gets
// JSON. Records logged with a context carry the owning event id of the floor
// plan that is being edited.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"floorplanner/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv fills it from FP_LOG_LEVEL,
// FP_LOG_FORMAT, FP_LOG_SOURCE and FP_LOG_FILE.
type Options struct {
	Level     string // debug, info, warn or error
	Format    string // console or json
	AddSource bool
	File      string // rotated JSON log file, empty disables

	// Rotation limits for File. Zero picks 10 MB and 3 backups.
	MaxSizeMB  int
	MaxBackups int

	// Console overrides the console destination (stderr).
	Console io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the application logger. The first call without a prior Init
// configures it from the environment.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		l = Init(FromEnv())
	}
	return l
}

// Init builds the logger from opts, installs it as slog.Default and returns it.
func Init(opts Options) *slog.Logger {
	lvl := parseLevel(opts.Level)
	ho := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	var sinks fanout
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(out, ho))
	} else {
		sinks = append(sinks, newConsoleHandler(out, lvl, opts.AddSource))
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		sinks = append(sinks, slog.NewJSONHandler(rotating(path, opts), ho))
	}

	var h slog.Handler = sinks
	if len(sinks) == 1 {
		h = sinks[0]
	}
	l := slog.New(contextHandler{next: h}).With(
		slog.String("app", "floorplanner"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

func rotating(path string, opts Options) *lj.Logger {
	size, backups := opts.MaxSizeMB, opts.MaxBackups
	if size <= 0 {
		size = 10
	}
	if backups <= 0 {
		backups = 3
	}
	return &lj.Logger{Filename: path, MaxSize: size, MaxBackups: backups, MaxAge: 28, Compress: true}
}

var envOptions = []struct {
	key   string
	apply func(*Options, string)
}{
	{"FP_LOG_LEVEL", func(o *Options, v string) { o.Level = v }},
	{"FP_LOG_FORMAT", func(o *Options, v string) { o.Format = v }},
	{"FP_LOG_SOURCE", func(o *Options, v string) { o.AddSource, _ = strconv.ParseBool(v) }},
	{"FP_LOG_FILE", func(o *Options, v string) { o.File = v }},
}

// FromEnv returns Options read from the FP_LOG_* variables on top of the
// defaults (info, console, no source, no file).
func FromEnv() Options {
	o := Options{Level: "info", Format: "console"}
	for _, e := range envOptions {
		if v := strings.TrimSpace(os.Getenv(e.key)); v != "" {
			e.apply(&o, v)
		}
	}
	return o
}

// WithComponent returns a logger tagged with the component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ownerKey struct{}

// ContextWithOwner attaches the owning event id to ctx. Records logged through
// the *Context methods carry it as the "owner" attribute.
func ContextWithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner set by ContextWithOwner.
func OwnerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ownerKey{}).(string)
	return s
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelInfo
		}
	}
	return l
}

// fanout hands every record to each handler in turn.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// contextHandler copies request scoped values from ctx onto the record.
type contextHandler struct{ next slog.Handler }

func (c contextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return c.next.Enabled(ctx, l)
}

func (c contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if owner := OwnerFromContext(ctx); owner != "" {
		r.AddAttrs(slog.String("owner", owner))
	}
	return c.next.Handle(ctx, r)
}

func (c contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: c.next.WithAttrs(attrs)}
}

func (c contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: c.next.WithGroup(name)}
}

// consoleHandler writes one line per record:
//
//	15:04:05.000 INF [component] message key=value ...
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	component string
	prefix    string // open groups, dot terminated
	preset    []byte // attrs bound through WithAttrs, already formatted
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, 0, 256)
	buf = ts.AppendFormat(buf, "15:04:05.000")
	buf = append(buf, ' ')
	buf = append(buf, levelTag(r.Level)...)
	if h.component != "" {
		buf = append(buf, " ["...)
		buf = append(buf, h.component...)
		buf = append(buf, ']')
	}
	if r.Message != "" {
		buf = append(buf, ' ')
		buf = append(buf, r.Message...)
	}
	buf = append(buf, h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	if h.addSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		buf = append(buf, " src="...)
		buf = append(buf, filepath.Base(f.File)...)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(f.Line), 10)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.preset = append([]byte(nil), h.preset...)
	for _, a := range attrs {
		if a.Key == "component" && h.prefix == "" {
			c.component = a.Value.String()
			continue
		}
		c.preset = appendAttr(c.preset, h.prefix, a)
	}
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			buf = appendAttr(buf, p, g)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	}
	s := v.String()
	if needsQuote(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}
