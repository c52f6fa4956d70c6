/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("FP_LOG_LEVEL", "warn")
	t.Setenv("FP_LOG_FORMAT", "json")
	t.Setenv("FP_LOG_SOURCE", "true")
	t.Setenv("FP_LOG_FILE", "")

	o := FromEnv()
	if o.Level != "warn" || o.Format != "json" || !o.AddSource || o.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", o)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"FP_LOG_LEVEL", "FP_LOG_FORMAT", "FP_LOG_SOURCE", "FP_LOG_FILE"} {
		t.Setenv(k, "")
	}
	o := FromEnv()
	if o.Level != "info" || o.Format != "console" || o.AddSource || o.File != "" {
		t.Fatalf("defaults mismatch: %+v", o)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "export"), slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "boom", 0)
	r.AddAttrs(
		slog.Int("n", 42),
		slog.Float64("pi", 3.14),
		slog.Bool("ok", true),
		slog.String("note", "two words"),
		slog.Any("err", errors.New("bad")),
	)
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"03:04:05.000 ERR [export] boom", " k=v", "grp.n=42", "grp.pi=3.14", "grp.ok=true", `grp.note="two words"`, "grp.err=bad"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("line not terminated: %q", out)
	}
}

func TestConsoleHandlerInlineGroup(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false))
	l.Debug("moved", slog.Group("pos", slog.Float64("x", 1.5), slog.Float64("y", 2)))
	if !strings.Contains(buf.String(), "DBG moved pos.x=1.5 pos.y=2") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestContextHandlerAddsOwner(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(contextHandler{next: newConsoleHandler(&buf, slog.LevelDebug, false)})

	l.InfoContext(ContextWithOwner(context.Background(), "evt-42"), "saved")
	if !strings.Contains(buf.String(), "owner=evt-42") {
		t.Fatalf("owner attr missing: %q", buf.String())
	}

	buf.Reset()
	l.InfoContext(context.Background(), "saved")
	if strings.Contains(buf.String(), "owner=") {
		t.Fatalf("unexpected owner attr: %q", buf.String())
	}
}

func TestFanoutSkipsDisabledSinks(t *testing.T) {
	var quiet, loud bytes.Buffer
	f := fanout{
		newConsoleHandler(&quiet, slog.LevelError, false),
		newConsoleHandler(&loud, slog.LevelDebug, false),
	}
	slog.New(f.WithAttrs([]slog.Attr{slog.String("a", "b")})).Info("hello")
	if quiet.Len() != 0 {
		t.Fatalf("error-level sink received info: %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "hello a=b") {
		t.Fatalf("debug-level sink missed record: %q", loud.String())
	}
}
