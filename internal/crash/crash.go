/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosaved copy of the
// open floor plan.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"floorplanner/internal/domain"
	applog "floorplanner/internal/log"
	"floorplanner/internal/storage"
	"floorplanner/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Session is the editing state worth rescuing on a crash; planner.Editor implements it.
type Session interface {
	Owner() string
	Draft() domain.Draft
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report into dir (the temp dir when empty) and attempts an autosave of the
// session's draft next to it.
//
// Usage: defer crash.Recover(dir, editor)
func Recover(dir string, s Session) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(dir, s, r, stack)
		if s != nil && (s.Owner() != "" || len(s.Draft().Items) > 0) {
			if path, err := autosave(dir, s); err != nil {
				l.Error("autosave crash draft failed", slog.Any("err", err))
			} else {
				l.Info("autosave crash draft written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func reportDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func writeReport(dir string, s Session, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(dir), fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Floorplanner Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil {
		d := s.Draft()
		_, _ = fmt.Fprintf(&buf, "Owner: %s\n", s.Owner())
		_, _ = fmt.Fprintf(&buf, "Template: %s\nItems: %d\n", d.Template, len(d.Items))
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}

// autosave writes the session's draft as crash-<owner>-<stamp>.json. It does
// not touch the regular draft store so a half-broken scene never replaces the
// last good save.
func autosave(dir string, s Session) (string, error) {
	b, err := storage.EncodeDraft(s.Draft())
	if err != nil {
		return "", err
	}
	owner := s.Owner()
	if owner == "" {
		owner = "unsaved"
	}
	name := fmt.Sprintf("crash-%s-%s.json", owner, time.Now().Format("20060102-150405"))
	path := filepath.Join(reportDir(dir), name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
