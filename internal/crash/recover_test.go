/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"floorplanner/internal/domain"
	"floorplanner/internal/storage"
)

// TestRecover_Panicking ensures Recover handles a panic, writes a report,
// autosaves the draft, and does not terminate the test process due to injected exitFn.
func TestRecover_Panicking(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(os.Stderr, r) // drain pipe
	}()

	// Override exitFn to avoid os.Exit during test and to assert it was called
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	s := fakeSession{owner: "evt-1", draft: domain.Draft{
		Template: "ballroom",
		Items: []domain.PlacedItem{{
			ID: "item-1", Type: domain.TypeChair, Shape: domain.ShapeSquare,
			Color: domain.RGB(0x6b, 0x72, 0x80), DarkColor: domain.RGB(0x9c, 0xa3, 0xaf),
			W: 30, H: 30, X: 50, Y: 50,
		}},
	}}

	// Trigger a panic that Recover will catch
	func() {
		defer Recover(dir, s)
		panic("boom")
	}()

	var report, draft string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch name := f.Name(); {
		case strings.HasPrefix(name, "crash-") && strings.HasSuffix(name, ".log"):
			report = filepath.Join(dir, name)
		case strings.HasPrefix(name, "crash-evt-1-") && strings.HasSuffix(name, ".json"):
			draft = filepath.Join(dir, name)
		}
	}
	if report == "" {
		t.Fatalf("expected crash report file in %s", dir)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	if draft == "" {
		t.Fatalf("expected autosaved draft in %s", dir)
	}
	raw, _ := os.ReadFile(draft)
	d, err := storage.DecodeDraft(raw)
	if err != nil {
		t.Fatalf("autosaved draft does not decode: %v", err)
	}
	if d.Template != "ballroom" || len(d.Items) != 1 {
		t.Fatalf("unexpected autosave: %+v", d)
	}

	// Ensure exit was attempted with code 2 (but intercepted)
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
