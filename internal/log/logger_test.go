/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitWritesJSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "console", File: path, Console: &console})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })

	l := WithOperation(WithComponent("storage"), "save")
	l.Info("draft saved", slog.String("key", "floorplan_evt-1.json"))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != "floorplanner" {
		t.Fatalf("app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "storage" || m["op"] != "save" || m["msg"] != "draft saved" {
		t.Fatalf("unexpected record: %v", m)
	}
	if !strings.Contains(console.String(), "[storage] draft saved") {
		t.Fatalf("console line missing component tag: %q", console.String())
	}
}

func TestInitJSONConsole(t *testing.T) {
	var console bytes.Buffer
	l := Init(Options{Level: "warn", Format: "JSON", Console: &console})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })

	l.Info("dropped")
	l.Warn("kept", "n", 3)
	if strings.Contains(console.String(), "dropped") {
		t.Fatalf("info record leaked at warn level: %q", console.String())
	}
	m := lastJSONLine(t, console.Bytes())
	if m["msg"] != "kept" || m["n"] != float64(3) {
		t.Fatalf("unexpected record: %v", m)
	}
	if L() != l {
		t.Fatalf("L should return the logger installed by Init")
	}
}
