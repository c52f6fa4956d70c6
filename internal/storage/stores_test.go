/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestFileStore_BackupAndRecovery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	first := sampleDraft()
	require.NoError(t, fs.Save(ctx, "evt", first))
	second := sampleDraft()
	second.Template = "beach"
	require.NoError(t, fs.Save(ctx, "evt", second))

	baks := fs.backups("floorplan_evt.json")
	require.Len(t, baks, 1, "previous draft should be backed up")

	// Corrupt the current draft; the latest backup (first save) is used
	require.NoError(t, os.WriteFile(filepath.Join(dir, "floorplan_evt.json"), []byte("{garbage"), 0o644))
	got, err := fs.Load(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, "ballroom", got.Template)
}

func TestFileStore_CorruptWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "floorplan_x.json"), []byte(`{"items":7}`), 0o644))
	_, err = fs.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCorruptDraft)
}

func TestFileStore_PrunesBackups(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	fs.KeepBackups = 2
	for i := 0; i < 6; i++ {
		d := sampleDraft()
		d.Items[0].X = float64(100 + i)
		require.NoError(t, fs.Save(ctx, "evt", d))
		time.Sleep(2 * time.Millisecond)
	}
	assert.Len(t, fs.backups("floorplan_evt.json"), 2)
}

func TestSQLiteStore_MigratesV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.sqlite")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	b, err := EncodeDraft(sampleDraft())
	require.NoError(t, err)
	for _, q := range []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');`,
		`CREATE TABLE drafts (key TEXT PRIMARY KEY, data TEXT NOT NULL);`,
	} {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err, q)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO drafts(key, data) VALUES('old', ?)`, string(b))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	st, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer st.Close()
	var schema int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema))
	assert.Equal(t, schemaVersion, schema)

	got, err := st.Load(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, sampleDraft(), got)
	require.NoError(t, st.Save(ctx, "old", got), "updated_at column must exist after migration")
}

func TestSQLiteStore_RecreatesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drafts.sqlite")
	require.NoError(t, os.WriteFile(path, []byte("THIS IS NOT SQLITE, NOT EVEN CLOSE TO A HEADER"), 0o644))
	st, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Load(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNoDraft)
	entries, _ := os.ReadDir(filepath.Join(dir, BackupsDirName))
	assert.NotEmpty(t, entries, "corrupt database should be backed up")
}

func TestSQLiteStore_CorruptRow(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "d.sqlite"))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.db.ExecContext(ctx, `INSERT INTO drafts(key, data, updated_at) VALUES('bad', '{"items":[{"id":1}]}', '')`)
	require.NoError(t, err)
	_, err = st.Load(ctx, "bad")
	assert.ErrorIs(t, err, ErrCorruptDraft)
}
