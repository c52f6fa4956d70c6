/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"floorplanner/internal/domain"
	applog "floorplanner/internal/log"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MetadataStore holds events, vendors and floor-plan records.
type MetadataStore interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	ListVendors(ctx context.Context) ([]domain.Vendor, error)
	CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error)
	// PutFloorPlan upserts the record for (EventID, RecipientID); the last write wins.
	PutFloorPlan(ctx context.Context, rec domain.FloorPlanRecord) error
	GetFloorPlan(ctx context.Context, eventID, recipientID string) (domain.FloorPlanRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

// sqlStore implements MetadataStore over database/sql for both dialects.
// Queries are written with '?' placeholders and rebound for Postgres.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	// SQLite allows a single writer; serialize writes instead of surfacing SQLITE_BUSY.
	wmu sync.Mutex
}

// OpenMetadataStore opens the store for driver ("postgres", "pgx" or "sqlite"),
// pings it and applies pending migrations.
func OpenMetadataStore(ctx context.Context, driver, dsn string) (MetadataStore, error) {
	var (
		d       dialect
		sqlName string
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx", "pg":
		d, sqlName = dialectPostgres, "pgx"
	case "sqlite", "":
		d, sqlName = dialectSQLite, "sqlite"
		if dsn == "" {
			dsn = "floorplanner.db"
		}
	default:
		return nil, fmt.Errorf("unknown metadata driver %q", driver)
	}
	db, err := sql.Open(sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if d == dialectSQLite {
		db.SetMaxOpenConns(1)
	}
	s := &sqlStore{db: db, dialect: d}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if d == dialectSQLite {
		if _, err := db.ExecContext(pctx, `PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragmas: %w", err)
		}
	}
	if err := applyMigrations(pctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// rebind turns '?' placeholders into '$n' for Postgres.
func (s *sqlStore) rebind(q string) string {
	if s.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, q string, args ...any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	return err
}

func (s *sqlStore) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, event_date, planner_id FROM events ORDER BY event_date, name, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer closeRows(rows)
	list := []domain.Event{}
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Date, &ev.PlannerID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

func (s *sqlStore) CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if err := s.exec(ctx, `INSERT INTO events (id, name, event_date, planner_id) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Name, ev.Date, ev.PlannerID); err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *sqlStore) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category FROM vendors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer closeRows(rows)
	list := []domain.Vendor{}
	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Category); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func (s *sqlStore) CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	if err := s.exec(ctx, `INSERT INTO vendors (id, name, category) VALUES (?, ?, ?)`, v.ID, v.Name, v.Category); err != nil {
		return domain.Vendor{}, fmt.Errorf("create vendor: %w", err)
	}
	return v, nil
}

func (s *sqlStore) PutFloorPlan(ctx context.Context, rec domain.FloorPlanRecord) error {
	// ON CONFLICT ... DO UPDATE is understood by both Postgres and SQLite >= 3.24.
	err := s.exec(ctx, `INSERT INTO floorplans (event_id, recipient_id, path, url, uploaded_at, uploaded_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id, recipient_id) DO UPDATE SET
			path = excluded.path,
			url = excluded.url,
			uploaded_at = excluded.uploaded_at,
			uploaded_by = excluded.uploaded_by`,
		rec.EventID, rec.RecipientID, rec.Path, rec.URL,
		rec.UploadedAt.UTC().Format(time.RFC3339Nano), rec.UploadedBy)
	if err != nil {
		return fmt.Errorf("put floorplan: %w", err)
	}
	return nil
}

func (s *sqlStore) GetFloorPlan(ctx context.Context, eventID, recipientID string) (domain.FloorPlanRecord, error) {
	var (
		rec domain.FloorPlanRecord
		at  string
	)
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT event_id, recipient_id, path, url, uploaded_at, uploaded_by
		FROM floorplans WHERE event_id = ? AND recipient_id = ?`), eventID, recipientID)
	switch err := row.Scan(&rec.EventID, &rec.RecipientID, &rec.Path, &rec.URL, &at, &rec.UploadedBy); {
	case errors.Is(err, sql.ErrNoRows):
		return domain.FloorPlanRecord{}, ErrNotFound
	case err != nil:
		return domain.FloorPlanRecord{}, fmt.Errorf("get floorplan: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return domain.FloorPlanRecord{}, fmt.Errorf("parse uploaded_at %q: %w", at, err)
	}
	rec.UploadedAt = t
	return rec, nil
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqlStore) Close() error { return s.db.Close() }

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		applog.WithComponent("backend").Warn("rows close", slog.Any("err", err))
	}
}

// applyMigrations applies the embedded migrations of dialect d in filename order
// and records each applied version in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB, d dialect) error {
	dir := path.Join("migrations", string(d))
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	insert := `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`
	if d == dialectSQLite {
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`
		insert = `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	logger := applog.WithComponent("backend")
	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join(dir, fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		logger.Info("applying migration", slog.String("file", fname), slog.String("dialect", string(d)))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, insert, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int64]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("select schema_migrations: %w", err)
	}
	defer closeRows(rows)
	applied := map[int64]bool{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func parseVersion(name string) (int64, error) {
	prefix, _, _ := strings.Cut(path.Base(name), "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
