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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"floorplanner/internal/domain"
	applog "floorplanner/internal/log"
)

const (
	draftPrefix    = "floorplan_"
	draftExt       = ".json"
	BackupsDirName = "backups"
	// DefaultKeepBackups bounds the timestamped backups kept per draft.
	DefaultKeepBackups = 5
)

// FileStore keeps one JSON file per owner in a directory. Writes are transactional
// (temp file + rename) and the previous draft is copied to a timestamped backup first.
// A corrupt draft is recovered from its latest readable backup.
type FileStore struct {
	Dir         string
	KeepBackups int
}

// NewFileStore creates dir (and its backups folder) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("draft dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &FileStore{Dir: dir, KeepBackups: DefaultKeepBackups}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, draftPrefix+key+draftExt)
}

// Save writes the draft with transactional semantics.
func (s *FileStore) Save(ctx context.Context, key string, d domain.Draft) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "draft_save").With(slog.String("key", key))
	data, err := EncodeDraft(d)
	if err != nil {
		return err
	}
	target := s.path(key)

	// If a current draft exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000")
		bpath := filepath.Join(s.Dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(target), stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			l.Error("backup failed", slog.Any("err", cerr))
			return fmt.Errorf("backup current draft: %w", cerr)
		}
		s.pruneBackups(filepath.Base(target))
	}

	// Transactional write: to temp file in same directory, then rename over target
	temp := filepath.Join(s.Dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp draft: %w", werr)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		// On Windows, replace by removing destination first
		_ = os.Remove(target)
		if rerr = os.Rename(temp, target); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace draft: %w", rerr)
		}
	}
	l.Debug("draft saved", slog.Int("items", len(d.Items)))
	return nil
}

// Load reads the draft for key. A missing file yields ErrNoDraft; a corrupt file
// falls back to the latest valid backup before failing with ErrCorruptDraft.
func (s *FileStore) Load(ctx context.Context, key string) (domain.Draft, error) {
	if err := validKey(key); err != nil {
		return domain.Draft{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Draft{}, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Draft{}, ErrNoDraft
	}
	if err != nil {
		return domain.Draft{}, fmt.Errorf("read draft: %w", err)
	}
	d, derr := DecodeDraft(b)
	if derr == nil {
		return d, nil
	}
	bd, berr := s.latestBackup(filepath.Base(s.path(key)))
	if berr != nil {
		return domain.Draft{}, fmt.Errorf("%w; backup attempt: %v", derr, berr)
	}
	applog.WithOperation(applog.WithComponent("storage"), "draft_load").Warn("draft corrupt, recovered from backup",
		slog.String("key", key), slog.Any("err", derr))
	return bd, nil
}

// Delete removes the draft file. Backups are kept.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Keys lists the owners that have a draft, sorted.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read draft dir: %w", err)
	}
	var keys []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, draftPrefix) || !strings.HasSuffix(name, draftExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, draftPrefix), draftExt))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) backups(base string) []string {
	ents, err := os.ReadDir(filepath.Join(s.Dir, BackupsDirName))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(s.Dir, BackupsDirName, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

// latestBackup returns the newest backup that still decodes.
func (s *FileStore) latestBackup(base string) (domain.Draft, error) {
	cands := s.backups(base)
	if len(cands) == 0 {
		return domain.Draft{}, errors.New("no backups found")
	}
	for i := len(cands) - 1; i >= 0; i-- {
		b, err := os.ReadFile(cands[i])
		if err != nil {
			continue
		}
		if d, err := DecodeDraft(b); err == nil {
			return d, nil
		}
	}
	return domain.Draft{}, errors.New("no readable backup")
}

func (s *FileStore) pruneBackups(base string) {
	keep := s.KeepBackups
	if keep <= 0 {
		return
	}
	cands := s.backups(base)
	for i := 0; i < len(cands)-keep; i++ {
		_ = os.Remove(cands[i])
	}
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
