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
	"fmt"
	"path/filepath"

	"floorplanner/internal/domain"
)

// DraftStore persists drafts keyed by owner id. Last write wins.
type DraftStore interface {
	Save(ctx context.Context, key string, d domain.Draft) error
	// Load returns ErrNoDraft when nothing is stored under key.
	Load(ctx context.Context, key string) (domain.Draft, error)
	// Delete removes the draft; deleting a missing draft is not an error.
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the draft store for driver rooted at dir.
func Open(driver, dir string) (DraftStore, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(dir)
	case DriverSQLite:
		return OpenSQLiteStore(filepath.Join(dir, SQLiteFileName))
	default:
		return nil, fmt.Errorf("unknown draft driver %q", driver)
	}
}
