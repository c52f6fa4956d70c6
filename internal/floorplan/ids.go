/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package floorplan

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator produces item ids unique within a session.
type IDGenerator interface {
	NewID() string
}

// CounterIDs is a monotonic per-instance generator: prefix-1, prefix-2, ...
type CounterIDs struct {
	prefix string
	n      uint64
}

func NewCounterIDs(prefix string) *CounterIDs { return &CounterIDs{prefix: prefix} }

func (c *CounterIDs) NewID() string {
	c.n++
	return c.prefix + "-" + strconv.FormatUint(c.n, 10)
}

// Skip advances the counter past ids already in use, so loaded drafts keep unique ids.
func (c *CounterIDs) Skip(n uint64) {
	if n > c.n {
		c.n = n
	}
}

// UUIDIDs generates random version-4 UUIDs.
type UUIDIDs struct{}

func (UUIDIDs) NewID() string { return uuid.NewString() }
