/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements local draft persistence for floor plans.
// A draft is the JSON document {template, items, backgroundImage} keyed by the owning
// entity's id. Two stores exist: a directory of JSON files with transactional writes and
// timestamped backups, and an embedded SQLite database. Both validate drafts against an
// embedded JSON schema on load and default fields missing from older drafts.
package storage
