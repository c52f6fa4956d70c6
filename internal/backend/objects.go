/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for object paths that escape the store root.
var ErrInvalidPath = errors.New("invalid object path")

// ObjectStore keeps uploaded blobs under a root directory, addressed by
// slash-separated paths such as "floorplans/<owner>/<recipient>/floorplan.png".
type ObjectStore struct {
	Root string
}

func NewObjectStore(root string) (*ObjectStore, error) {
	if root == "" {
		return nil, errors.New("object store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &ObjectStore{Root: root}, nil
}

// resolve maps an object path onto the filesystem, rejecting absolute paths,
// empty segments and any ".." component.
func (s *ObjectStore) resolve(p string) (string, string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return "", "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", "", ErrInvalidPath
		}
	}
	clean := path.Clean(p)
	return clean, filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

// Put writes data atomically (temp file + rename) and returns the cleaned path.
func (s *ObjectStore) Put(p string, data []byte) (string, error) {
	clean, full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename: %w", err)
	}
	return clean, nil
}

// Get returns the stored bytes and a content type derived from the extension.
func (s *ObjectStore) Get(p string) ([]byte, string, error) {
	_, full, err := s.resolve(p)
	if err != nil {
		return nil, "", err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return b, contentTypeFor(full), nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
