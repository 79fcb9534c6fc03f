// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lock keeps two invocations from running the same pipeline for the
// same network at once.
package lock

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"
)

// ErrLocked is returned when another process holds the lock
var ErrLocked = errors.Base("another run holds the lock")

// 🔒 Handle is a held process lock. The zero value is not held.
type Handle struct {
	fl *flock.Flock
}

// Path returns the lock file path
func (h *Handle) Path() string {
	if h == nil || h.fl == nil {
		return ""
	}
	return h.fl.Path()
}

// Held reports whether the lock is still held by this process
func (h *Handle) Held() bool {
	return h != nil && h.fl != nil && h.fl.Locked()
}

// Release drops the lock. Safe to call on a nil or released handle.
func (h *Handle) Release() error {
	if !h.Held() {
		return nil
	}
	if err := h.fl.Unlock(); err != nil {
		return errors.Errorf("releasing %s: %w", h.fl.Path(), err)
	}
	return nil
}

// FileName returns the lock file name for an (action, network) pair
func FileName(action, network string) string {
	return "guardxfer-" + strings.ToLower(action) + "-" + strings.ToLower(network) + ".lock"
}

// Acquire takes the non-blocking lock for (action, network) in dir. It returns
// ErrLocked when another process already holds it.
func Acquire(dir, action, network string) (*Handle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("creating lock dir: %w", err)
	}

	fl := flock.New(filepath.Join(dir, FileName(action, network)))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, errors.Errorf("%s: %w", fl.Path(), ErrLocked)
	}
	return &Handle{fl: fl}, nil
}
