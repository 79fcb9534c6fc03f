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

package session

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register("local", func(ctx context.Context, creds *Credentials) (Session, error) {
		if creds.Root == "" {
			return nil, errors.New("local session requires root")
		}
		return NewLocal(creds.Root), nil
	})
}

var _ Session = (*Local)(nil)

// 📁 Local delivers into a directory tree, typically a mounted guard drop.
// Remote paths are rooted at Root.
type Local struct {
	root      string
	cwd       string
	connected bool
}

// NewLocal creates an unopened session rooted at root
func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) host(remote string) string {
	return filepath.Join(l.root, filepath.FromSlash(resolve(l.cwd, remote)))
}

// Open checks the root is a directory
func (l *Local) Open(ctx context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return errors.Errorf("opening local session: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("opening local session %s: %w", l.root, ErrNotDirectory)
	}
	l.cwd = "/"
	l.connected = true
	zerolog.Ctx(ctx).Debug().Str("root", l.root).Msg("local session open")
	return nil
}

func (l *Local) IsConnected() bool { return l.connected }

func (l *Local) CurrentDir() string { return l.cwd }

// ChangeDir moves into an existing directory under the root
func (l *Local) ChangeDir(ctx context.Context, dir string) error {
	if !l.connected {
		return ErrNotConnected
	}
	target := resolve(l.cwd, dir)
	info, err := os.Stat(l.host(target))
	if err != nil {
		return errors.Errorf("changing to %s: %w", target, err)
	}
	if !info.IsDir() {
		return errors.Errorf("changing to %s: %w", target, ErrNotDirectory)
	}
	l.cwd = target
	return nil
}

// PutFile copies local to remote through a temp file so a reader on the guard
// side never sees a partial file
func (l *Local) PutFile(ctx context.Context, local, remote string) (err error) {
	if !l.connected {
		return ErrNotConnected
	}

	in, err := os.Open(local)
	if err != nil {
		return errors.Errorf("opening %s: %w", local, err)
	}
	defer in.Close()

	dst := l.host(remote)
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return errors.Errorf("creating temp file for %s: %w", remote, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return errors.Errorf("writing %s: %w", remote, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Errorf("closing %s: %w", remote, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return errors.Errorf("renaming into %s: %w", remote, err)
	}
	return nil
}

func (l *Local) Close() error {
	l.connected = false
	return nil
}
