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

// Package testutils holds fakes shared by package tests.
package testutils

import (
	"context"
	"os"
	"path"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// Put is one recorded upload
type Put struct {
	Local   string
	Remote  string
	Content []byte
}

// 🧪 FakeSession is an in-memory session.Session that records every upload.
type FakeSession struct {
	mu sync.Mutex

	// Connected is the state Open leaves the session in
	Connected bool
	// LoginDir is the directory after Open
	LoginDir string
	// Dirs are the remote directories ChangeDir accepts
	Dirs map[string]bool
	// OpenErr, ChangeDirErr and PutErr force failures
	OpenErr      error
	ChangeDirErr error
	PutErr       map[string]error

	open   bool
	cwd    string
	closed int
	puts   []Put
}

var _ session.Session = (*FakeSession)(nil)

// NewFakeSession returns a fake that connects and accepts the given dirs
func NewFakeSession(dirs ...string) *FakeSession {
	f := &FakeSession{
		Connected: true,
		LoginDir:  "/home/xfer",
		Dirs:      map[string]bool{},
		PutErr:    map[string]error{},
	}
	for _, d := range dirs {
		f.Dirs[path.Clean(d)] = true
	}
	return f
}

func (f *FakeSession) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return f.OpenErr
	}
	f.open = f.Connected
	f.cwd = f.LoginDir
	return nil
}

func (f *FakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *FakeSession) ChangeDir(ctx context.Context, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return session.ErrNotConnected
	}
	if f.ChangeDirErr != nil {
		return f.ChangeDirErr
	}
	target := path.Clean(dir)
	if !path.IsAbs(target) {
		target = path.Join(f.cwd, target)
	}
	if !f.Dirs[target] {
		return errors.Errorf("changing to %s: %w", target, session.ErrNotDirectory)
	}
	f.cwd = target
	return nil
}

func (f *FakeSession) CurrentDir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cwd
}

// SetCurrentDir forces the current directory, bypassing Dirs
func (f *FakeSession) SetCurrentDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cwd = dir
}

func (f *FakeSession) PutFile(ctx context.Context, local, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return session.ErrNotConnected
	}
	if err := f.PutErr[path.Base(remote)]; err != nil {
		return err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return errors.Errorf("reading %s: %w", local, err)
	}
	f.puts = append(f.puts, Put{Local: local, Remote: remote, Content: data})
	return nil
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed++
	return nil
}

// Puts returns the uploads so far, in order
func (f *FakeSession) Puts() []Put {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Put(nil), f.puts...)
}

// PutNames returns the base names of the uploads so far, in order
func (f *FakeSession) PutNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.puts))
	for _, p := range f.puts {
		names = append(names, path.Base(p.Remote))
	}
	return names
}

// Closed returns how many times Close ran
func (f *FakeSession) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Context returns a context carrying a zerolog logger that writes to the test
// output and a discarding item logger
func Context(t testing.TB) context.Context {
	t.Helper()
	zlog := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	ctx := zlog.WithContext(context.Background())
	return log.NewContext(ctx, log.Nop())
}
