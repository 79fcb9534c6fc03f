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

// Package session holds the transports that push files to a guard endpoint.
package session

import (
	"context"
	"path"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrNotConnected = errors.Base("session is not connected")
	ErrNotDirectory = errors.Base("remote path is not a directory")
)

// Session is a connection to the guard. Remote paths use forward slashes.
type Session interface {
	// Open connects and sets the current directory to the login directory
	Open(ctx context.Context) error
	// IsConnected reports whether Open succeeded and Close has not run
	IsConnected() bool
	// ChangeDir moves the current directory, relative paths resolve against it
	ChangeDir(ctx context.Context, dir string) error
	// CurrentDir returns the absolute current remote directory
	CurrentDir() string
	// PutFile uploads the local file to the remote path
	PutFile(ctx context.Context, local, remote string) error
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Factory builds an unopened session from credentials
type Factory func(ctx context.Context, creds *Credentials) (Session, error)

var registry = map[string]Factory{}

// Register makes a session type available to New
func Register(name string, f Factory) {
	registry[name] = f
}

// New builds an unopened session of the named type
func New(ctx context.Context, name string, creds *Credentials) (Session, error) {
	f, ok := registry[name]
	if !ok {
		options := []string{}
		for k := range registry {
			options = append(options, k)
		}
		sort.Strings(options)
		return nil, errors.Errorf("session type %s not found, options: %s", name, strings.Join(options, ", "))
	}
	return f(ctx, creds)
}

// resolve joins dir onto cwd the way a remote shell would
func resolve(cwd, dir string) string {
	if path.IsAbs(dir) {
		return path.Clean(dir)
	}
	if cwd == "" {
		cwd = "/"
	}
	return path.Join(cwd, dir)
}
