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

package operation

import (
	"path/filepath"

	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/ledger"
	"github.com/walteh/guardxfer/pkg/lock"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// 🚦 State is a step of the run state machine
type State int

const (
	StateIdle State = iota
	StateSessionSetup
	StatePackaging
	StateBatchTransfer
	StateDebugSend
	StateSessionTeardown
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSessionSetup:
		return "session setup"
	case StatePackaging:
		return "packaging"
	case StateBatchTransfer:
		return "batch transfer"
	case StateDebugSend:
		return "debug send"
	case StateSessionTeardown:
		return "session teardown"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// 🔧 Options contains everything the runner owns for one run
type Options struct {
	// RunContext is the resolved run configuration
	RunContext *config.RunContext
	// Lock must be held for the run's (action, network) pair
	Lock *lock.Handle
	// Session is required for every action except moveapproved
	Session session.Session
	// ProgramLog is closed at teardown when set
	ProgramLog *log.ProgramLog
	// Ledger records runs and puts when set, closed at teardown
	Ledger ledger.Store
	// Files and Keep drive the send action
	Files []string
	Keep  bool
	// JobLogOptions are passed to every job log the run opens
	JobLogOptions []log.JobLogOption
}

// 🏭 New checks the options and creates a runner
func New(opts Options) (*Runner, error) {
	if opts.RunContext == nil {
		return nil, errors.New("run context is required")
	}
	if !opts.Lock.Held() {
		return nil, errors.Errorf("lock for %s %s is not held", opts.RunContext.Action, opts.RunContext.Network)
	}
	if want := lock.FileName(string(opts.RunContext.Action), string(opts.RunContext.Network)); filepath.Base(opts.Lock.Path()) != want {
		return nil, errors.Errorf("lock %s does not match %s", opts.Lock.Path(), want)
	}
	if opts.RunContext.Action.NeedsSession() && opts.Session == nil {
		return nil, errors.Errorf("session is required for %s", opts.RunContext.Action)
	}
	return &Runner{opts: opts, rc: opts.RunContext}, nil
}
