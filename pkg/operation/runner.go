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
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/ledger"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/packager"
	"github.com/walteh/guardxfer/pkg/transfer"
)

// 🏃 Runner executes one pipeline
type Runner struct {
	opts Options
	rc   *config.RunContext

	runID   string
	state   State
	history []State
	count   int
	opened  bool
	now     func() time.Time
}

// RunID returns the id of the last run, empty before Run
func (r *Runner) RunID() string { return r.runID }

// Count returns how many items the last run processed: candidates seen for
// moveapproved, files transferred otherwise
func (r *Runner) Count() int { return r.count }

// History returns every state the last run passed through
func (r *Runner) History() []State { return append([]State(nil), r.history...) }

func (r *Runner) enter(ctx context.Context, s State) {
	r.state = s
	r.history = append(r.history, s)
	zerolog.Ctx(ctx).Debug().Stringer("state", s).Msg("run state")
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// 🏃 Run executes the run context's action and always finishes in StateDone.
// Failures are logged, not returned.
func (r *Runner) Run(ctx context.Context) State {
	mode := r.rc.Action
	r.history = nil
	r.count = 0
	r.opened = false
	r.runID = ledger.NewRunID()

	logger := zerolog.Ctx(ctx).With().Str("run_id", r.runID).Logger()
	ctx = logger.WithContext(ctx)

	r.enter(ctx, StateIdle)
	r.header(ctx, mode)
	r.startLedger(ctx, mode)

	log.FromContext(ctx).StartRun(ctx, log.RunOperation{
		Network: string(r.rc.Network),
		Mode:    string(mode),
		RunID:   r.runID,
	})

	if r.setup(ctx, mode) {
		r.execute(ctx, mode)
	}

	r.teardown(ctx)
	return r.state
}

func (r *Runner) header(ctx context.Context, mode config.Action) {
	zerolog.Ctx(ctx).Info().
		Str("action", string(mode)).
		Str("network", string(r.rc.Network)).
		Str("transfer_dir", r.rc.TransferDir).
		Str("review_dir", r.rc.ReviewDir).
		Str("complete_dir", r.rc.CompleteDir).
		Str("job_log", r.rc.JobLogPath).
		Msg("guardxfer initialized")
	log.FromContext(ctx).Header(fmt.Sprintf("%s %s initialized", mode, r.rc.Network))
}

// setup opens the session and moves it to the remote dir. It reports whether
// the pipeline may run.
func (r *Runner) setup(ctx context.Context, mode config.Action) bool {
	if !mode.NeedsSession() {
		return true
	}
	r.enter(ctx, StateSessionSetup)
	logger := zerolog.Ctx(ctx)
	items := log.FromContext(ctx)
	s := r.opts.Session

	if err := s.Open(ctx); err != nil || !s.IsConnected() {
		logger.Error().Err(err).Msg("session open connection failed")
		items.Error("session failed to open")
		return false
	}
	r.opened = true
	logger.Info().Msg("session connection created")

	if err := s.ChangeDir(ctx, r.rc.RemoteDir); err != nil {
		logger.Error().Err(err).Str("remote_dir", r.rc.RemoteDir).Msg("session change directory failed")
		items.Errorf("cannot change to %s", r.rc.RemoteDir)
		return false
	}
	logger.Info().Str("cwd", s.CurrentDir()).Msg("session destination set")
	items.Infof("sending to %s", s.CurrentDir())
	return true
}

func (r *Runner) execute(ctx context.Context, mode config.Action) {
	logger := zerolog.Ctx(ctx)

	switch mode {
	case config.ActionMoveApproved:
		r.enter(ctx, StatePackaging)
		n, err := packager.New(r.rc).Scan(ctx)
		if err != nil {
			logger.Error().Err(err).Str("dir", r.rc.DissemDir).Msg("scanning dissem dir")
		}
		r.count = n

	case config.ActionProcess:
		r.enter(ctx, StateBatchTransfer)
		r.count = r.batch().RunNetworkBatch(ctx)

	case config.ActionSend:
		r.enter(ctx, StateDebugSend)
		logger.Warn().Msg("send is for debugging purposes only")
		if len(r.opts.Files) == 0 {
			logger.Error().Msg("send expects a file path or a list of file paths")
			log.FromContext(ctx).Error("no files to send")
			return
		}
		r.count = r.batch().Send(ctx, r.opts.Files, r.opts.Keep)

	default:
		logger.Error().Str("action", string(mode)).Msg("unknown action")
	}
}

func (r *Runner) batch() *transfer.Batch {
	unit := transfer.NewUnit(r.opts.Session, r.rc.RemoteDir, r.rc.CompleteDir)
	if r.opts.Ledger != nil {
		unit.WithLedger(r.opts.Ledger, r.runID)
	}
	return transfer.NewBatch(r.rc, unit, transfer.WithJobLogOptions(r.opts.JobLogOptions...))
}

func (r *Runner) startLedger(ctx context.Context, mode config.Action) {
	if r.opts.Ledger == nil {
		return
	}
	err := r.opts.Ledger.StartRun(&ledger.RunRecord{
		ID:      r.runID,
		Network: string(r.rc.Network),
		Action:  string(mode),
		Started: r.clock().UTC(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("recording run start")
	}
}

// teardown closes whatever the run opened. It runs on every path.
func (r *Runner) teardown(ctx context.Context) {
	r.enter(ctx, StateSessionTeardown)
	logger := zerolog.Ctx(ctx)

	if s := r.opts.Session; s != nil && r.opened && s.IsConnected() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing session")
		} else {
			logger.Info().Msg("session connection closed")
		}
	}

	if r.opts.Ledger != nil {
		if err := r.opts.Ledger.FinishRun(r.runID, r.count, r.clock().UTC()); err != nil {
			logger.Warn().Err(err).Msg("recording run finish")
		}
		if err := r.opts.Ledger.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing ledger")
		}
	}

	items := log.FromContext(ctx)
	counts := items.EndRun(ctx)
	logger.Info().Int("count", r.count).Interface("items", counts).Msg("run finished")
	items.Successf("%s %s finished: %d processed", r.rc.Action, r.rc.Network, r.count)

	r.enter(ctx, StateDone)

	// last, nothing may log through it afterwards
	if r.opts.ProgramLog != nil {
		if err := r.opts.ProgramLog.Close(); err != nil {
			items.Warningf("closing program log: %v", err)
		}
	}
}
