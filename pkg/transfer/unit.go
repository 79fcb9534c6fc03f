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

// Package transfer pushes files from the review directory to the guard and
// keeps the run's job log.
package transfer

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/fsutil"
	"github.com/walteh/guardxfer/pkg/ledger"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/session"
)

// Recorder receives one record per put attempt
type Recorder interface {
	RecordTransfer(rec *ledger.TransferRecord) error
}

// 📤 Request is one outbound file
type Request struct {
	Path   string      // local file
	Keep   bool        // archive to the complete dir instead of deleting
	JobLog *log.JobLog // optional, receives the basename on success
}

// 🚚 Unit transfers single files over an open session
type Unit struct {
	Session     session.Session
	RemoteDir   string // the session's cwd must contain this
	CompleteDir string

	// Ledger and RunID are optional
	Ledger Recorder
	RunID  string

	now    func() time.Time
	remove func(path string) error
}

// 🏭 NewUnit creates a transfer unit
func NewUnit(s session.Session, remoteDir, completeDir string) *Unit {
	return &Unit{
		Session:     s,
		RemoteDir:   remoteDir,
		CompleteDir: completeDir,
		now:         time.Now,
		remove:      fsutil.RemoveFile,
	}
}

// WithLedger records every put attempt under runID
func (u *Unit) WithLedger(r Recorder, runID string) *Unit {
	u.Ledger = r
	u.RunID = runID
	return u
}

// 📤 Transfer puts one file on the guard and disposes of the local copy. It
// returns true only when the put succeeded. Nothing is sent when the file is
// missing, the session is down, or the session is in the wrong directory.
func (u *Unit) Transfer(ctx context.Context, req Request) bool {
	name := filepath.Base(req.Path)
	logger := zerolog.Ctx(ctx).With().Str("file", req.Path).Logger()
	items := log.FromContext(ctx)

	if _, err := fsutil.CheckFile(req.Path); err != nil {
		logger.Warn().Err(err).Msg("file not found")
		items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionFailed, Detail: "file not found"})
		return false
	}

	if !u.Session.IsConnected() {
		logger.Warn().Msg("session is not connected")
		items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionFailed, Detail: "not connected"})
		return false
	}

	cwd := u.Session.CurrentDir()
	if !strings.Contains(cwd, u.RemoteDir) {
		logger.Error().Str("dest_path", u.RemoteDir).Str("current_path", cwd).Msg("directory paths do not match")
		items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionFailed, Detail: "wrong remote dir"})
		return false
	}

	remote := path.Join(cwd, name)
	logger.Info().Str("to", remote).Msg("transfer")

	rec := &ledger.TransferRecord{RunID: u.RunID, Name: name, Source: req.Path, Remote: remote}
	if info, err := os.Stat(req.Path); err == nil {
		rec.Size = info.Size()
	}

	if err := u.Session.PutFile(ctx, req.Path, remote); err != nil {
		logger.Error().Err(err).Msg("put failed")
		items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionFailed, Detail: "put"})
		rec.Error = err.Error()
		u.record(ctx, rec)
		return false
	}

	logger.Info().Msg("transferred")
	items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionTransferred, Detail: remote})
	if req.JobLog != nil {
		req.JobLog.Record(name)
	}

	rec.OK = true
	rec.Disposition = u.dispose(ctx, req)
	u.record(ctx, rec)
	return true
}

// dispose archives or deletes the local copy once. A failure leaves the file
// in place.
func (u *Unit) dispose(ctx context.Context, req Request) ledger.Disposition {
	logger := zerolog.Ctx(ctx).With().Str("file", req.Path).Logger()
	items := log.FromContext(ctx)
	name := filepath.Base(req.Path)

	if req.Keep {
		dst, err := fsutil.MoveFile(req.Path, u.CompleteDir, "")
		if err != nil {
			logger.Warn().Err(err).Msg("moving to complete")
			return ledger.DispositionKept
		}
		logger.Info().Str("to", dst).Msg("moved to complete")
		items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionArchived, Detail: u.CompleteDir})
		return ledger.DispositionArchived
	}

	remove := u.remove
	if remove == nil {
		remove = fsutil.RemoveFile
	}
	if err := remove(req.Path); err != nil {
		logger.Warn().Err(err).Msg("deleting")
		return ledger.DispositionKept
	}
	logger.Info().Msg("deleted")
	items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionDeleted})
	return ledger.DispositionDeleted
}

func (u *Unit) record(ctx context.Context, rec *ledger.TransferRecord) {
	if u.Ledger == nil {
		return
	}
	now := u.now
	if now == nil {
		now = time.Now
	}
	rec.At = now().UTC()
	if err := u.Ledger.RecordTransfer(rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", rec.Name).Msg("recording transfer in ledger")
	}
}
