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

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/walteh/guardxfer/cmd/guardxfer/opts"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/ledger"
	"github.com/walteh/guardxfer/pkg/lock"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/operation"
	"github.com/walteh/guardxfer/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// pipeline is one run request from a command
type pipeline struct {
	action config.Action
	files  []string
	keep   bool
}

// runPipeline does the startup checks, takes the lock, and hands everything
// to the runner. Only startup problems are returned; the run itself reports
// through the logs.
func runPipeline(ctx context.Context, o *opts.RootOpts, p pipeline) error {
	if o.Network == "" {
		return errors.New("network is required (-N SIPR|CW|BICES)")
	}
	network, err := config.ParseNetwork(o.Network)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	rc, err := config.NewRunContext(cfg, network, p.action)
	if err != nil {
		return errors.Errorf("checking directories: %w", err)
	}

	handle, err := lock.Acquire(rc.LogDir, string(p.action), string(network))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			o.UserLogger.LogLockOperation(false, "", err)
		}
		return err
	}
	defer func() {
		if err := handle.Release(); err != nil {
			o.UserLogger.LogValidation(false, "Failed to release lock", err)
			return
		}
		o.UserLogger.LogLockOperation(false, handle.Path(), nil)
	}()
	o.UserLogger.LogLockOperation(true, handle.Path(), nil)

	plog, err := log.OpenProgramLog(rc.ProgramLogPath, os.Stderr, o.Level())
	if err != nil {
		return err
	}
	plog.Logger.Debug().Str("config", cfg.Location()).Str("lock", handle.Path()).Msg("startup checks passed")
	ctx = plog.Logger.WithContext(ctx)
	ctx = log.NewContext(ctx, log.New(os.Stdout, plog.Logger))

	runOpts := operation.Options{
		RunContext: rc,
		Lock:       handle,
		ProgramLog: plog,
		Files:      p.files,
		Keep:       p.keep,
	}

	if p.action.NeedsSession() {
		runOpts.Session, err = newSession(ctx, cfg, o)
		if err != nil {
			plog.Close()
			return err
		}
	}

	if path := rc.LedgerPath; path != "" {
		store, err := ledger.NewBoltStore(path)
		if err != nil {
			o.UserLogger.LogValidation(false, "Ledger unavailable, running without it", nil)
			plog.Logger.Warn().Err(err).Str("ledger", path).Msg("ledger unavailable")
		} else {
			runOpts.Ledger = store
		}
	}

	runner, err := operation.New(runOpts)
	if err != nil {
		if runOpts.Ledger != nil {
			runOpts.Ledger.Close()
		}
		plog.Close()
		return err
	}

	if p.action == config.ActionSend {
		o.UserLogger.LogNote("send is for debugging purposes only")
	}

	runner.Run(ctx)
	o.UserLogger.LogStateChange(fmt.Sprintf("%s %s finished (%d) run %s", p.action, network, runner.Count(), runner.RunID()))
	return nil
}

// newSession builds the configured transport. It is opened by the runner.
func newSession(ctx context.Context, cfg *config.Config, o *opts.RootOpts) (session.Session, error) {
	path := o.SessionConfig
	if path == "" {
		path = cfg.SessionConfigPath()
	}

	creds, err := session.LoadCredentials(path)
	if err != nil {
		return nil, errors.Errorf("loading session credentials: %w", err)
	}

	s, err := session.New(ctx, cfg.Session.Type, creds)
	if err != nil {
		return nil, errors.Errorf("creating %s session: %w", cfg.Session.Type, err)
	}
	return s, nil
}
