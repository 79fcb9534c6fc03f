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

package config

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/walteh/guardxfer/pkg/fsutil"
	"gitlab.com/tozd/go/errors"
)

// 🌐 Network identifies a guard destination
type Network string

const (
	NetworkSIPR  Network = "SIPR"
	NetworkCW    Network = "CW"
	NetworkBICES Network = "BICES"
)

// 🔍 ParseNetwork maps a configured name onto a known network
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToUpper(strings.TrimSpace(s))); n {
	case NetworkSIPR, NetworkCW, NetworkBICES:
		return n, nil
	default:
		return "", errors.Errorf("unknown network %q (want SIPR, CW or BICES)", s)
	}
}

// 🧮 SweepsHashFiles reports whether stray *.md5.txt files are swept to the
// guard around the ad-hoc pass
func (n Network) SweepsHashFiles() bool {
	return n == NetworkSIPR || n == NetworkCW
}

// 🧾 SendsJobLog reports whether the job log is itself transferred at the end
// of a batch; otherwise it is deleted locally
func (n Network) SendsJobLog() bool {
	return n != NetworkBICES
}

// 🎬 Action is the pipeline a run executes
type Action string

const (
	ActionMoveApproved Action = "moveapproved"
	ActionProcess      Action = "process"
	ActionSend         Action = "send"
)

// 🔍 ParseAction maps a CLI word onto an Action
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionMoveApproved, ActionProcess, ActionSend:
		return a, nil
	default:
		return "", errors.Errorf("unknown action %q", s)
	}
}

// NeedsSession reports whether the action talks to the guard
func (a Action) NeedsSession() bool {
	return a != ActionMoveApproved
}

// 🗂️ RunContext is everything one run needs, resolved from Config for a
// single (network, action) pair. All directories end in exactly one path
// separator. Only OtherFiles may be replaced after construction.
type RunContext struct {
	Network Network
	Action  Action

	DissemDir      string
	TransferDir    string
	LogDir         string
	ReviewDir      string
	CompleteDir    string
	RemoteDir      string
	JobLogPath     string
	ProgramLogPath string
	LedgerPath     string

	Backup          bool
	FreeformPattern string

	CandidatePattern       string
	ProductLines           []string
	DissemLevels           []string
	PresentationExtensions []string

	FileTypes  []FileType
	OtherFiles []OtherFileArgs
}

// 🏭 NewRunContext resolves the run settings and checks every directory the run
// touches. All directory problems are returned together.
func NewRunContext(cfg *Config, network Network, action Action) (*RunContext, error) {
	args, ok := cfg.Networks[string(network)]
	if !ok || args == nil {
		return nil, errors.Errorf("network %s is not configured", network)
	}

	rc := &RunContext{
		Network:                network,
		Action:                 action,
		DissemDir:              cfg.absDir(cfg.DissemDir),
		TransferDir:            cfg.absDir(cfg.TransferDir),
		LogDir:                 cfg.absDir(cfg.LogDir),
		RemoteDir:              args.RemoteDir,
		FreeformPattern:        cfg.FreeformPattern,
		CandidatePattern:       cfg.Packaging.CandidatePattern,
		ProductLines:           cfg.Packaging.ProductLines,
		DissemLevels:           cfg.Packaging.DissemLevels,
		PresentationExtensions: cfg.Packaging.PresentationExtensions,
		FileTypes:              args.FileTypes,
		OtherFiles:             args.OtherFiles,
	}
	if cfg.Backup != nil {
		rc.Backup = *cfg.Backup
	}

	netDir := filepath.Join(rc.TransferDir, string(network))
	rc.ReviewDir = orDefault(cfg.absDir(args.ReviewDir), filepath.Join(netDir, "reviewed"))
	rc.CompleteDir = orDefault(cfg.absDir(args.CompleteDir), filepath.Join(netDir, "complete"))
	rc.JobLogPath = orDefault(cfg.absDir(args.JobLog), filepath.Join(rc.LogDir, string(network), "LastRun"))
	rc.ProgramLogPath = filepath.Join(rc.LogDir, "guardxfer-"+string(network)+".log")
	rc.LedgerPath = cfg.LedgerPath()

	var result *multierror.Error
	check := func(name string, dir *string) {
		if _, err := fsutil.CheckDir(*dir); err != nil {
			result = multierror.Append(result, errors.Errorf("%s: %w", name, err))
			return
		}
		*dir = fsutil.WithTrailingSep(*dir)
	}

	check("log_dir", &rc.LogDir)
	check("job log dir", dirOf(&rc.JobLogPath))
	switch action {
	case ActionMoveApproved:
		check("dissem_dir", &rc.DissemDir)
		check("review_dir", &rc.ReviewDir)
	default:
		check("transfer_dir", &rc.TransferDir)
		check("review_dir", &rc.ReviewDir)
		check("complete_dir", &rc.CompleteDir)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return rc, nil
}

// 📎 JobLogDir returns the directory holding the job log
func (rc *RunContext) JobLogDir() string {
	return fsutil.WithTrailingSep(filepath.Dir(rc.JobLogPath))
}

// 📝 SendJobLogPath returns the job log used by the send action, prefixed so
// it never collides with a concurrent process run
func (rc *RunContext) SendJobLogPath() string {
	return filepath.Join(rc.JobLogDir(), "Send-"+filepath.Base(rc.JobLogPath))
}

func orDefault(v, def string) string {
	if v == "" || v == "." {
		return def
	}
	return v
}

// dirOf returns a pointer to a scratch copy of the directory part of path so
// it can go through the same check as the other dirs
func dirOf(path *string) *string {
	d := filepath.Dir(*path)
	return &d
}
