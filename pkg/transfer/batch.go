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

package transfer

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/fsutil"
	"github.com/walteh/guardxfer/pkg/log"
)

const hashSweepPattern = "*" + fsutil.HashSuffix

// 🗃️ Batch runs the process and send pipelines for one network
type Batch struct {
	rc      *config.RunContext
	unit    *Unit
	job     *log.JobLog
	jobOpts []log.JobLogOption

	otherFiles []OtherFile
	resolved   bool
}

// BatchOption configures a Batch
type BatchOption func(*Batch)

// WithJobLogOptions is passed through to every job log the batch opens
func WithJobLogOptions(opts ...log.JobLogOption) BatchOption {
	return func(b *Batch) { b.jobOpts = append(b.jobOpts, opts...) }
}

// 🏭 NewBatch creates a batch that transfers through unit
func NewBatch(rc *config.RunContext, unit *Unit, opts ...BatchOption) *Batch {
	b := &Batch{rc: rc, unit: unit}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// 📎 OtherFiles returns the ad-hoc table, resolving it on first use
func (b *Batch) OtherFiles(ctx context.Context) []OtherFile {
	if b.resolved {
		return b.otherFiles
	}
	var freeform *regexp.Regexp
	if b.rc.FreeformPattern != "" {
		re, err := regexp.Compile(b.rc.FreeformPattern)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("pattern", b.rc.FreeformPattern).Msg("freeform pattern ignored")
		} else {
			freeform = re
		}
	}
	b.otherFiles = ResolveOtherFiles(b.rc.OtherFiles, freeform)
	b.resolved = true
	return b.otherFiles
}

// 📂 ProcessFiles transfers every review dir file matching filter and returns
// how many were transferred. base64 replaces each file with its encoded
// sibling and always archives the original. md5 writes a digest file next to
// whatever is transferred.
func (b *Batch) ProcessFiles(ctx context.Context, filter string, keep, md5, base64 bool) int {
	logger := zerolog.Ctx(ctx).With().Str("filter", filter).Logger()

	files, err := fsutil.ListFiltered(b.rc.ReviewDir, filter)
	if err != nil {
		logger.Error().Err(err).Msg("listing review dir")
		return 0
	}

	logger.Info().Int("count", len(files)).Msg("pre-count")

	sent := 0
	for _, f := range files {
		p := f.Path
		logger.Debug().Str("file", p).Msg("processing")

		if base64 {
			encoded := fsutil.Base64Name(p)
			if err := fsutil.EncodeBase64(p, encoded); err != nil {
				logger.Error().Err(err).Str("file", p).Msg("base64 convert")
				continue
			}
			logger.Info().Str("file", p).Str("to", encoded).Msg("base64 convert")
			if _, err := fsutil.MoveFile(p, b.rc.CompleteDir, ""); err != nil {
				logger.Warn().Err(err).Str("file", p).Msg("moving original to complete")
			}
			p = encoded
		}

		if md5 {
			hashPath, err := fsutil.MakeMD5(p)
			if err != nil {
				logger.Warn().Err(err).Str("file", p).Msg("making hash")
			} else {
				logger.Info().Str("hash", hashPath).Msg("made hash")
			}
		}

		if !b.unit.Transfer(ctx, Request{Path: p, Keep: keep, JobLog: b.job}) {
			logger.Error().Str("file", p).Msg("failed to transfer")
			continue
		}
		sent++
	}

	logger.Info().Int("count", sent).Msg("post-count")
	if sent != len(files) {
		logger.Warn().Int("pre", len(files)).Int("post", sent).Msg("counts do not match")
	}
	return sent
}

// sweepHashes sends stray digest files for the networks that take them
func (b *Batch) sweepHashes(ctx context.Context) {
	if !b.rc.Network.SweepsHashFiles() {
		return
	}
	b.ProcessFiles(ctx, hashSweepPattern, false, false, false)
}

// 🌐 RunNetworkBatch sends every configured filter and ad-hoc entry, then the
// job log itself. It returns the number of files transferred, not counting
// swept digest files or the job log.
func (b *Batch) RunNetworkBatch(ctx context.Context) int {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("network", string(b.rc.Network)).Str("review_dir", b.rc.ReviewDir).Msg("process start")

	job, err := log.OpenJobLog(b.rc.JobLogPath, b.jobOpts...)
	if err != nil {
		logger.Error().Err(err).Msg("opening job log")
		return 0
	}
	b.job = job
	defer func() { b.job = nil }()

	total := 0
	for _, ft := range b.rc.FileTypes {
		total += b.ProcessFiles(ctx, ft.Pattern, b.rc.Backup, ft.MD5, ft.Base64)
	}

	// digest files are swept on both sides of the ad-hoc pass: the filters
	// above and the entries below can each produce them
	b.sweepHashes(ctx)

	for _, of := range b.OtherFiles(ctx) {
		switch of.Kind {
		case ExactPath:
			if of.MD5 {
				if hashPath, err := fsutil.MakeMD5(of.Key); err != nil {
					logger.Warn().Err(err).Str("file", of.Key).Msg("making hash")
				} else {
					logger.Info().Str("hash", hashPath).Msg("made hash")
				}
			}
			if b.unit.Transfer(ctx, Request{Path: of.Key, Keep: of.Keep, JobLog: job}) {
				total++
			} else {
				logger.Error().Str("file", of.Key).Msg("failed to transfer")
			}
		default:
			n := b.ProcessFiles(ctx, of.Key, of.Keep, of.MD5, false)
			logger.Info().Str("other_file", of.Key).Stringer("kind", of.Kind).Int("count", n).Msg("other files")
			total += n
		}
	}

	b.sweepHashes(ctx)

	if total == 0 {
		job.RecordNone()
	}
	if err := job.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing job log")
	}

	logger.Info().Int("count", total).Int("job_log_lines", job.Lines()).Msg("processed file count")

	if b.rc.Network.SendsJobLog() {
		if !b.unit.Transfer(ctx, Request{Path: job.Path(), Keep: false}) {
			logger.Error().Str("file", job.Path()).Msg("failed to transfer job log")
		}
	} else if err := fsutil.RemoveFile(job.Path()); err != nil {
		logger.Warn().Err(err).Msg("removing job log")
	}

	logger.Info().Str("review_dir", b.rc.ReviewDir).Int("count", total).Msg("process end")
	return total
}

// 🐛 Send transfers an explicit list of files with their own job log, then
// archives or deletes that job log according to keep. It returns the number
// transferred.
func (b *Batch) Send(ctx context.Context, files []string, keep bool) int {
	logger := zerolog.Ctx(ctx)

	job, err := log.OpenJobLog(b.rc.SendJobLogPath(), b.jobOpts...)
	if err != nil {
		logger.Error().Err(err).Msg("opening send job log")
		return 0
	}

	sent := 0
	for _, f := range files {
		logger.Info().Str("file", f).Str("remote_dir", b.rc.RemoteDir).Msg("send")
		if b.unit.Transfer(ctx, Request{Path: f, Keep: keep, JobLog: job}) {
			sent++
		} else {
			logger.Error().Str("file", f).Msg("failed to transfer")
		}
	}

	if err := job.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing send job log")
	}

	if keep {
		if _, err := fsutil.MoveFile(job.Path(), b.rc.CompleteDir, ""); err != nil {
			logger.Warn().Err(err).Msg("archiving send job log")
		}
	} else if err := fsutil.RemoveFile(job.Path()); err != nil {
		logger.Warn().Err(err).Msg("removing send job log")
	}
	return sent
}
