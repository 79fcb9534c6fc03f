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
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/fsutil"
	"github.com/walteh/guardxfer/pkg/ledger"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/testutils"
	"gitlab.com/tozd/go/errors"
)

const remoteDir = "/guard/in"

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

// 🔧 MockRecorder is a mock implementation of the Recorder interface
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordTransfer(rec *ledger.TransferRecord) error {
	return m.Called(rec).Error(0)
}

type env struct {
	ctx      context.Context
	rc       *config.RunContext
	session  *testutils.FakeSession
	unit     *Unit
	review   string
	complete string
}

func newEnv(t *testing.T, network config.Network) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		ctx:      testutils.Context(t),
		review:   filepath.Join(root, "review"),
		complete: filepath.Join(root, "complete"),
	}
	require.NoError(t, os.MkdirAll(e.review, 0o755))
	require.NoError(t, os.MkdirAll(e.complete, 0o755))

	e.rc = &config.RunContext{
		Network:         network,
		Action:          config.ActionProcess,
		ReviewDir:       fsutil.WithTrailingSep(e.review),
		CompleteDir:     fsutil.WithTrailingSep(e.complete),
		RemoteDir:       remoteDir,
		JobLogPath:      filepath.Join(root, "log", string(network), "LastRun"),
		Backup:          true,
		FreeformPattern: config.DefaultFreeformPattern,
	}

	e.session = testutils.NewFakeSession(remoteDir)
	require.NoError(t, e.session.Open(e.ctx))
	require.NoError(t, e.session.ChangeDir(e.ctx, remoteDir))

	e.unit = NewUnit(e.session, e.rc.RemoteDir, e.rc.CompleteDir)
	return e
}

func (e *env) batch() *Batch {
	return NewBatch(e.rc, e.unit, WithJobLogOptions(log.WithClock(func() time.Time { return fixedNow })))
}

func (e *env) write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(e.review, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func jobLine(name string) string {
	return "03-09-2024T14:05:07Z|" + name + "\n"
}

func lastPut(t *testing.T, s *testutils.FakeSession) testutils.Put {
	t.Helper()
	puts := s.Puts()
	require.NotEmpty(t, puts)
	return puts[len(puts)-1]
}

func TestTransfer(t *testing.T) {
	t.Run("delete_after_put", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")

		jobPath := filepath.Join(t.TempDir(), "job")
		job, err := log.OpenJobLog(jobPath, log.WithClock(func() time.Time { return fixedNow }))
		require.NoError(t, err)

		ok := e.unit.Transfer(e.ctx, Request{Path: p, JobLog: job})
		require.True(t, ok)
		require.NoError(t, job.Close())

		put := lastPut(t, e.session)
		assert.Equal(t, "/guard/in/a.zip", put.Remote)
		assert.Equal(t, "payload", string(put.Content))
		assert.NoFileExists(t, p)
		assert.Empty(t, dirNames(t, e.complete))

		data, err := os.ReadFile(jobPath)
		require.NoError(t, err)
		assert.Equal(t, jobLine("a.zip"), string(data))
	})

	t.Run("archive_after_put", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")

		require.True(t, e.unit.Transfer(e.ctx, Request{Path: p, Keep: true}))
		assert.NoFileExists(t, p)
		assert.Equal(t, []string{"a.zip"}, dirNames(t, e.complete))
	})

	t.Run("file_vanished", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		require.NoError(t, os.Remove(p))

		assert.False(t, e.unit.Transfer(e.ctx, Request{Path: p}))
		assert.Empty(t, e.session.Puts())
	})

	t.Run("not_connected", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		require.NoError(t, e.session.Close())

		assert.False(t, e.unit.Transfer(e.ctx, Request{Path: p}))
		assert.Empty(t, e.session.Puts())
		assert.FileExists(t, p)
	})

	t.Run("wrong_remote_dir", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		e.session.SetCurrentDir("/guard/out")

		assert.False(t, e.unit.Transfer(e.ctx, Request{Path: p}))
		assert.Empty(t, e.session.Puts(), "no put when the cwd does not contain the remote dir")
		assert.FileExists(t, p)
	})

	t.Run("cwd_contains_remote_dir", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		e.session.SetCurrentDir("/chroot/guard/in")

		assert.True(t, e.unit.Transfer(e.ctx, Request{Path: p}))
		assert.Equal(t, "/chroot/guard/in/a.zip", lastPut(t, e.session).Remote)
	})

	t.Run("put_error", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		e.session.PutErr["a.zip"] = errors.New("permission denied")

		assert.False(t, e.unit.Transfer(e.ctx, Request{Path: p, Keep: true}))
		assert.FileExists(t, p, "no disposition without a put")
		assert.Empty(t, dirNames(t, e.complete))
	})

	t.Run("failed_archive_still_succeeds", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		e.unit.CompleteDir = filepath.Join(t.TempDir(), "missing")

		assert.True(t, e.unit.Transfer(e.ctx, Request{Path: p, Keep: true}))
		assert.FileExists(t, p)
	})

	t.Run("failed_delete_still_succeeds", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		p := e.write(t, "a.zip", "payload")
		e.unit.remove = func(string) error { return errors.New("device busy") }

		rec := &MockRecorder{}
		rec.On("RecordTransfer", mock.MatchedBy(func(r *ledger.TransferRecord) bool {
			return r.OK && r.Disposition == ledger.DispositionKept
		})).Return(nil).Once()
		e.unit.WithLedger(rec, "run-1")

		assert.True(t, e.unit.Transfer(e.ctx, Request{Path: p}))
		assert.Equal(t, []string{"a.zip"}, e.session.PutNames())
		assert.FileExists(t, p, "the local copy stays when the delete fails")
		rec.AssertExpectations(t)
	})
}

func TestTransferLedger(t *testing.T) {
	e := newEnv(t, config.NetworkCW)
	ok := e.write(t, "a.zip", "payload")
	bad := e.write(t, "b.zip", "payload")
	e.session.PutErr["b.zip"] = errors.New("quota")

	rec := &MockRecorder{}
	rec.On("RecordTransfer", mock.MatchedBy(func(r *ledger.TransferRecord) bool {
		return r.Name == "a.zip" && r.OK && r.Disposition == ledger.DispositionArchived &&
			r.RunID == "run-1" && r.Size == 7 && r.Remote == "/guard/in/a.zip"
	})).Return(nil).Once()
	rec.On("RecordTransfer", mock.MatchedBy(func(r *ledger.TransferRecord) bool {
		return r.Name == "b.zip" && !r.OK && r.Error == "quota" && r.Disposition == ledger.DispositionNone
	})).Return(errors.New("ledger full")).Once()

	e.unit.WithLedger(rec, "run-1")

	assert.True(t, e.unit.Transfer(e.ctx, Request{Path: ok, Keep: true}))
	assert.False(t, e.unit.Transfer(e.ctx, Request{Path: bad}), "a ledger error does not change the result")

	missing := filepath.Join(e.review, "gone.zip")
	assert.False(t, e.unit.Transfer(e.ctx, Request{Path: missing}))

	rec.AssertExpectations(t)
	rec.AssertNumberOfCalls(t, "RecordTransfer", 2)
}

func TestProcessFiles(t *testing.T) {
	t.Run("hash_and_base64", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.write(t, "a.zip", "zipdata")

		n := e.batch().ProcessFiles(e.ctx, "*.zip", true, true, true)
		assert.Equal(t, 1, n)

		put := lastPut(t, e.session)
		assert.Equal(t, "/guard/in/a_zip.64.txt", put.Remote)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("zipdata"))+"\n", string(put.Content))

		assert.Equal(t, []string{"a.zip", "a_zip.64.txt"}, dirNames(t, e.complete), "original archived and encoded copy kept")
		assert.Equal(t, []string{"a_zip.64.txt.md5.txt"}, dirNames(t, e.review), "digest waits for the sweep")
	})

	t.Run("base64_archives_original_even_without_keep", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.write(t, "a.zip", "zipdata")

		assert.Equal(t, 1, e.batch().ProcessFiles(e.ctx, "*.zip", false, false, true))
		assert.Equal(t, []string{"a.zip"}, dirNames(t, e.complete))
		assert.Empty(t, dirNames(t, e.review))
	})

	t.Run("counts_only_successes", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.write(t, "a.zip", "1")
		e.write(t, "b.zip", "2")
		e.write(t, "c.zip", "3")
		e.write(t, "skip.pdf", "4")
		e.session.PutErr["b.zip"] = errors.New("denied")

		var logs bytes.Buffer
		ctx := zerolog.New(&logs).WithContext(e.ctx)

		n := e.batch().ProcessFiles(ctx, "*.zip", false, false, false)
		assert.Equal(t, 2, n, "a mismatch is reported, not corrected")
		assert.Equal(t, []string{"a.zip", "c.zip"}, e.session.PutNames())
		assert.Equal(t, []string{"b.zip", "skip.pdf"}, dirNames(t, e.review))

		assert.Contains(t, logs.String(), `"level":"warn","filter":"*.zip","pre":3,"post":2,"message":"counts do not match"`)
	})

	t.Run("matching_counts_do_not_warn", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.write(t, "a.zip", "1")

		var logs bytes.Buffer
		ctx := zerolog.New(&logs).WithContext(e.ctx)

		assert.Equal(t, 1, e.batch().ProcessFiles(ctx, "*.zip", false, false, false))
		assert.NotContains(t, logs.String(), "counts do not match")
	})

	t.Run("bad_filter", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		assert.Zero(t, e.batch().ProcessFiles(e.ctx, "[", false, false, false))
	})
}

func TestRunNetworkBatch(t *testing.T) {
	t.Run("end_to_end_hash_and_base64", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip", MD5: true, Base64: true}}
		e.write(t, "a.zip", "zipdata")

		n := e.batch().RunNetworkBatch(e.ctx)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"a_zip.64.txt", "a_zip.64.txt.md5.txt", "LastRun"}, e.session.PutNames())

		job := lastPut(t, e.session)
		assert.Equal(t, jobLine("a_zip.64.txt")+jobLine("a_zip.64.txt.md5.txt"), string(job.Content))

		assert.Empty(t, dirNames(t, e.review))
		assert.NoFileExists(t, e.rc.JobLogPath, "job log is deleted after its own transfer")
	})

	t.Run("total_is_sum_of_filters", func(t *testing.T) {
		e := newEnv(t, config.NetworkCW)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip"}, {Pattern: "*.pdf"}}
		e.write(t, "a.zip", "1")
		e.write(t, "b.zip", "2")
		e.write(t, "c.pdf", "3")

		n := e.batch().RunNetworkBatch(e.ctx)
		assert.Equal(t, 3, n)

		job := string(lastPut(t, e.session).Content)
		assert.Equal(t, jobLine("a.zip")+jobLine("b.zip")+jobLine("c.pdf"), job)
		assert.Equal(t, n, strings.Count(job, "\n"))
	})

	t.Run("no_files_sentinel", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip"}}

		assert.Zero(t, e.batch().RunNetworkBatch(e.ctx))
		assert.Equal(t, []string{"LastRun"}, e.session.PutNames())
		assert.Equal(t, jobLine(log.NoFilesSentinel), string(lastPut(t, e.session).Content))
	})

	t.Run("bices_discards_job_log", func(t *testing.T) {
		e := newEnv(t, config.NetworkBICES)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip", MD5: true}}
		e.write(t, "a.zip", "1")

		assert.Equal(t, 1, e.batch().RunNetworkBatch(e.ctx))
		assert.Equal(t, []string{"a.zip"}, e.session.PutNames(), "no job log put and no digest sweep")
		assert.NoFileExists(t, e.rc.JobLogPath)
		assert.Equal(t, []string{"a.zip.md5.txt"}, dirNames(t, e.review))
	})

	t.Run("sweeps_before_and_after_other_files", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip", MD5: true}}
		e.write(t, "a.zip", "1")
		extra := e.write(t, "extra.bin", "2")
		e.rc.OtherFiles = []config.OtherFileArgs{{Path: extra, MD5: true}}

		assert.Equal(t, 2, e.batch().RunNetworkBatch(e.ctx))
		assert.Equal(t, []string{
			"a.zip",
			"a.zip.md5.txt",
			"extra.bin",
			"extra.bin.md5.txt",
			"LastRun",
		}, e.session.PutNames())
	})

	t.Run("cw_sweeps_before_and_after_other_files", func(t *testing.T) {
		e := newEnv(t, config.NetworkCW)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.pdf", MD5: true}}
		e.write(t, "a.pdf", "1")
		extra := e.write(t, "extra.bin", "2")
		e.rc.OtherFiles = []config.OtherFileArgs{{Path: extra, MD5: true}}

		assert.Equal(t, 2, e.batch().RunNetworkBatch(e.ctx), "swept digests are not counted")
		assert.Equal(t, []string{
			"a.pdf",
			"a.pdf.md5.txt",
			"extra.bin",
			"extra.bin.md5.txt",
			"LastRun",
		}, e.session.PutNames())
		assert.Empty(t, dirNames(t, e.review))
	})

	t.Run("other_file_kinds", func(t *testing.T) {
		e := newEnv(t, config.NetworkCW)
		e.write(t, "PULLED_1.txt", "1")
		e.write(t, "PULLED_2.txt", "2")
		e.write(t, "report.csv", "3")
		e.rc.OtherFiles = []config.OtherFileArgs{
			{Path: "PULLED_*.txt", Keep: true},
			{Path: "*.csv"},
			{Path: filepath.Join(t.TempDir(), "nothing-here")},
		}

		b := e.batch()
		assert.Equal(t, 3, b.RunNetworkBatch(e.ctx))

		kinds := []OtherKind{}
		for _, of := range b.OtherFiles(e.ctx) {
			kinds = append(kinds, of.Kind)
		}
		assert.Equal(t, []OtherKind{FreeformPattern, GlobPattern, GlobPattern}, kinds)
		assert.Equal(t, []string{"PULLED_1.txt", "PULLED_2.txt"}, dirNames(t, e.complete))
		assert.Empty(t, dirNames(t, e.review))
	})

	t.Run("failure_does_not_stop_batch", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		e.rc.FileTypes = []config.FileType{{Pattern: "*.zip"}, {Pattern: "*.pdf"}}
		e.write(t, "a.zip", "1")
		e.write(t, "b.pdf", "2")
		e.session.PutErr["a.zip"] = errors.New("denied")

		assert.Equal(t, 1, e.batch().RunNetworkBatch(e.ctx))
		assert.Equal(t, []string{"b.pdf", "LastRun"}, e.session.PutNames())
		assert.Equal(t, []string{"a.zip"}, dirNames(t, e.review))
	})
}

func TestSend(t *testing.T) {
	t.Run("keep_archives_job_log", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		a := e.write(t, "a.zip", "1")

		n := e.batch().Send(e.ctx, []string{a, filepath.Join(e.review, "gone.zip")}, true)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"a.zip"}, e.session.PutNames())
		assert.Equal(t, []string{"Send-LastRun", "a.zip"}, dirNames(t, e.complete))

		data, err := os.ReadFile(filepath.Join(e.complete, "Send-LastRun"))
		require.NoError(t, err)
		assert.Equal(t, jobLine("a.zip"), string(data))
	})

	t.Run("no_keep_removes_job_log", func(t *testing.T) {
		e := newEnv(t, config.NetworkSIPR)
		a := e.write(t, "a.zip", "1")

		assert.Equal(t, 1, e.batch().Send(e.ctx, []string{a}, false))
		assert.NoFileExists(t, e.rc.SendJobLogPath())
		assert.Empty(t, dirNames(t, e.complete))
	})
}

func TestResolveOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.bin")
	pulled := filepath.Join(dir, "PULLED.bin")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.NoError(t, os.WriteFile(pulled, nil, 0o644))

	args := []config.OtherFileArgs{
		{Path: file, Keep: true},
		{Path: pulled, MD5: true},
		{Path: "*.bin"},
		{Path: dir},
	}

	got := ResolveOtherFiles(args, regexp.MustCompile("PULLED"))
	require.Len(t, got, 4)
	assert.Equal(t, OtherFile{Kind: ExactPath, Key: file, Keep: true}, got[0])
	assert.Equal(t, OtherFile{Kind: FreeformPattern, Key: pulled, MD5: true}, got[1], "freeform wins over an existing file")
	assert.Equal(t, GlobPattern, got[2].Kind)
	assert.Equal(t, GlobPattern, got[3].Kind, "a directory is not an exact path")

	none := ResolveOtherFiles(args[1:2], nil)
	assert.Equal(t, ExactPath, none[0].Kind)

	assert.Equal(t, "freeform", FreeformPattern.String())
	assert.Equal(t, "unknown", OtherKind(9).String())
}
