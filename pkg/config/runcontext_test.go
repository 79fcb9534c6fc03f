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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, root string) *Config {
	t.Helper()
	backup := true
	cfg := &Config{
		DissemDir:   filepath.Join(root, "dissem"),
		TransferDir: filepath.Join(root, "transfer"),
		LogDir:      filepath.Join(root, "logs"),
		Backup:      &backup,
		Networks: map[string]*NetworkArgs{
			"SIPR": {
				RemoteDir: "/guard/sipr",
				FileTypes: []FileType{{Pattern: "*.zip", MD5: true}},
			},
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewRunContext(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root)
	sep := string(os.PathSeparator)

	rc, err := NewRunContext(cfg, NetworkSIPR, ActionProcess)
	require.NoError(t, err)

	assert.Equal(t, NetworkSIPR, rc.Network)
	assert.Equal(t, ActionProcess, rc.Action)
	assert.True(t, rc.Backup)
	assert.Equal(t, "/guard/sipr", rc.RemoteDir)
	assert.Equal(t, filepath.Join(root, "transfer", "SIPR", "reviewed")+sep, rc.ReviewDir)
	assert.Equal(t, filepath.Join(root, "transfer", "SIPR", "complete")+sep, rc.CompleteDir)
	assert.Equal(t, filepath.Join(root, "logs", "SIPR", "LastRun"), rc.JobLogPath)
	assert.Equal(t, filepath.Join(root, "logs", "guardxfer-SIPR.log"), rc.ProgramLogPath)
	assert.Equal(t, filepath.Join(root, "logs", "SIPR")+sep, rc.JobLogDir())
	assert.Equal(t, filepath.Join(root, "logs", "SIPR", "Send-LastRun"), rc.SendJobLogPath())
	assert.Empty(t, rc.LedgerPath)

	for _, dir := range []string{rc.ReviewDir, rc.CompleteDir, rc.TransferDir, rc.LogDir} {
		assert.DirExists(t, dir, "process should create its directories")
		assert.True(t, strings.HasSuffix(dir, sep), "%s should end in a separator", dir)
		assert.False(t, strings.HasSuffix(dir, sep+sep), "%s should end in exactly one separator", dir)
	}
	assert.NoDirExists(t, filepath.Join(root, "dissem"), "process does not touch the dissem dir")
}

func TestNewRunContextMoveApproved(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root)

	rc, err := NewRunContext(cfg, NetworkSIPR, ActionMoveApproved)
	require.NoError(t, err)

	assert.DirExists(t, rc.DissemDir)
	assert.DirExists(t, rc.ReviewDir)
	assert.NoDirExists(t, filepath.Join(root, "transfer", "SIPR", "complete"))
}

func TestNewRunContextErrors(t *testing.T) {
	t.Run("unconfigured_network", func(t *testing.T) {
		cfg := testConfig(t, t.TempDir())
		_, err := NewRunContext(cfg, NetworkBICES, ActionProcess)
		assert.ErrorContains(t, err, "BICES is not configured")
	})

	t.Run("directories_reported_together", func(t *testing.T) {
		root := t.TempDir()
		cfg := testConfig(t, root)

		// plain files where directories are expected
		blockTransfer := filepath.Join(root, "transfer")
		blockLogs := filepath.Join(root, "logs")
		require.NoError(t, os.WriteFile(blockTransfer, []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(blockLogs, []byte("x"), 0o644))

		_, err := NewRunContext(cfg, NetworkSIPR, ActionProcess)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log_dir")
		assert.Contains(t, err.Error(), "transfer_dir")
	})
}

func TestNetworkPolicy(t *testing.T) {
	tests := []struct {
		in        string
		want      Network
		sweeps    bool
		sendsJobs bool
		wantErr   bool
	}{
		{in: "SIPR", want: NetworkSIPR, sweeps: true, sendsJobs: true},
		{in: "cw", want: NetworkCW, sweeps: true, sendsJobs: true},
		{in: " bices ", want: NetworkBICES, sweeps: false, sendsJobs: false},
		{in: "NIPR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNetwork(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.sweeps, got.SweepsHashFiles())
			assert.Equal(t, tt.sendsJobs, got.SendsJobLog())
		})
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("MoveApproved")
	require.NoError(t, err)
	assert.Equal(t, ActionMoveApproved, a)
	assert.False(t, a.NeedsSession())

	a, err = ParseAction("process")
	require.NoError(t, err)
	assert.True(t, a.NeedsSession())

	_, err = ParseAction("delete")
	assert.Error(t, err)
}
