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

package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_item",
			op: func(t *testing.T, logger *Logger) {
				logger.LogItem(context.Background(), ItemOperation{
					Name:   "report.zip",
					Action: ActionTransferred,
					Detail: "/guard/in",
				})
			},
			wantLogs: []string{
				"✓ report.zip                          transferred  /guard/in",
			},
		},
		{
			name: "log_run",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRun(context.Background(), RunOperation{
					Network: "SIPR",
					Mode:    "process",
					RunID:   "abc",
				})
			},
			wantLogs: []string{
				"[process SIPR]",
				"◆ run • abc",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("transferring reviewed files")
			},
			wantLogs: []string{
				"guardxfer • transferring reviewed files",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.Nop())

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := Nop()

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("dropped")
	}, "a missing logger should fall back to a discarding one")
}

func TestEndRunCounts(t *testing.T) {
	logger := New(&bytes.Buffer{}, zerolog.Nop())
	ctx := context.Background()

	logger.StartRun(ctx, RunOperation{Network: "CW", Mode: "process", RunID: "r1"})
	logger.LogItem(ctx, ItemOperation{Name: "a", Action: ActionTransferred})
	logger.LogItem(ctx, ItemOperation{Name: "b", Action: ActionTransferred})
	logger.LogItem(ctx, ItemOperation{Name: "c", Action: ActionFailed})

	counts := logger.EndRun(ctx)
	assert.Equal(t, 2, counts[ActionTransferred])
	assert.Equal(t, 1, counts[ActionFailed])
	assert.Zero(t, counts[ActionPackaged])

	assert.Empty(t, logger.EndRun(ctx), "a second end should see no items")
}

func TestItemFormatting(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		op   ItemOperation
		want string
	}{
		{
			name: "packaged",
			op:   ItemOperation{Name: "doc.zip", Action: ActionPackaged},
			want: "    ✓ doc.zip                             packaged",
		},
		{
			name: "archived",
			op:   ItemOperation{Name: "doc.zip", Action: ActionArchived, Detail: "complete"},
			want: "    ⟳ doc.zip                             archived     complete",
		},
		{
			name: "deleted",
			op:   ItemOperation{Name: "doc.zip", Action: ActionDeleted},
			want: "    - doc.zip                             deleted",
		},
		{
			name: "failed",
			op:   ItemOperation{Name: "doc.zip", Action: ActionFailed, Detail: "file not found"},
			want: "    ✗ doc.zip                             failed       file not found",
		},
		{
			name: "skipped",
			op:   ItemOperation{Name: "doc.html", Action: ActionSkipped},
			want: "    • doc.html                            skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(&bytes.Buffer{}, zerolog.Nop())
			assert.Equal(t, tt.want, strings.TrimRight(logger.formatItemOperation(tt.op), " "))
		})
	}
}

func TestJobLog(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	clock := WithClock(func() time.Time { return fixed })

	t.Run("records_basenames", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobs", "LastRun")
		jl, err := OpenJobLog(path, clock)
		require.NoError(t, err)

		jl.Record("/review/a.zip")
		jl.Record("b.md5.txt")
		assert.Equal(t, 2, jl.Lines())
		require.NoError(t, jl.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "03-09-2024T14:05:07Z|a.zip\n03-09-2024T14:05:07Z|b.md5.txt\n", string(data))
	})

	t.Run("sentinel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "LastRun")
		jl, err := OpenJobLog(path, clock)
		require.NoError(t, err)

		jl.RecordNone()
		require.NoError(t, jl.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "03-09-2024T14:05:07Z|NOFILES\n", string(data))
	})

	t.Run("truncates_previous_run", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "LastRun")
		require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

		jl, err := OpenJobLog(path, clock)
		require.NoError(t, err)
		require.NoError(t, jl.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("record_after_close_is_dropped", func(t *testing.T) {
		jl, err := OpenJobLog(filepath.Join(t.TempDir(), "LastRun"), clock)
		require.NoError(t, err)
		require.NoError(t, jl.Close())
		require.NoError(t, jl.Close())

		jl.Record("late.zip")
		assert.Zero(t, jl.Lines())
	})
}

func TestProgramLog(t *testing.T) {
	console := &bytes.Buffer{}
	path := filepath.Join(t.TempDir(), "logs", "guardxfer-SIPR.log")

	pl, err := OpenProgramLog(path, console, zerolog.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, path, pl.Path())

	pl.Info().Str("network", "SIPR").Msg("starting")
	pl.Debug().Msg("hidden")
	require.NoError(t, pl.Close())
	require.NoError(t, pl.Close(), "closing twice should be harmless")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"starting"`)
	assert.Contains(t, string(data), `"network":"SIPR"`)
	assert.NotContains(t, string(data), "hidden")

	assert.Contains(t, console.String(), "starting")
}
