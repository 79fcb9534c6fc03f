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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// NoFilesSentinel is the only entry of a job log whose run moved nothing.
	NoFilesSentinel = "NOFILES"

	jobLogTimeFormat = "01-02-2006T15:04:05Z"
)

// 🧾 JobLog is the append-only record of the files a run transferred. Each
// line is "<utc timestamp>|<basename>".
type JobLog struct {
	path  string
	file  *os.File
	zlog  zerolog.Logger
	mu    sync.Mutex
	lines int
	now   func() time.Time
}

// JobLogOption configures a JobLog
type JobLogOption func(*JobLog)

// WithClock overrides the clock used for line timestamps
func WithClock(now func() time.Time) JobLogOption {
	return func(j *JobLog) { j.now = now }
}

// 🏭 OpenJobLog truncates or creates the job log at path
func OpenJobLog(path string, opts ...JobLogOption) (*JobLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating job log dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Errorf("creating job log %s: %w", path, err)
	}

	j := &JobLog{path: path, file: f, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}

	w := zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("%s|%v", j.now().UTC().Format(jobLogTimeFormat), i)
		},
	}
	j.zlog = zerolog.New(w)

	return j, nil
}

// 📝 Record appends one transferred file name
func (j *JobLog) Record(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return
	}
	j.zlog.Log().Msg(filepath.Base(name))
	j.lines++
}

// 📝 RecordNone writes the sentinel entry for a run that moved nothing
func (j *JobLog) RecordNone() {
	j.Record(NoFilesSentinel)
}

// 📊 Lines returns the number of entries written so far
func (j *JobLog) Lines() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lines
}

// 📝 Path returns the job log location
func (j *JobLog) Path() string {
	return j.path
}

// 🔒 Close closes the underlying file. Records after Close are dropped.
func (j *JobLog) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	if err != nil {
		return errors.Errorf("closing job log %s: %w", j.path, err)
	}
	return nil
}
